package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/donutexchange/internal/domain"
	"github.com/efreitasn/donutexchange/internal/ledger"
)

// OutletHandler handles HTTP requests for outlet and leaderboard
// endpoints.
type OutletHandler struct {
	ledger *ledger.Ledger
}

// NewOutletHandler creates an OutletHandler.
func NewOutletHandler(l *ledger.Ledger) *OutletHandler {
	return &OutletHandler{ledger: l}
}

type outletResponse struct {
	OutletID      string `json:"outletId"`
	Name          string `json:"name"`
	Location      string `json:"location"`
	Balance       string `json:"balance"`
	MarginPercent string `json:"marginPercent"`
	IsOpen        bool   `json:"isOpen"`
	CreatedAt     string `json:"createdAt"`
}

func buildOutletResponse(o *domain.Outlet) outletResponse {
	o.Mu.Lock()
	defer o.Mu.Unlock()
	return outletResponse{
		OutletID:      o.OutletID,
		Name:          o.Name,
		Location:      o.Location,
		Balance:       o.Balance.String(),
		MarginPercent: o.MarginPercent.String(),
		IsOpen:        o.IsOpen,
		CreatedAt:     o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

type statsResponse struct {
	OutletID             string `json:"outletId"`
	CustomerSalesRevenue string `json:"customerSalesRevenue"`
	CustomerSalesCount   int64  `json:"customerSalesCount"`
	ExchangeSalesRevenue string `json:"exchangeSalesRevenue"`
	ExchangeSalesCount   int64  `json:"exchangeSalesCount"`
	NetProfit            string `json:"netProfit"`
}

func buildStatsResponse(s *domain.SalesStats) statsResponse {
	return statsResponse{
		OutletID:             s.OutletID,
		CustomerSalesRevenue: s.CustomerSalesRevenue.String(),
		CustomerSalesCount:   s.CustomerSalesCount,
		ExchangeSalesRevenue: s.ExchangeSalesRevenue.String(),
		ExchangeSalesCount:   s.ExchangeSalesCount,
		NetProfit:            s.NetProfit.String(),
	}
}

// GetOutlet handles GET /outlets/{outlet_id}.
func (h *OutletHandler) GetOutlet(w http.ResponseWriter, r *http.Request) {
	outletID := chi.URLParam(r, "outlet_id")

	outlet, err := h.ledger.FindOutlet(outletID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "outlet_not_found", err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, buildOutletResponse(outlet))
}

// ListOutlets handles GET /outlets. The sentinel supplier outlet is
// excluded, matching Leaderboard (§3: the sentinel is excluded from
// "leaderboards and retail-outlet listings").
func (h *OutletHandler) ListOutlets(w http.ResponseWriter, r *http.Request) {
	outlets := h.ledger.RetailOutlets()
	resp := make([]outletResponse, len(outlets))
	for i, o := range outlets {
		resp[i] = buildOutletResponse(o)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetStats handles GET /outlets/{outlet_id}/stats.
func (h *OutletHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	outletID := chi.URLParam(r, "outlet_id")

	stats, err := h.ledger.Stats(outletID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "outlet_not_found", err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, buildStatsResponse(stats))
}

// GetLeaderboard handles GET /leaderboard.
func (h *OutletHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	outlets := h.ledger.Leaderboard()
	resp := make([]outletResponse, len(outlets))
	for i, o := range outlets {
		resp[i] = buildOutletResponse(o)
	}
	WriteJSON(w, http.StatusOK, resp)
}
