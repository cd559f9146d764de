package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/donutexchange/internal/domain"
	"github.com/efreitasn/donutexchange/internal/service"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

type submitOrderRequest struct {
	Side         string `json:"side"`
	ProductID    string `json:"productId"`
	OutletID     string `json:"outletId"`
	Quantity     int64  `json:"quantity"`
	PricePerUnit string `json:"pricePerUnit"`
}

type orderResponse struct {
	OrderID           string `json:"orderId"`
	Side              string `json:"side"`
	ProductID         string `json:"productId"`
	OutletID          string `json:"outletId"`
	Quantity          int64  `json:"quantity"`
	PricePerUnit      string `json:"pricePerUnit"`
	RemainingQuantity int64  `json:"remainingQuantity"`
	FilledQuantity    int64  `json:"filledQuantity"`
	Status            string `json:"status"`
	CreatedAt         string `json:"createdAt"`
	UpdatedAt         string `json:"updatedAt"`
}

func buildOrderResponse(o *domain.Order) orderResponse {
	return orderResponse{
		OrderID:           o.OrderID,
		Side:              string(o.Side),
		ProductID:         o.ProductID,
		OutletID:          o.OutletID,
		Quantity:          o.Quantity,
		PricePerUnit:      o.PricePerUnit.String(),
		RemainingQuantity: o.RemainingQuantity,
		FilledQuantity:    o.FilledQuantity,
		Status:            string(o.Status),
		CreatedAt:         o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt:         o.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// SubmitOrder handles POST /orders.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	price, err := decimal.NewFromString(req.PricePerUnit)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "pricePerUnit must be a decimal string")
		return
	}

	order, err := h.orderSvc.SubmitOrder(r.Context(), service.SubmitOrderRequest{
		Side:         domain.OrderSide(req.Side),
		ProductID:    req.ProductID,
		OutletID:     req.OutletID,
		Quantity:     req.Quantity,
		PricePerUnit: price,
	})
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildOrderResponse(order))
}

// GetOrder handles GET /orders/{order_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	order, err := h.orderSvc.GetOrder(r.Context(), orderID)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

// OrderBook handles GET /products/{product_id}/book.
func (h *OrderHandler) OrderBook(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")

	orders, err := h.orderSvc.OrderBook(r.Context(), productID)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = buildOrderResponse(o)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// mapOrderError maps domain errors to HTTP responses for order
// endpoints.
func mapOrderError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		WriteError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, domain.ErrOutletNotFound):
		WriteError(w, http.StatusNotFound, "outlet_not_found", err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, domain.ErrOutletClosed):
		WriteError(w, http.StatusConflict, "outlet_closed", err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		WriteError(w, http.StatusConflict, "insufficient_balance", err.Error())
	case errors.Is(err, domain.ErrInsufficientInventory):
		WriteError(w, http.StatusConflict, "insufficient_inventory", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}
