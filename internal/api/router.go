package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/donutexchange/internal/domain"
	"github.com/efreitasn/donutexchange/internal/ledger"
	"github.com/efreitasn/donutexchange/internal/metrics"
	"github.com/efreitasn/donutexchange/internal/service"
	"github.com/efreitasn/donutexchange/internal/wsbridge"
)

// NewRouter creates a chi router with every route registered, request
// logging, and Content-Type validation middleware.
func NewRouter(
	orderSvc *service.OrderService,
	l *ledger.Ledger,
	products *domain.ProductRegistry,
	hub *wsbridge.Hub,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	r.Use(requestLogging(logger))
	r.Use(metrics.Middleware)
	r.Use(contentTypeJSON)

	orderH := NewOrderHandler(orderSvc)
	outletH := NewOutletHandler(l)
	productH := NewProductHandler(products)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Post("/orders", orderH.SubmitOrder)
	r.Get("/orders/{order_id}", orderH.GetOrder)

	r.Get("/products", productH.ListProducts)
	r.Get("/products/{product_id}/book", orderH.OrderBook)

	r.Get("/outlets", outletH.ListOutlets)
	r.Get("/outlets/{outlet_id}", outletH.GetOutlet)
	r.Get("/outlets/{outlet_id}/stats", outletH.GetStats)
	r.Get("/leaderboard", outletH.GetLeaderboard)

	r.Get("/ws", hub.HandleWS)

	return r
}

// requestLogging returns middleware that logs each request's method,
// path, status code, and duration via slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON validates Content-Type for POST/PUT/PATCH requests,
// excluding the WebSocket upgrade route which never carries a JSON
// body.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request", "Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
