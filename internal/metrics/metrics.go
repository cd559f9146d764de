// Package metrics provides Prometheus instrumentation for the
// exchange, grounded on AMOORCHING-ATMX's internal/metrics/metrics.go.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TradesTotal counts exchange fills, partitioned by product.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "donutexchange_trades_total",
		Help: "Total number of exchange trades executed",
	}, []string{"product_id"})

	// TradeVolume accumulates fill quantity, partitioned by product.
	TradeVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "donutexchange_trade_volume_total",
		Help: "Cumulative filled quantity per product",
	}, []string{"product_id"})

	// CustomerSalesTotal counts retail sales, partitioned by outlet.
	CustomerSalesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "donutexchange_customer_sales_total",
		Help: "Total number of retail customer sales",
	}, []string{"outlet_id"})

	// OrdersRestingGauge tracks resting order count per product/side.
	OrdersResting = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "donutexchange_orders_resting",
		Help: "Number of resting orders currently on a product's book",
	}, []string{"product_id", "side"})

	// WebSocketClients tracks connected WebSocket observers.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "donutexchange_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// EventsDropped counts events dropped by a full sink queue.
	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "donutexchange_events_dropped_total",
		Help: "Events dropped from a broadcaster sink queue on overflow",
	}, []string{"sink"})

	// HTTPRequestsTotal counts HTTP requests by method, path, and
	// status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "donutexchange_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "donutexchange_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
// The path label uses the chi route pattern set by chi's RouteContext
// where available, falling back to the raw URL path.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
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
