// Package metrics provides Prometheus instrumentation for the wallet tracker.
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
	// RPCCallsTotal counts upstream RPC calls by method and outcome.
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wtrack_rpc_calls_total",
		Help: "Total Solana RPC calls",
	}, []string{"method", "status"})

	// RetriesTotal counts transient-failure retries by operation label.
	RetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wtrack_retries_total",
		Help: "Retries performed after transient RPC failures",
	}, []string{"label"})

	// TradesProcessed counts ledger updates by trade mode.
	TradesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wtrack_trades_processed_total",
		Help: "Classified trades applied to the position ledger",
	}, []string{"mode"})

	// BackfillScans counts backfill runs by terminal status.
	BackfillScans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wtrack_backfill_scans_total",
		Help: "Backfill reconciliation scans",
	}, []string{"status"})

	// BackfillSignatures counts signatures replayed during backfill.
	BackfillSignatures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wtrack_backfill_signatures_total",
		Help: "Historical signatures replayed by the reconciler",
	})

	// StoreDegradations counts persistence failures that fell back to the
	// in-memory cache.
	StoreDegradations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wtrack_store_degradations_total",
		Help: "Durable store failures degraded to memory-only operation",
	})

	// PriceCacheHits and PriceCacheMisses track the oracle TTL cache.
	PriceCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wtrack_price_cache_hits_total",
		Help: "Price oracle cache hits",
	})
	PriceCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wtrack_price_cache_misses_total",
		Help: "Price oracle cache misses",
	})

	// WebSocketClients tracks connected broadcast clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wtrack_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wtrack_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wtrack_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
