// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric label values shared across registrations.
const (
	// labelHandler is the "handler" label value used to partition metrics by
	// the logical endpoint name rather than the raw URL path.
	labelHandler = "handler"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// explainRequestsTotal counts completed /api/explain requests,
	// partitioned by outcome: "ok" or "error".
	explainRequestsTotal *prometheus.CounterVec

	// explainDurationSeconds records the wall-clock duration of each
	// /api/explain request from first byte received to stream completion.
	explainDurationSeconds *prometheus.HistogramVec

	// explainActiveStreams is the number of /api/explain streams
	// currently open.
	explainActiveStreams prometheus.Gauge

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, path pattern, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default —
// this keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		explainRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finrag",
			Subsystem: "explain",
			Name:      "requests_total",
			Help:      "Total number of /api/explain requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		explainDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "finrag",
			Subsystem: "explain",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of /api/explain requests from receipt to stream completion.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}, []string{"outcome"}),

		explainActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "finrag",
			Subsystem: "explain",
			Name:      "active_streams",
			Help:      "Number of /api/explain streams currently open.",
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finrag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "finrag",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// instrument wraps next so every request increments the http request counter
// and records its latency, labelled by the mux pattern that matched.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(rw, r)
		elapsed := time.Since(start)

		handler := r.Pattern
		if handler == "" {
			handler = r.URL.Path
		}
		s.metrics.httpRequestsTotal.WithLabelValues(
			r.Method, handler, http.StatusText(rw.status),
		).Inc()
		s.metrics.httpDurationSeconds.WithLabelValues(r.Method, handler).
			Observe(elapsed.Seconds())
	})
}
