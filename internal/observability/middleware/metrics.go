package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Sprinq/cecs378project-sub000/internal/observability/metrics"
)

// instrumented captures the status code for the request counters.
type instrumented struct {
	http.ResponseWriter
	status int
}

func (w *instrumented) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// WithMetrics counts requests and observes latency. The path label is the
// chi route pattern, known once routing has run, so raw request paths never
// become label values. Scrapes of /metrics are not counted.
func WithMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		iw := &instrumented{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(iw, r)

		pattern := "unrouted"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				pattern = p
			}
		}
		if pattern == "/metrics" {
			return
		}

		metrics.HTTPRequestsTotal.
			WithLabelValues(r.Method, pattern, strconv.Itoa(iw.status)).Inc()
		metrics.HTTPRequestDurationSeconds.
			WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}
