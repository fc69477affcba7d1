// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics creates a middleware that records Prometheus metrics for HTTP requests
// on reg. It tracks request duration, in-flight requests, response sizes and
// status codes, labelled by chi route pattern.
func Metrics(reg prometheus.Registerer) func(http.Handler) http.Handler {
	f := promauto.With(reg)
	duration := f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reelbox_http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	inFlight := f.NewGauge(prometheus.GaugeOpts{
		Name: "reelbox_http_requests_in_flight",
		Help: "Current number of HTTP requests being served",
	})
	responseSize := f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reelbox_http_response_size_bytes",
		Help:    "HTTP response sizes in bytes",
		Buckets: prometheus.ExponentialBuckets(100, 10, 8),
	}, []string{"method", "path", "status"})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			inFlight.Inc()
			defer inFlight.Dec()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Route pattern keeps label cardinality bounded.
			path := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			code := strconv.Itoa(status)
			duration.WithLabelValues(r.Method, path, code).Observe(time.Since(start).Seconds())
			if n := ww.BytesWritten(); n > 0 {
				responseSize.WithLabelValues(r.Method, path, code).Observe(float64(n))
			}
		})
	}
}
