// SPDX-License-Identifier: MIT

// Package middleware provides the HTTP ingress middleware for the API server.
package middleware

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ManuGH/reelbox/internal/log"
)

// StackConfig configures the canonical HTTP ingress middleware stack.
type StackConfig struct {
	// Observability
	Registerer     prometheus.Registerer // nil disables request metrics
	TracingService string                // empty disables tracing
	EnableLogging  bool

	// Rate limiting
	EnableRateLimit   bool
	RequestsPerMinute int
}

// ApplyStack applies the canonical middleware stack to r.
func ApplyStack(r chi.Router, cfg StackConfig) {
	// 1. Recoverer (outermost safety net)
	r.Use(Recoverer)
	// 2. RequestID (correlation early)
	r.Use(RequestID)
	// 3. Metrics (track all requests)
	if cfg.Registerer != nil {
		r.Use(Metrics(cfg.Registerer))
	}
	// 4. Tracing (distributed tracing with OpenTelemetry)
	if cfg.TracingService != "" {
		r.Use(OTelHTTP(cfg.TracingService))
	}
	// 5. Logging (wraps handlers, captures full latency)
	if cfg.EnableLogging {
		r.Use(log.Middleware())
	}
	// 6. Rate limit (global protection)
	if cfg.EnableRateLimit && cfg.RequestsPerMinute > 0 {
		r.Use(RateLimit(RateLimitConfig{
			RequestLimit: cfg.RequestsPerMinute,
			WindowSize:   time.Minute,
		}))
	}
}
