// Package server implements the HTTP transport layer for the assistant gateway.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	gateway "github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal"
	"github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal/chat"
	"github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal/ratelimit"
	"github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal/telemetry"
)

// ReadyChecker reports whether the system is ready to serve traffic.
type ReadyChecker func(ctx context.Context) error

// AuditRecorder records audit entries asynchronously.
type AuditRecorder interface {
	Record(gateway.AuditRecord)
}

// Deps holds all dependencies for the HTTP server.
type Deps struct {
	Chat       *chat.Service
	Streamer   gateway.ChatStreamer
	Limiter    *ratelimit.Limiter   // nil = no admission control (tests only)
	Audit      AuditRecorder        // nil = no audit recording
	ReadyCheck ReadyChecker         // nil = always ready (for tests)
	Metrics    *telemetry.Metrics   // nil = no metrics
	Registry   *prometheus.Registry // serves /metrics when Metrics is set
}

// New creates an http.Handler with all routes and middleware wired.
func New(deps Deps) http.Handler {
	s := &server{deps: deps}

	r := chi.NewRouter()

	// Global middleware
	r.Use(s.recovery)
	r.Use(s.requestID)
	r.Use(s.logging)
	r.Use(corsMiddleware)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	// System endpoints (no admission control)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if deps.Metrics != nil && deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	// Visitor-facing API (admission-controlled)
	r.Group(func(r chi.Router) {
		r.Use(s.admission)
		r.Post("/api/chat", s.handleChat)
	})

	return r
}

type server struct {
	deps Deps
}
