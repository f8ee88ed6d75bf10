package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/ocpp-gateway/internal/auth"
)

// healthCheckTimeout bounds each dependency probe made by /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	// Charge point endpoint
	r.Get(s.ocppPath()+"/{chargePointID}", s.handleOCPP)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.corsMiddleware)
		r.Use(s.bodySizeLimitMiddleware)
		r.Use(s.timeoutMiddleware)

		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.With(s.requirePermission(auth.PermChargerRead)).Get("/connections", s.handleListConnections)
			r.With(s.requirePermission(auth.PermChargerRead)).Get("/commands", s.handleListCommands)

			r.Route("/chargers", func(r chi.Router) {
				r.With(s.requirePermission(auth.PermChargerRead)).Get("/", s.handleListChargers)

				r.Route("/{id}", func(r chi.Router) {
					r.With(s.requirePermission(auth.PermChargerRead)).Get("/", s.handleGetCharger)
					r.With(s.requirePermission(auth.PermMessageRead)).Get("/messages", s.handleListMessages)
					r.With(s.requirePermission(auth.PermChargerCommand)).Post("/commands", s.handleSendCommand)
				})
			})
		})
	})

	return r
}

// ocppPath returns the configured WebSocket prefix without a trailing slash.
func (s *Server) ocppPath() string {
	p := strings.TrimRight(s.wsCfg.Path, "/")
	if p == "" {
		return "/ocpp"
	}
	return p
}

// handleHealth reports liveness, the live connection count and the state of
// each registered dependency. It returns 503 when any dependency fails.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	components := make(map[string]string, len(s.checks))

	for name, check := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := check.HealthCheck(ctx)
		cancel()
		if err != nil {
			s.logger.Warn("health check failed", "component", name, "error", err)
			components[name] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":      overall,
		"version":     s.version,
		"connections": s.gw.Registry().Count(),
		"components":  components,
	})
}
