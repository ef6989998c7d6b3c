package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/virtual-gateway/internal/auth"
)

// buildRouter assembles the chi router with the full middleware chain
// and versioned routes.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.With(requireScope(auth.ScopeReadThings)).Get("/things", s.handleListThings)
			r.With(requireScope(auth.ScopeReadThings)).Get("/things/{thingID}", s.handleGetThing)
			r.With(requireScope(auth.ScopeWriteThings)).Patch("/things/{thingID}", s.handleUpdateThing)

			r.With(requireScope(auth.ScopeReadThings)).Get("/state", s.handleState)

			r.With(requireScope(auth.ScopeWriteThings)).Post("/automation/toggle", s.handleToggleAutomation)
			r.With(requireScope(auth.ScopeReadThings)).Get("/automation/events", s.handleListEvents)

			r.With(requireScope(auth.ScopeReadThings)).Get("/analytics/summary", s.handleAnalyticsSummary)
		})
	})

	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = "/ws"
	}
	r.Get(wsPath, s.handleWebSocket)

	return r
}

// handleHealth reports server liveness. Public; load balancers and
// container probes hit it without credentials.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.version,
		"go_version": runtime.Version(),
		"time":       time.Now().UTC().Format(time.RFC3339),
	})
}
