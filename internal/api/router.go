package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced on the /api
// group; /healthz stays reachable without credentials.
// events, if non-nil, is mounted at GET /api/events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, events http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	// No request logger: stdout carries the MCP transport, and chi's
	// default logger writes there.
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)

	r.Route("/api", func(api chi.Router) {
		api.Use(StatsMiddleware(h.stats))
		api.Use(AuthMiddleware(authEnabled, token))

		api.Get("/status", h.Status)
		api.Get("/notes", h.ListNotes)
		api.Get("/notes/{id}", h.GetNote)
		api.Get("/search", h.Search)
		api.Get("/tags", h.Tags)

		// Cache activity stream (protected by the same auth middleware).
		if events != nil {
			api.Get("/events", events.ServeHTTP)
		}
	})

	return r
}
