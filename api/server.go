/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS:
  /api/ingest, /api/clear-data   Data lifecycle
  /api/summary, /api/filters     Overview
  /api/*-analysis, trend         Aggregations
  /api/agent-detail, group-agents Drill-down

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. allowedOrigins
// feeds the CORS middleware; an empty list allows the dev frontend ports.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		// Data lifecycle
		r.Post("/ingest", h.IngestData)
		r.Post("/clear-data", h.ClearData)

		// Overview
		r.Get("/summary", h.GetSummary)
		r.Get("/filters", h.GetFilters)

		// Aggregations
		r.Post("/margin-analysis", h.MarginAnalysis)
		r.Post("/retention-analysis", h.RetentionAnalysis)
		r.Post("/efficiency-trend", h.EfficiencyTrend)

		// Drill-down
		r.Get("/agent-detail/{id}", h.AgentDetail)
		r.Post("/group-agents", h.GroupAgents)
	})

	return r
}
