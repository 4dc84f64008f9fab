/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the clock frontend

SECURITY NOTE:
  No authentication middleware currently. The service runs behind the office
  reverse proxy; all endpoints are internal.

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

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

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
		// Clock routes
		r.Route("/entries", func(r chi.Router) {
			r.Post("/", h.ClockIn)
			r.Post("/{id}/clockout", h.ClockOut)
			r.Post("/{id}/approve", h.ApproveEntry)
		})

		// Per-user routes
		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/entries", h.ListEntries)
			r.Get("/balance", h.GetBalance)
			r.Get("/ledger", h.GetLedger)
			r.Post("/requests", h.SubmitRequest)
			r.Post("/requests/bulk", h.SubmitBulkRequest)
		})

		// Request approval routes
		r.Route("/requests", func(r chi.Router) {
			r.Get("/pending", h.ListPendingRequests)
			r.Post("/{id}/approve", h.ApproveRequest)
			r.Post("/{id}/reject", h.RejectRequest)
		})

		// Reporting routes
		r.Get("/alerts", h.ListAlerts)
		r.Get("/policies", h.ListPolicies)
		r.Get("/export/balances.csv", h.ExportBalancesCSV)
	})

	return r
}
