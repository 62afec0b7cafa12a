/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Wires URLs to handlers. The router is an http.Handler a host
  application can serve directly or mount under its own prefix.

MIDDLEWARE STACK:
  1. RequestID:  unique id per request, picked up by the logger
  2. Logger:     zap request log (logger.Middleware)
  3. Recoverer:  panic recovery (500 instead of crash)
  4. CORS:       configured origins only

ROUTE GROUPS:
  /api/staff/*      Profiles, supervisor, balances, ledgers
  /api/roles/*      Job titles
  /api/leave/*      Leave requests
  /api/overtime/*   Overtime requests
  /api/free-days/*  Calendar free days
  /api/admin/*      Year rollover
  /metrics          Prometheus scrape endpoint
  /healthz          Liveness

SEE ALSO:
  - handlers.go: handler implementations
  - cmd/server/main.go: server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/warp/hr-engine/logger"
)

// RouterOptions carries the cross-cutting pieces of the router.
type RouterOptions struct {
	AllowedOrigins []string
	Metrics        http.Handler
	Log            *zap.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logger.Middleware(opts.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/staff", func(r chi.Router) {
			r.Get("/", h.ListStaff)
			r.Post("/", h.CreateStaff)
			r.Get("/{id}", h.GetStaff)
			r.Put("/{id}", h.UpdateStaff)
			r.Put("/{id}/supervisor", h.SetSupervisor)
			r.Get("/{id}/summary", h.GetSummary)
			r.Get("/{id}/ledgers", h.ListLedgers)
			r.Put("/{id}/ledgers", h.OverrideLedger)
		})

		r.Route("/roles", func(r chi.Router) {
			r.Get("/", h.ListRoles)
			r.Post("/", h.CreateRole)
		})

		r.Route("/leave", func(r chi.Router) {
			r.Get("/", h.ListLeave)
			r.Post("/", h.SubmitLeave)
			r.Get("/{id}", h.GetLeave)
			r.Post("/{id}/review", h.ReviewLeave)
		})

		r.Route("/overtime", func(r chi.Router) {
			r.Get("/", h.ListOverTime)
			r.Post("/", h.SubmitOverTime)
			r.Get("/{id}", h.GetOverTime)
			r.Post("/{id}/review", h.ReviewOverTime)
		})

		r.Route("/free-days", func(r chi.Router) {
			r.Get("/", h.ListFreeDays)
			r.Post("/bootstrap", h.BootstrapFreeDays)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/open-year", h.OpenYear)
		})
	})

	return r
}
