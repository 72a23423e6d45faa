package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check (no timeout middleware; always answers fast)
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		if d := h.cfg.Server.Timeout(); d > 0 {
			r.Use(middleware.Timeout(d))
		}

		// Catalog and property introspection
		r.Get("/reports", h.ListReports)
		r.Get("/reports/{key}", h.GetReport)
		r.Get("/metadata", h.GetMetadata)
		r.Get("/config", h.GetConfig)
		r.Get("/runs", h.ListRuns)

		// Schema management
		r.Post("/tables/init", h.InitTables)

		// Extraction. chi matches the static /extract/batch before the
		// /extract/{key} parameter route.
		r.Post("/extract", h.ExtractAll)
		r.Post("/extract/batch", h.ExtractBatch)
		r.Post("/extract/{key}", h.ExtractOne)

		// Realtime snapshot, never warehouse-loaded
		r.Post("/realtime", h.Realtime)
	})

	return r
}
