package routes

import (
	"beer-and-hike/backend/internal/api"
	"beer-and-hike/backend/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// RegisterAPIRoutes registers all API v1 routes and handlers
func RegisterAPIRoutes(r chi.Router, jobsHandler *api.JobsHandler, adminAPIKey string, limiter *middleware.RateLimiter) {
	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(limiter.Middleware)

		// Admin-only group
		v1.Group(func(admin chi.Router) {
			admin.Use(middleware.AdminKeyMiddleware(adminAPIKey))

			admin.Post("/admin/sync", jobsHandler.TriggerSync())
			admin.Get("/admin/sync/status", jobsHandler.GetSyncStatus())
		})
	})
}
