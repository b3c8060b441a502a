package routes

import (
	"net/http"
	"time"

	"beer-and-hike/backend/internal/api"
	"beer-and-hike/backend/internal/common"
	"beer-and-hike/backend/internal/logging"
	"beer-and-hike/backend/internal/metrics"
	"beer-and-hike/backend/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
)

// RouterDeps are the collaborators the HTTP surface needs
type RouterDeps struct {
	DB          *sqlx.DB
	Cache       common.CacheInterface
	Metrics     *metrics.MetricsRegistry
	Jobs        *api.JobsHandler
	AdminAPIKey string
	UpSince     time.Time
}

func RegisterRoutes(deps RouterDeps) http.Handler {
	// initialize Chi router
	r := chi.NewRouter()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.MetricsMiddleware(deps.Metrics))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	logging.Info("Router initialized with metrics and logging middleware")
	// health check
	r.Get("/healthCheck", api.HealthCheckHandler(deps.DB, deps.Cache, deps.UpSince))

	// 1 request/sec per client, burst up to 5
	RegisterAPIRoutes(r, deps.Jobs, deps.AdminAPIKey, middleware.NewRateLimiter(1, 5))

	return r
}
