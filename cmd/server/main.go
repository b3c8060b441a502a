package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"beer-and-hike/backend/internal/api"
	"beer-and-hike/backend/internal/common"
	"beer-and-hike/backend/internal/config"
	"beer-and-hike/backend/internal/db"
	"beer-and-hike/backend/internal/db/repositories"
	"beer-and-hike/backend/internal/jobs"
	"beer-and-hike/backend/internal/logging"
	"beer-and-hike/backend/internal/metrics"
	"beer-and-hike/backend/internal/routes"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	if err := logging.Init(cfg.AppEnv); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("Beer & Hike backend starting up",
		"environment", cfg.AppEnv,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	if err := run(cfg); err != nil {
		logging.Fatal("Server exited with error", "error", err)
	}
	logging.Info("Server shutdown complete")
}

// newServerMux serves /metrics outside of the Chi router and everything else through it
func newServerMux(router http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", router)
	return mux
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sqlDB, gormDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	logging.Info("Connected to Postgres")

	if err := db.EnsureSchema(gormDB); err != nil {
		return err
	}

	cache, lock, err := common.InitCacheAndLock(cfg)
	if err != nil {
		return err
	}
	defer cache.Close()

	metricsReg := metrics.NewMetricsRegistry(prometheus.DefaultRegisterer)
	container := jobs.InitializeJobs(cfg, gormDB, cache, lock, metricsReg)

	var nextRunner api.NextRunner
	if cfg.SyncEnabled {
		nextRunner = container.Scheduler
	}
	jobsHandler := api.NewJobsHandler(
		container.SyncAll,
		nextRunner,
		repositories.NewTrailRepo(gormDB),
		repositories.NewBreweryRepo(gormDB),
	)

	router := routes.RegisterRoutes(routes.RouterDeps{
		DB:          sqlDB,
		Cache:       cache,
		Metrics:     metricsReg,
		Jobs:        jobsHandler,
		AdminAPIKey: cfg.AdminAPIKey,
		UpSince:     time.Now(),
	})
	if cfg.AdminAPIKey == "" {
		logging.Warn("ADMIN_API_KEY not set, admin sync endpoints are disabled")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newServerMux(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logging.Info("Server starting", "port", cfg.Port, "environment", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	if cfg.SyncEnabled {
		if err := container.Scheduler.Start(gctx); err != nil {
			return err
		}
		logging.Info("Scheduled sync enabled",
			"daily_at", cfg.SyncDailyAt.String(),
			"next_run", container.Scheduler.NextRun(),
		)
	} else {
		logging.Info("Scheduled sync disabled, on-demand trigger only")
	}

	g.Go(func() error {
		<-gctx.Done()
		logging.Info("Shutting down server...")

		container.Scheduler.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		// let an on-demand run finish writing, bounded by the same timeout
		done := make(chan struct{})
		go func() {
			container.SyncAll.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			logging.Warn("Shutdown timeout reached with a sync still running")
		}
		return nil
	})

	return g.Wait()
}
