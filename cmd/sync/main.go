package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"beer-and-hike/backend/internal/common"
	"beer-and-hike/backend/internal/config"
	"beer-and-hike/backend/internal/constants"
	"beer-and-hike/backend/internal/db"
	"beer-and-hike/backend/internal/jobs"
	"beer-and-hike/backend/internal/logging"
	"beer-and-hike/backend/internal/metrics"
	"beer-and-hike/backend/internal/models/entities"

	"github.com/prometheus/client_golang/prometheus"
)

// sync runs SyncAll once and exits.
// Exit codes: 0 success, 1 partial failure, 2 could not run.
func main() {
	ensureSchema := flag.Bool("ensure-schema", true, "create the PostGIS schema before syncing")
	flag.Parse()

	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Printf("❌ Invalid configuration: %v", err)
		os.Exit(2)
	}

	if err := logging.Init(cfg.AppEnv); err != nil {
		log.Printf("❌ Failed to initialize logger: %v", err)
		os.Exit(2)
	}

	os.Exit(run(cfg, *ensureSchema))
}

func run(cfg *config.Config, ensureSchema bool) int {
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sqlDB, gormDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logging.Error("Failed to connect to Postgres", "error", err)
		return 2
	}
	defer sqlDB.Close()

	if ensureSchema {
		if err := db.EnsureSchema(gormDB); err != nil {
			logging.Error("Failed to ensure schema", "error", err)
			return 2
		}
	}

	cache, lock, err := common.InitCacheAndLock(cfg)
	if err != nil {
		logging.Error("Failed to initialize cache", "error", err)
		return 2
	}
	defer cache.Close()

	container := jobs.InitializeJobs(cfg, gormDB, cache, lock, metrics.NewMetricsRegistry(prometheus.NewRegistry()))

	start := time.Now()
	report, err := container.SyncAll.SyncAll(ctx, constants.SyncTriggerCLI)
	if err != nil {
		logging.Error("Sync did not run", "error", err)
		return 2
	}

	for _, res := range report.Results {
		logging.Info("Source summary",
			"source", res.Source,
			"status", res.Status,
			"written", res.Written,
			"rejected", res.Rejected,
			"store_failures", res.StoreFailures,
			"pages", res.Pages,
			"capped", res.Capped,
			"error", res.LastError,
		)
	}
	logging.Info("Sync finished",
		"run_id", report.RunID,
		"status", report.Status,
		"written", report.Written(),
		"elapsed", time.Since(start).Truncate(time.Millisecond).String(),
	)

	return exitCode(report)
}

// exitCode is 0 only when every source fully synced
func exitCode(report *entities.RunReport) int {
	if report.Status != entities.SyncStatusSuccess {
		return 1
	}
	return 0
}
