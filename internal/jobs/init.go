package jobs

import (
	"beer-and-hike/backend/internal/common"
	"beer-and-hike/backend/internal/config"
	"beer-and-hike/backend/internal/db/repositories"
	"beer-and-hike/backend/internal/metrics"
	"beer-and-hike/backend/internal/providers"

	"gorm.io/gorm"
)

// Container holds the sync jobs wired for this process
type Container struct {
	TrailSync   *TrailSyncJob
	BrewerySync *BrewerySyncJob
	SyncAll     *SyncAllJob
	Scheduler   *DailyScheduler
}

// InitializeJobs wires providers, repositories and jobs. Nothing is started;
// callers start Scheduler when scheduled syncing is enabled.
func InitializeJobs(
	cfg *config.Config,
	db *gorm.DB,
	cache common.CacheInterface,
	lock common.RunLock,
	metricsReg *metrics.MetricsRegistry,
) *Container {
	// each upstream is paced on its own
	trailProvider := providers.NewNPSTrailsProvider(
		cfg.NPSTrailsAPIURL,
		cfg.UpstreamTimeout,
		providers.NewUpstreamLimiter(cfg.UpstreamRPS),
	)
	breweryProvider := providers.NewOpenBreweryProvider(
		cfg.OpenBreweryAPIURL,
		cfg.UpstreamTimeout,
		providers.NewUpstreamLimiter(cfg.UpstreamRPS),
	)

	trailSync := NewTrailSyncJob(trailProvider, repositories.NewTrailRepo(db), metricsReg)
	brewerySync := NewBrewerySyncJob(breweryProvider, repositories.NewBreweryRepo(db), metricsReg)

	// trails first, then breweries
	syncAll := NewSyncAllJob(lock, cache, metricsReg, cfg.SyncLockTTL, trailSync, brewerySync)

	return &Container{
		TrailSync:   trailSync,
		BrewerySync: brewerySync,
		SyncAll:     syncAll,
		Scheduler:   NewDailyScheduler(syncAll, cfg.SyncDailyAt, nil),
	}
}
