package jobs

import (
	"context"
	"fmt"
	"time"

	"beer-and-hike/backend/internal/constants"
	"beer-and-hike/backend/internal/logging"
	"beer-and-hike/backend/internal/metrics"
	"beer-and-hike/backend/internal/models/entities"
	"beer-and-hike/backend/internal/models/gorm"
	"beer-and-hike/backend/internal/providers"
)

// BreweryPageFetcher returns one 1-indexed page of normalized breweries
type BreweryPageFetcher interface {
	FetchPage(ctx context.Context, page, perPage int) (*providers.BreweryPage, error)
}

// BreweryStore persists one brewery
type BreweryStore interface {
	Upsert(ctx context.Context, brewery *gorm.Brewery) error
}

// BrewerySyncJob pages through Open Brewery DB, at most maxPages per run
type BrewerySyncJob struct {
	fetcher  BreweryPageFetcher
	store    BreweryStore
	metrics  *metrics.MetricsRegistry
	perPage  int
	maxPages int
}

// NewBrewerySyncJob creates a new brewery sync job instance
func NewBrewerySyncJob(fetcher BreweryPageFetcher, store BreweryStore, metricsReg *metrics.MetricsRegistry) *BrewerySyncJob {
	return &BrewerySyncJob{
		fetcher:  fetcher,
		store:    store,
		metrics:  metricsReg,
		perPage:  providers.BreweryPageSize,
		maxPages: providers.BreweryMaxPages,
	}
}

func (j *BrewerySyncJob) Source() string {
	return constants.SourceOpenBreweryDB
}

// Run reads pages 1..maxPages, stopping early on an empty page or a failed request
func (j *BrewerySyncJob) Run(ctx context.Context) (result entities.SyncResult) {
	log := logging.WithSource(constants.SourceOpenBreweryDB)
	result = entities.SyncResult{
		Source:    constants.SourceOpenBreweryDB,
		StartedAt: time.Now(),
	}
	log.Infow("Starting brewery sync", "per_page", j.perPage, "max_pages", j.maxPages)

	defer func() {
		if r := recover(); r != nil {
			log.Errorw("Brewery sync panicked", "panic", r, "written", result.Written)
			result.Fail(fmt.Errorf("brewery sync panicked: %v", r))
		}
		result.Finish(time.Now())
		recordConnectorResult(j.metrics, constants.JobNameBrewerySync, result)
		log.Infow("Completed brewery sync",
			"status", result.Status,
			"written", result.Written,
			"rejected", result.Rejected,
			"store_failures", result.StoreFailures,
			"pages", result.Pages,
			"capped", result.Capped,
			"duration", result.Duration.Truncate(time.Millisecond).String(),
		)
	}()

	for page := 1; page <= j.maxPages; page++ {
		listing, err := j.fetcher.FetchPage(ctx, page, j.perPage)
		if err != nil {
			code := providers.ErrorCode(err)
			log.Warnw("Brewery page fetch failed, ending run", "page", page, "code", code, "error", err)
			j.metrics.SyncPageFailures.WithLabelValues(constants.SourceOpenBreweryDB, code).Inc()
			result.Fail(fmt.Errorf("breweries page %d: %w", page, err))
			return result
		}

		if listing.ItemCount == 0 {
			log.Debugw("Empty brewery page, reached end", "page", page)
			return result
		}
		result.Pages++
		j.metrics.SyncPagesFetched.WithLabelValues(constants.SourceOpenBreweryDB).Inc()

		for _, rej := range listing.Rejected {
			log.Debugw("Brewery rejected", "page", page, "reason", rej.Reason, "detail", rej.Detail)
		}
		result.Rejected += len(listing.Rejected)
		j.metrics.SyncRecordsRejected.WithLabelValues(constants.SourceOpenBreweryDB).Add(float64(len(listing.Rejected)))

		written := 0
		for _, brewery := range listing.Breweries {
			if err := j.store.Upsert(ctx, brewery); err != nil {
				log.Errorw("Failed to upsert brewery", "external_id", brewery.ExternalID, "page", page, "error", err)
				result.StoreFailures++
				result.Fail(err)
				j.metrics.SyncStoreFailures.WithLabelValues(constants.SourceOpenBreweryDB).Inc()
				continue
			}
			written++
			result.Written++
			j.metrics.SyncRecordsWritten.WithLabelValues(constants.SourceOpenBreweryDB).Inc()
		}

		log.Debugw("Processed brewery page",
			"page", page,
			"items", listing.ItemCount,
			"written", written,
			"rejected", len(listing.Rejected),
		)
	}

	result.Capped = true
	log.Warnw("Brewery sync stopped at page cap", "max_pages", j.maxPages)
	return result
}
