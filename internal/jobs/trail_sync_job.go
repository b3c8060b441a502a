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

// TrailPageFetcher returns one page of normalized trails
type TrailPageFetcher interface {
	FetchPage(ctx context.Context, offset, limit int) (*providers.TrailPage, error)
}

// TrailStore persists one trail
type TrailStore interface {
	Upsert(ctx context.Context, trail *gorm.Trail) error
}

// TrailSyncJob pages through the NPS trails feature service and upserts every usable trail
type TrailSyncJob struct {
	fetcher  TrailPageFetcher
	store    TrailStore
	metrics  *metrics.MetricsRegistry
	pageSize int
}

// NewTrailSyncJob creates a new trail sync job instance
func NewTrailSyncJob(fetcher TrailPageFetcher, store TrailStore, metricsReg *metrics.MetricsRegistry) *TrailSyncJob {
	return &TrailSyncJob{
		fetcher:  fetcher,
		store:    store,
		metrics:  metricsReg,
		pageSize: providers.NPSPageSize,
	}
}

func (j *TrailSyncJob) Source() string {
	return constants.SourceNPSTrails
}

// Run reads offset pages until one comes back empty or a page request fails.
// A failed page ends the run; the next run starts again at offset 0.
func (j *TrailSyncJob) Run(ctx context.Context) (result entities.SyncResult) {
	log := logging.WithSource(constants.SourceNPSTrails)
	result = entities.SyncResult{
		Source:    constants.SourceNPSTrails,
		StartedAt: time.Now(),
	}
	log.Infow("Starting trail sync", "page_size", j.pageSize)

	defer func() {
		if r := recover(); r != nil {
			log.Errorw("Trail sync panicked", "panic", r, "written", result.Written)
			result.Fail(fmt.Errorf("trail sync panicked: %v", r))
		}
		result.Finish(time.Now())
		recordConnectorResult(j.metrics, constants.JobNameTrailSync, result)
		log.Infow("Completed trail sync",
			"status", result.Status,
			"written", result.Written,
			"rejected", result.Rejected,
			"store_failures", result.StoreFailures,
			"pages", result.Pages,
			"duration", result.Duration.Truncate(time.Millisecond).String(),
		)
	}()

	offset := 0
	for {
		page, err := j.fetcher.FetchPage(ctx, offset, j.pageSize)
		if err != nil {
			code := providers.ErrorCode(err)
			log.Warnw("Trail page fetch failed, ending run", "offset", offset, "code", code, "error", err)
			j.metrics.SyncPageFailures.WithLabelValues(constants.SourceNPSTrails, code).Inc()
			result.Fail(fmt.Errorf("trails page at offset %d: %w", offset, err))
			return result
		}

		if page.FeatureCount == 0 {
			log.Debugw("Empty trail page, reached end", "offset", offset)
			return result
		}
		result.Pages++
		j.metrics.SyncPagesFetched.WithLabelValues(constants.SourceNPSTrails).Inc()

		for _, rej := range page.Rejected {
			log.Debugw("Trail feature rejected", "offset", offset, "reason", rej.Reason, "detail", rej.Detail)
		}
		result.Rejected += len(page.Rejected)
		j.metrics.SyncRecordsRejected.WithLabelValues(constants.SourceNPSTrails).Add(float64(len(page.Rejected)))

		written := 0
		for _, trail := range page.Trails {
			if err := j.store.Upsert(ctx, trail); err != nil {
				log.Errorw("Failed to upsert trail", "external_id", trail.ExternalID, "offset", offset, "error", err)
				result.StoreFailures++
				result.Fail(err)
				j.metrics.SyncStoreFailures.WithLabelValues(constants.SourceNPSTrails).Inc()
				continue
			}
			written++
			result.Written++
			j.metrics.SyncRecordsWritten.WithLabelValues(constants.SourceNPSTrails).Inc()
		}

		log.Debugw("Processed trail page",
			"offset", offset,
			"features", page.FeatureCount,
			"written", written,
			"rejected", len(page.Rejected),
		)

		offset += page.FeatureCount
	}
}

// recordConnectorResult updates the terminal metrics of one connector run
func recordConnectorResult(m *metrics.MetricsRegistry, jobName string, result entities.SyncResult) {
	m.SyncRunsTotal.WithLabelValues(result.Source, string(result.Status)).Inc()
	m.SyncJobDuration.WithLabelValues(jobName).Observe(result.Duration.Seconds())
	if result.OK() {
		m.SyncLastSuccess.WithLabelValues(result.Source).Set(float64(result.StartedAt.Add(result.Duration).Unix()))
	}
}
