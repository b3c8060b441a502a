package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"beer-and-hike/backend/internal/common"
	"beer-and-hike/backend/internal/constants"
	"beer-and-hike/backend/internal/logging"
	"beer-and-hike/backend/internal/metrics"
	"beer-and-hike/backend/internal/models/entities"

	"github.com/google/uuid"
)

// ErrSyncInProgress is returned when another SyncAll run holds the run lock
var ErrSyncInProgress = errors.New("sync already in progress")

// reportTTL keeps the last run report around well past the next daily run
const reportTTL = 7 * 24 * time.Hour

// Connector runs one source end to end and reports what it wrote.
// Run never returns an error; failures are carried in the result.
type Connector interface {
	Source() string
	Run(ctx context.Context) entities.SyncResult
}

// SyncAllJob runs every connector in order, one at a time
type SyncAllJob struct {
	connectors []Connector
	lock       common.RunLock
	cache      common.CacheInterface
	metrics    *metrics.MetricsRegistry
	lockTTL    time.Duration

	wg sync.WaitGroup
}

// NewSyncAllJob creates the orchestrator. Connectors run in the given order.
func NewSyncAllJob(
	lock common.RunLock,
	cache common.CacheInterface,
	metricsReg *metrics.MetricsRegistry,
	lockTTL time.Duration,
	connectors ...Connector,
) *SyncAllJob {
	return &SyncAllJob{
		connectors: connectors,
		lock:       lock,
		cache:      cache,
		metrics:    metricsReg,
		lockTTL:    lockTTL,
	}
}

// SyncAll runs all connectors to completion and returns the run report.
// The only errors are ErrSyncInProgress and a failure to reach the lock;
// connector failures are reported in the RunReport.
func (j *SyncAllJob) SyncAll(ctx context.Context, trigger string) (*entities.RunReport, error) {
	runID := uuid.NewString()
	if err := j.acquire(ctx, runID); err != nil {
		return nil, err
	}
	defer j.release(runID)

	return j.run(ctx, runID, trigger), nil
}

// Trigger starts a run in the background and returns its id once the lock is held.
// The run is detached from ctx so it outlives the request that started it.
func (j *SyncAllJob) Trigger(ctx context.Context, trigger string) (string, error) {
	runID := uuid.NewString()
	if err := j.acquire(ctx, runID); err != nil {
		return "", err
	}

	runCtx := context.WithoutCancel(ctx)
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		defer j.release(runID)
		j.run(runCtx, runID, trigger)
	}()

	return runID, nil
}

// Wait blocks until every background run started by Trigger has finished
func (j *SyncAllJob) Wait() {
	j.wg.Wait()
}

// LastReport returns the most recently cached run report
func (j *SyncAllJob) LastReport() (interface{}, bool) {
	return j.cache.Get(string(constants.CachePrefixSyncReport))
}

func (j *SyncAllJob) acquire(ctx context.Context, runID string) error {
	ok, err := j.lock.Acquire(ctx, string(constants.CachePrefixSyncLock), runID, j.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !ok {
		return ErrSyncInProgress
	}
	j.metrics.SyncInProgress.Set(1)
	return nil
}

func (j *SyncAllJob) release(runID string) {
	j.metrics.SyncInProgress.Set(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := j.lock.Release(ctx, string(constants.CachePrefixSyncLock), runID); err != nil {
		logging.Warn("Failed to release sync lock, it will expire on its own",
			"run_id", runID,
			"ttl", j.lockTTL.String(),
			"error", err,
		)
	}
}

func (j *SyncAllJob) run(ctx context.Context, runID, trigger string) *entities.RunReport {
	log := logging.WithRun(runID, trigger)
	report := &entities.RunReport{
		RunID:     runID,
		Trigger:   trigger,
		StartedAt: time.Now(),
		Results:   make([]entities.SyncResult, 0, len(j.connectors)),
	}
	log.Infow("Starting sync run", "connectors", len(j.connectors))

	for _, c := range j.connectors {
		result := runConnector(ctx, c)
		if !result.OK() {
			log.Warnw("Connector finished with failures",
				"source", c.Source(),
				"written", result.Written,
				"error", result.LastError,
			)
		}
		report.Results = append(report.Results, result)
	}

	report.Settle(time.Now())
	j.metrics.SyncJobDuration.WithLabelValues(constants.JobNameSyncAll).Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	j.cache.Set(string(constants.CachePrefixSyncReport), report, reportTTL)

	log.Infow("Completed sync run",
		"status", report.Status,
		"written", report.Written(),
		"duration", report.FinishedAt.Sub(report.StartedAt).Truncate(time.Millisecond).String(),
	)
	return report
}

// runConnector keeps a panicking connector from taking down its siblings
func runConnector(ctx context.Context, c Connector) (result entities.SyncResult) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Connector panicked", "source", c.Source(), "panic", r)
			result = entities.SyncResult{Source: c.Source(), StartedAt: time.Now()}
			result.Fail(fmt.Errorf("%s connector panicked: %v", c.Source(), r))
			result.Finish(time.Now())
		}
	}()
	return c.Run(ctx)
}
