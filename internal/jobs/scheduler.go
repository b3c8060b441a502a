package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"beer-and-hike/backend/internal/config"
	"beer-and-hike/backend/internal/constants"
	"beer-and-hike/backend/internal/logging"
	"beer-and-hike/backend/internal/models/entities"

	"k8s.io/utils/clock"
)

// ErrSchedulerRunning is returned by Start when the scheduler is already running
var ErrSchedulerRunning = errors.New("scheduler already running")

// SyncRunner runs one full sync
type SyncRunner interface {
	SyncAll(ctx context.Context, trigger string) (*entities.RunReport, error)
}

// DailyScheduler fires SyncAll once a day at a fixed local wall-clock time.
// Firings run inline, so a run that overshoots the next slot delays it instead
// of overlapping.
type DailyScheduler struct {
	runner SyncRunner
	at     config.DailyTime
	clock  clock.Clock

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	nextRun time.Time
}

// NewDailyScheduler creates a scheduler. A nil clock means the real clock.
func NewDailyScheduler(runner SyncRunner, at config.DailyTime, clk clock.Clock) *DailyScheduler {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &DailyScheduler{
		runner: runner,
		at:     at,
		clock:  clk,
	}
}

// NextDailyRun returns the first time strictly after now that falls on at
func NextDailyRun(now time.Time, at config.DailyTime) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour, at.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, at.Hour, at.Minute, 0, 0, now.Location())
	}
	return next
}

// Start launches the scheduling loop. It stops when ctx is done or Stop is called.
func (s *DailyScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return ErrSchedulerRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(loopCtx, s.done)

	logging.Info("Daily sync scheduler started", "daily_at", s.at.String())
	return nil
}

// Stop cancels the loop and waits for it, including any firing in progress
func (s *DailyScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	logging.Info("Daily sync scheduler stopped")
}

// NextRun returns the time of the next scheduled firing, zero when not running
func (s *DailyScheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRun
}

func (s *DailyScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.setNextRun(time.Time{})

	for {
		now := s.clock.Now()
		next := NextDailyRun(now, s.at)
		s.setNextRun(next)

		timer := s.clock.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C():
		}

		s.fire(ctx)
	}
}

func (s *DailyScheduler) fire(ctx context.Context) {
	report, err := s.runner.SyncAll(ctx, constants.SyncTriggerScheduled)
	switch {
	case errors.Is(err, ErrSyncInProgress):
		logging.Warn("Skipping scheduled sync, another run holds the lock")
	case err != nil:
		logging.Error("Scheduled sync could not start", "error", err)
	default:
		logging.Info("Scheduled sync finished", "run_id", report.RunID, "status", report.Status)
	}
}

func (s *DailyScheduler) setNextRun(t time.Time) {
	s.mu.Lock()
	s.nextRun = t
	s.mu.Unlock()
}
