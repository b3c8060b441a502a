package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"beer-and-hike/backend/internal/constants"
	"beer-and-hike/backend/internal/jobs"
	"beer-and-hike/backend/internal/logging"
	"beer-and-hike/backend/internal/middleware"
	"beer-and-hike/backend/internal/models/dtos/responses"
)

// SyncTrigger starts background sync runs and remembers the last report
type SyncTrigger interface {
	Trigger(ctx context.Context, trigger string) (string, error)
	LastReport() (interface{}, bool)
}

// NextRunner reports when the scheduler fires next
type NextRunner interface {
	NextRun() time.Time
}

// SourceCounter counts stored rows for a source tag
type SourceCounter interface {
	CountBySource(ctx context.Context, source string) (int64, error)
}

// JobsHandler handles the admin sync endpoints
type JobsHandler struct {
	sync      SyncTrigger
	scheduler NextRunner
	trails    SourceCounter
	breweries SourceCounter
}

// NewJobsHandler creates a new jobs handler. scheduler may be nil when scheduled syncing is off.
func NewJobsHandler(sync SyncTrigger, scheduler NextRunner, trails, breweries SourceCounter) *JobsHandler {
	return &JobsHandler{
		sync:      sync,
		scheduler: scheduler,
		trails:    trails,
		breweries: breweries,
	}
}

// TriggerSync handles POST /api/v1/admin/sync.
// It answers as soon as the run holds the lock; the run continues in the background.
func (h *JobsHandler) TriggerSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID, err := h.sync.Trigger(r.Context(), constants.SyncTriggerOnDemand)
		switch {
		case errors.Is(err, jobs.ErrSyncInProgress):
			respondWithError(w, http.StatusConflict, "A sync is already running")
			return
		case err != nil:
			logging.Error("Failed to start on-demand sync",
				"request_id", middleware.GetRequestID(r.Context()),
				"error", err,
			)
			respondWithError(w, http.StatusInternalServerError, "Failed to start sync")
			return
		}

		logging.Info("On-demand sync accepted",
			"run_id", runID,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		respondWithSuccess(w, http.StatusAccepted, &responses.SyncTriggerResponse{
			RunID:   runID,
			Trigger: constants.SyncTriggerOnDemand,
		})
	}
}

// GetSyncStatus handles GET /api/v1/admin/sync/status
func (h *JobsHandler) GetSyncStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		resp := &responses.SyncStatusResponse{
			StoredCounts: make(map[string]int64, 2),
		}

		if report, ok := h.sync.LastReport(); ok {
			resp.LastRun = report
		}

		if h.scheduler != nil {
			resp.SchedulerEnabled = true
			if next := h.scheduler.NextRun(); !next.IsZero() {
				resp.NextRun = &next
			}
		}

		counters := map[string]SourceCounter{
			constants.SourceNPSTrails:     h.trails,
			constants.SourceOpenBreweryDB: h.breweries,
		}
		for source, counter := range counters {
			count, err := counter.CountBySource(ctx, source)
			if err != nil {
				logging.Error("Failed to count stored records", "source", source, "error", err)
				respondWithError(w, http.StatusServiceUnavailable, "Spatial store unavailable")
				return
			}
			resp.StoredCounts[source] = count
		}

		respondWithSuccess(w, http.StatusOK, resp)
	}
}
