package responses

import "time"

// SyncTriggerResponse is returned when an on-demand sync was accepted
type SyncTriggerResponse struct {
	RunID   string `json:"run_id"`
	Trigger string `json:"trigger"`
}

// SyncStatusResponse describes the last run and what is stored now
type SyncStatusResponse struct {
	LastRun          interface{}      `json:"last_run,omitempty"`
	SchedulerEnabled bool             `json:"scheduler_enabled"`
	NextRun          *time.Time       `json:"next_run,omitempty"`
	StoredCounts     map[string]int64 `json:"stored_counts"`
}
