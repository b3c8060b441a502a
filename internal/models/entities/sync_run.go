package entities

import (
	"time"
)

// SyncStatus is the terminal state of a connector run or a whole sync
type SyncStatus string

const (
	SyncStatusSuccess        SyncStatus = "success"
	SyncStatusPartialFailure SyncStatus = "partial_failure"
)

// SyncResult is the outcome of one connector run.
// Success means the upstream was read to its natural end (or the page cap)
// with no page failure and no store failure.
type SyncResult struct {
	Source        string        `json:"source"`
	Status        SyncStatus    `json:"status"`
	Written       int           `json:"written"`
	Rejected      int           `json:"rejected"`
	StoreFailures int           `json:"store_failures"`
	Pages         int           `json:"pages"`
	Capped        bool          `json:"capped,omitempty"`
	LastErr       error         `json:"-"`
	LastError     string        `json:"last_error,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration_ns"`
}

// Fail marks the result as a partial failure caused by err
func (r *SyncResult) Fail(err error) {
	r.Status = SyncStatusPartialFailure
	r.LastErr = err
	if err != nil {
		r.LastError = err.Error()
	}
}

// Finish settles the status once the connector loop has exited
func (r *SyncResult) Finish(now time.Time) {
	if r.Status == "" {
		r.Status = SyncStatusSuccess
	}
	r.Duration = now.Sub(r.StartedAt)
}

// OK reports whether the run fully synced
func (r SyncResult) OK() bool {
	return r.Status == SyncStatusSuccess
}

// RunReport aggregates the connector results of one SyncAll invocation
type RunReport struct {
	RunID      string       `json:"run_id"`
	Trigger    string       `json:"trigger"`
	Status     SyncStatus   `json:"status"`
	Results    []SyncResult `json:"results"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Written sums records written across connectors
func (r RunReport) Written() int {
	total := 0
	for _, res := range r.Results {
		total += res.Written
	}
	return total
}

// Settle derives the overall status from the connector results
func (r *RunReport) Settle(now time.Time) {
	r.FinishedAt = now
	r.Status = SyncStatusSuccess
	for _, res := range r.Results {
		if !res.OK() {
			r.Status = SyncStatusPartialFailure
			return
		}
	}
}
