package job

import (
	"context"

	"github.com/GeneAlphaAI/genealpha-backend-training/id"
)

// ListOpts controls filtering and pagination for job list queries.
type ListOpts struct {
	// State filters by job state. Empty means all states.
	State State
	// Limit is the maximum number of jobs to return. Zero means no limit.
	Limit int
	// Offset is the number of jobs to skip.
	Offset int
}

// Stats aggregates job counts per state.
type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// Store defines the persistence contract for job records. Implementations
// must be safe for one writer per job plus any number of concurrent
// readers, and must never expose a partially written record.
type Store interface {
	// CreateJob persists a new pending job. Fails with ErrJobExists if the
	// id is already present.
	CreateJob(ctx context.Context, j *Job) error

	// GetJob returns a snapshot of a job by ID, or ErrJobNotFound.
	GetJob(ctx context.Context, jobID id.JobID) (*Job, error)

	// UpdateJob atomically replaces an existing record. Fails with
	// ErrJobNotFound if absent, or ErrInvalidTransition if the state
	// change violates the job state machine (terminal states have no
	// outgoing transitions).
	UpdateJob(ctx context.Context, j *Job) error

	// ListJobs returns a point-in-time snapshot ordered newest-first by
	// creation time, optionally filtered by state.
	ListJobs(ctx context.Context, opts ListOpts) ([]*Job, error)

	// Stats returns aggregate counts per state plus the total.
	Stats(ctx context.Context) (Stats, error)
}
