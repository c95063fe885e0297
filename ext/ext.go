package ext

import (
	"context"
	"time"

	"github.com/GeneAlphaAI/genealpha-backend-training/job"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Job lifecycle hooks
// ──────────────────────────────────────────────────

// JobQueued is called after a job is admitted and queued for execution.
type JobQueued interface {
	OnJobQueued(ctx context.Context, j *job.Job) error
}

// JobStarted is called when a runner begins executing a job.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j *job.Job) error
}

// StageCompleted is called after each pipeline stage finishes.
type StageCompleted interface {
	OnStageCompleted(ctx context.Context, j *job.Job, stage string, elapsed time.Duration) error
}

// JobCompleted is called after a job finishes successfully.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error
}

// JobFailed is called when a job fails terminally.
type JobFailed interface {
	OnJobFailed(ctx context.Context, j *job.Job, err error) error
}

// JobCancelled is called when a job reaches the cancelled state.
type JobCancelled interface {
	OnJobCancelled(ctx context.Context, j *job.Job) error
}

// PublishDegraded is called when metrics or artifact publishing fails on
// an otherwise successful job. The job still completes.
type PublishDegraded interface {
	OnPublishDegraded(ctx context.Context, j *job.Job, err error) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
