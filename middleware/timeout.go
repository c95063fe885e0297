package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/GeneAlphaAI/genealpha-backend-training/job"
)

// Timeout returns middleware that enforces a per-job execution budget.
// A non-zero Request.Timeout overrides def; a zero def with a zero request
// timeout leaves the context unbounded. When the deadline is exceeded the
// context is cancelled and the pipeline returns context.DeadlineExceeded.
func Timeout(logger *slog.Logger, def time.Duration) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		budget := def
		if j.Request.Timeout > 0 {
			budget = j.Request.Timeout
		}
		if budget > 0 {
			logger.Debug("job budget set",
				slog.String("job_id", j.ID.String()),
				slog.Duration("timeout", budget),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, budget)
			defer cancel()
		}
		return next(ctx)
	}
}
