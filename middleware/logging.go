package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/GeneAlphaAI/genealpha-backend-training/job"
)

// Logging returns middleware that logs pipeline start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		logger.Info("training started",
			slog.String("job_id", j.ID.String()),
			slog.String("model_kind", j.Request.ModelKind),
			slog.String("dataset", j.Request.Dataset),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("training failed",
				slog.String("job_id", j.ID.String()),
				slog.String("model_kind", j.Request.ModelKind),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("training completed",
				slog.String("job_id", j.ID.String()),
				slog.String("model_kind", j.Request.ModelKind),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
