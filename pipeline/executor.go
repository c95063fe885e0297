package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	training "github.com/GeneAlphaAI/genealpha-backend-training"
	"github.com/GeneAlphaAI/genealpha-backend-training/backoff"
	"github.com/GeneAlphaAI/genealpha-backend-training/dataset"
	"github.com/GeneAlphaAI/genealpha-backend-training/ext"
	"github.com/GeneAlphaAI/genealpha-backend-training/id"
	"github.com/GeneAlphaAI/genealpha-backend-training/job"
	"github.com/GeneAlphaAI/genealpha-backend-training/middleware"
	"github.com/GeneAlphaAI/genealpha-backend-training/model"
	"github.com/GeneAlphaAI/genealpha-backend-training/track"
)

// Executor runs a single job through middleware and the stage sequence,
// then writes progress, failure classification, and the terminal state.
type Executor struct {
	store      job.Store
	catalog    *model.Catalog
	datasets   *dataset.Resolver
	tracker    track.Tracker
	hub        track.Hub
	extensions *ext.Registry
	backoff    backoff.Strategy
	mw         middleware.Middleware
	logger     *slog.Logger

	publishRetries int
}

// NewExecutor creates an Executor with the given dependencies.
func NewExecutor(
	store job.Store,
	catalog *model.Catalog,
	datasets *dataset.Resolver,
	tracker track.Tracker,
	hub track.Hub,
	extensions *ext.Registry,
	bo backoff.Strategy,
	publishRetries int,
	logger *slog.Logger,
	mws ...middleware.Middleware,
) *Executor {
	return &Executor{
		store:          store,
		catalog:        catalog,
		datasets:       datasets,
		tracker:        tracker,
		hub:            hub,
		extensions:     extensions,
		backoff:        bo,
		mw:             middleware.Chain(mws...),
		logger:         logger,
		publishRetries: publishRetries,
	}
}

// stage pairs a stage function with the failure kind recorded when it
// returns a fatal error.
type stage struct {
	name string
	kind job.FailureKind
	fn   func(ctx context.Context, r *run) error
}

// Execute runs one pending job to a terminal state. It loads a fresh
// snapshot, transitions to running, drives the stage sequence through the
// middleware chain, and records the outcome. Errors from the pipeline
// itself always land on the job record; the returned error reports only
// store-level problems.
func (e *Executor) Execute(ctx context.Context, jobID id.JobID) error {
	j, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if j.State.Terminal() {
		// Cancelled (or otherwise finished) while queued. Nothing to run.
		return nil
	}

	now := time.Now().UTC()
	j.State = job.StateRunning
	j.StartedAt = &now
	j.UpdatedAt = now
	j.Progress = job.Progress{
		Stage:      StageResolveDataset,
		StageIndex: 0,
		StageCount: len(stageNames),
		Message:    "starting",
		UpdatedAt:  now,
	}
	if err := e.store.UpdateJob(ctx, j); err != nil {
		if errors.Is(err, training.ErrInvalidTransition) {
			// Lost a race with cancellation. The record is already terminal.
			return nil
		}
		return err
	}
	e.extensions.EmitJobStarted(ctx, j)

	start := time.Now()
	r := &run{j: j}

	runErr := e.mw(ctx, j, func(ctx context.Context) error {
		return e.runStages(ctx, r)
	})
	elapsed := time.Since(start)

	if runErr != nil {
		return e.finishFailed(ctx, j, runErr, elapsed)
	}
	return e.finishCompleted(ctx, j, elapsed)
}

// runStages drives the stage sequence, checking the context and recording
// progress at each boundary.
func (e *Executor) runStages(ctx context.Context, r *run) error {
	stages := []stage{
		{StageResolveDataset, job.KindData, e.resolveDataset},
		{StageBuildModel, job.KindUnknownModel, e.buildModel},
		{StageFit, job.KindTraining, e.fit},
		{StageEvaluate, job.KindTraining, e.evaluate},
		{StagePublish, job.KindPublish, e.publish},
	}

	for i, s := range stages {
		if err := ctx.Err(); err != nil {
			return e.classify(err, s.name, s.kind)
		}

		stageStart := time.Now()
		if err := s.fn(ctx, r); err != nil {
			return e.classify(err, s.name, s.kind)
		}
		stageElapsed := time.Since(stageStart)

		if err := e.recordProgress(ctx, r.j, i); err != nil {
			return err
		}
		e.extensions.EmitStageCompleted(ctx, r.j, s.name, stageElapsed)
	}
	return nil
}

// classify turns a stage error into the Failure recorded on the job.
// Context errors override the stage's own kind: a deadline is a timeout
// and a cancellation is a cancellation no matter where it surfaced.
func (e *Executor) classify(err error, stageName string, kind job.FailureKind) *job.Failure {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return job.NewFailure(job.KindTimeout, stageName, err)
	case errors.Is(err, context.Canceled):
		return job.NewFailure(job.KindCancelled, stageName, err)
	default:
		return job.NewFailure(kind, stageName, err)
	}
}

// recordProgress persists the completed stage index. The progress write is
// a same-state update; it fails only on store-level problems.
func (e *Executor) recordProgress(ctx context.Context, j *job.Job, index int) error {
	now := time.Now().UTC()
	j.UpdatedAt = now
	j.Progress = job.Progress{
		Stage:      stageNames[index],
		StageIndex: index + 1,
		StageCount: len(stageNames),
		Message:    "stage completed",
		UpdatedAt:  now,
	}
	return e.store.UpdateJob(ctx, j)
}

// finishCompleted marks the job as completed and emits the lifecycle event.
func (e *Executor) finishCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
	now := time.Now().UTC()
	j.State = job.StateCompleted
	j.UpdatedAt = now
	j.FinishedAt = &now

	// The job context may already be cancelled or past its deadline; the
	// terminal write must still land or the record stays running forever.
	if err := e.store.UpdateJob(context.WithoutCancel(ctx), j); err != nil {
		e.logger.Error("failed to update job after success",
			slog.String("job_id", j.ID.String()),
			slog.String("error", err.Error()),
		)
		return err
	}

	e.extensions.EmitJobCompleted(ctx, j, elapsed)
	return nil
}

// finishFailed records the failure on the job. A cancellation failure
// lands in StateCancelled; every other kind lands in StateFailed.
func (e *Executor) finishFailed(ctx context.Context, j *job.Job, runErr error, elapsed time.Duration) error {
	var failure *job.Failure
	if !errors.As(runErr, &failure) {
		// A panic converted by the recover middleware, or a middleware
		// error raised outside a stage.
		failure = e.classify(runErr, j.Progress.Stage, job.KindTraining)
	}

	now := time.Now().UTC()
	j.Err = failure
	j.Result = nil
	j.UpdatedAt = now
	j.FinishedAt = &now

	if failure.Kind == job.KindCancelled {
		j.State = job.StateCancelled
	} else {
		j.State = job.StateFailed
	}

	// Written with cancellation stripped: a cancelled job's own context is
	// exactly what this write runs under.
	if err := e.store.UpdateJob(context.WithoutCancel(ctx), j); err != nil {
		e.logger.Error("failed to update job after failure",
			slog.String("job_id", j.ID.String()),
			slog.String("state", string(j.State)),
			slog.String("error", err.Error()),
		)
		return err
	}

	if j.State == job.StateCancelled {
		e.extensions.EmitJobCancelled(ctx, j)
	} else {
		e.extensions.EmitJobFailed(ctx, j, failure)
	}

	e.logger.Warn("job finished with failure",
		slog.String("job_id", j.ID.String()),
		slog.String("kind", string(failure.Kind)),
		slog.String("stage", failure.Stage),
		slog.Duration("elapsed", elapsed),
	)
	return nil
}

// sleep blocks for d or until the context ends.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
