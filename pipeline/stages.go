package pipeline

import (
	"context"
	"fmt"

	"github.com/GeneAlphaAI/genealpha-backend-training/dataset"
	"github.com/GeneAlphaAI/genealpha-backend-training/id"
	"github.com/GeneAlphaAI/genealpha-backend-training/job"
	"github.com/GeneAlphaAI/genealpha-backend-training/model"
)

// Stage names, in execution order. They appear in progress records and in
// Failure.Stage, so they are part of the observable contract.
const (
	StageResolveDataset = "resolve_dataset"
	StageBuildModel     = "build_model"
	StageFit            = "fit"
	StageEvaluate       = "evaluate"
	StagePublish        = "publish"
)

// stageNames lists the full sequence for progress reporting.
var stageNames = []string{
	StageResolveDataset,
	StageBuildModel,
	StageFit,
	StageEvaluate,
	StagePublish,
}

// run carries the intermediate state of one pipeline execution between
// stages. It lives for the duration of a single Execute call and is owned
// by one runner goroutine.
type run struct {
	j       *job.Job
	train   *dataset.Split
	val     *dataset.Split
	trainer model.Trainer
	metrics map[string]float64
}

// resolveDataset turns the dataset reference into train/validation splits.
func (e *Executor) resolveDataset(ctx context.Context, r *run) error {
	train, val, err := e.datasets.Resolve(ctx, r.j.Request.Dataset, r.j.Request.Split, r.j.Request.Params)
	if err != nil {
		return err
	}
	r.train, r.val = train, val
	return nil
}

// buildModel resolves the requested kind against the catalog and constructs
// a fresh trainer. An unregistered kind fails here, not at submission.
func (e *Executor) buildModel(_ context.Context, r *run) error {
	trainer, err := e.catalog.Resolve(r.j.Request.ModelKind)
	if err != nil {
		return err
	}
	r.trainer = trainer
	return nil
}

// fit trains the model on the training split.
func (e *Executor) fit(ctx context.Context, r *run) error {
	return r.trainer.Fit(ctx, r.train, r.j.Request.Params)
}

// evaluate scores the fitted model on the training split and, when one
// exists, the validation split. Metric names carry train_/val_ prefixes.
func (e *Executor) evaluate(_ context.Context, r *run) error {
	r.metrics = make(map[string]float64, 8)

	pred, err := r.trainer.Predict(r.train.Features)
	if err != nil {
		return fmt.Errorf("predict on training split: %w", err)
	}
	for name, v := range model.Score(r.train.Labels, pred) {
		r.metrics["train_"+name] = v
	}

	if r.val != nil && r.val.Len() > 0 {
		pred, err = r.trainer.Predict(r.val.Features)
		if err != nil {
			return fmt.Errorf("predict on validation split: %w", err)
		}
		for name, v := range model.Score(r.val.Labels, pred) {
			r.metrics["val_"+name] = v
		}
	}

	r.j.Result = &job.Result{
		ModelKind: r.j.Request.ModelKind,
		Metrics:   r.metrics,
	}
	return nil
}

// publish records metrics and uploads the serialized artifact, each retried
// per the backoff strategy. It never returns an error: an ultimate failure
// is attached to the job as a warning and emitted as a degraded publish.
func (e *Executor) publish(ctx context.Context, r *run) error {
	req := r.j.Request
	if !req.PublishMetrics && !req.UploadArtifact {
		return nil
	}

	var pubErr error

	if req.PublishMetrics {
		pubErr = e.retry(ctx, func() error {
			return e.tracker.RecordMetrics(ctx, r.j.ID, r.metrics)
		})
	}

	if pubErr == nil && req.UploadArtifact {
		var artifact []byte
		artifact, pubErr = r.trainer.Serialize()
		if pubErr == nil {
			pubErr = e.retry(ctx, func() error {
				ref, err := e.hub.UploadArtifact(ctx, r.j.ID, req.ModelKind, artifact)
				if err != nil {
					return err
				}
				r.j.Result.ArtifactID = id.NewArtifactID()
				r.j.Result.ArtifactRef = ref
				return nil
			})
		}
	}

	if pubErr != nil {
		r.j.Warning = job.NewFailure(job.KindPublish, StagePublish, pubErr)
		e.extensions.EmitPublishDegraded(ctx, r.j, pubErr)
	}
	return nil
}

// retry runs fn up to 1+publishRetries times, sleeping per the backoff
// strategy between attempts. It stops early when the context ends so a
// degraded publish cannot outlive the job budget.
func (e *Executor) retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= e.publishRetries; attempt++ {
		if attempt > 0 {
			if waitErr := sleep(ctx, e.backoff.Delay(attempt)); waitErr != nil {
				return err
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
