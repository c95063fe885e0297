// Package engine wires the training subsystems together and provides the
// primary application-level API for submitting and tracking jobs.
//
// The engine package exists to break a fundamental import cycle: the root
// training package defines Entity (imported by job, dataset, etc.) and
// therefore cannot import those packages back. Engine sits above all
// subsystem packages and below the application layer.
//
// # Building an Engine
//
//	svc, err := training.New(
//	    training.WithStore(memory.New()),
//	    training.WithConcurrency(4),
//	)
//
//	eng, err := engine.Build(svc,
//	    engine.WithCatalog(model.DefaultCatalog()),
//	    engine.WithDatasetResolver(dataset.DefaultResolver()),
//	    engine.WithTracker(track.NewLogTracker(nil)),
//	    engine.WithLimitConfig(limit.Config{
//	        Kind:           "random_forest",
//	        MaxConcurrency: 2,
//	    }),
//	)
//
// # Submitting Work
//
//	jobID, err := eng.Submit(ctx, job.Request{
//	    ModelKind: "linear_regression",
//	    Dataset:   "sample",
//	})
//
//	j, err := eng.Await(ctx, jobID) // poll until terminal
//
// # Options
//
//   - [WithCatalog] — set the model catalog (default: built-in regressors)
//   - [WithDatasetResolver] — set the dataset resolver
//   - [WithTracker] / [WithHub] — set the publish collaborators
//   - [WithExtension] — register a lifecycle extension
//   - [WithMiddleware] — add a middleware to the execution chain
//   - [WithBackoff] — set the publish retry backoff strategy
//   - [WithLimitConfig] — configure per-kind rate limits and concurrency
//   - [WithTracerProvider] / [WithMeterProvider] — OpenTelemetry providers
package engine
