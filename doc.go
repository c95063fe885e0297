// Package training provides an embeddable orchestration engine for
// machine-learning training jobs. It accepts a training request, tracks it
// as a job, runs a fixed pipeline (resolve dataset, build model, fit,
// evaluate, publish) on a background runner, and exposes job state to any
// number of concurrent pollers.
//
// Training is designed as a library, not a service. Import it, configure a
// store and a model catalog, and submit requests:
//
//	svc, err := training.New(
//	    training.WithStore(memory.New()),
//	    training.WithConcurrency(4),
//	)
//
//	eng, err := engine.Build(svc,
//	    engine.WithCatalog(model.DefaultCatalog()),
//	    engine.WithDatasetResolver(dataset.DefaultResolver()),
//	)
//
//	jobID, err := eng.Submit(ctx, job.Request{
//	    ModelKind: "linear_regression",
//	    Dataset:   "sample",
//	})
//
// # Architecture
//
// Each subsystem lives in its own package: job records and their state
// machine in job, capability adapters in model and dataset, the stage
// pipeline in pipeline, admission and dispatch in scheduler, and storage
// backends under store. The engine package sits above all of them and is
// the API surface an HTTP layer (out of scope here) would call.
//
// All entity IDs are TypeIDs — prefix-qualified, K-sortable, UUIDv7-based.
//
// Job records are retained for the process lifetime when the memory store
// is used; the store is an explicit interface so a durable backend can be
// substituted without touching the scheduler or the executor.
package training
