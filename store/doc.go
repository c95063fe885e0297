// Package store defines the aggregate persistence interface.
//
// The job registry (job.Store) is the persisted subsystem; the composite
// [Store] adds connectivity checks and lifecycle. A backend need only
// implement Store to serve the whole service.
//
// # Available Backends
//
//   - store/memory — in-memory store, the default for a single process
//   - store/redis — Redis backend for registries that survive restarts
//
// # Usage
//
//	import "github.com/GeneAlphaAI/genealpha-backend-training/store/memory"
//
//	svc, err := training.New(training.WithStore(memory.New()))
package store
