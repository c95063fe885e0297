package store

import (
	"context"

	"github.com/GeneAlphaAI/genealpha-backend-training/job"
)

// Store is the aggregate persistence interface. The job registry is the
// only persisted subsystem; a backend adds connectivity and lifecycle on
// top of it.
type Store interface {
	job.Store

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
