package training

import "time"

// Config holds configuration for the Service.
type Config struct {
	// Concurrency is the number of jobs trained concurrently. Each slot is
	// one runner goroutine owned by the scheduler.
	Concurrency int

	// QueueDepth is how many accepted jobs may wait behind the running
	// ones. Submissions beyond Concurrency+QueueDepth fail with
	// ErrOverloaded before a job record is created. Zero means no queue:
	// saturation rejects immediately.
	QueueDepth int

	// JobTimeout is the default wall-clock budget for one job. A request
	// may override it. Zero disables the deadline.
	JobTimeout time.Duration

	// PublishRetries is how many attempts the publish stage makes against
	// the tracking and hub collaborators before attaching a warning.
	PublishRetries int

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:     4,
		QueueDepth:      16,
		JobTimeout:      30 * time.Minute,
		PublishRetries:  3,
		ShutdownTimeout: 30 * time.Second,
	}
}
