package training

import "errors"

var (
	// Store errors.
	ErrNoStore = errors.New("training: no store configured")

	// Not found errors.
	ErrJobNotFound = errors.New("training: job not found")

	// Conflict errors.
	ErrJobExists = errors.New("training: job already exists")

	// Submission errors. All surface synchronously from Submit, before
	// any job record exists. ErrOverloaded is the backpressure signal;
	// ErrNotRunning means the scheduler was never started or already
	// stopped and retrying without a lifecycle change is pointless.
	ErrInvalidRequest = errors.New("training: invalid request")
	ErrOverloaded     = errors.New("training: submission capacity exhausted")
	ErrNotRunning     = errors.New("training: scheduler not running")

	// State errors.
	ErrInvalidTransition = errors.New("training: invalid state transition")

	// Capability errors.
	ErrUnknownModelKind = errors.New("training: unknown model kind")
	ErrDataset          = errors.New("training: dataset unresolvable")
)
