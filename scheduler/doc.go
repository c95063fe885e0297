// Package scheduler provides the orchestrator: admission control for new
// jobs and a pool of runner goroutines that execute them.
//
// Admission is a bounded FIFO: at most Concurrency+QueueDepth jobs may be
// non-terminal at once. A submission beyond that is rejected with
// ErrOverloaded before any job record is created, so an overloaded service
// leaves no trace of the rejected request. Admitted jobs wait in order and
// each runner executes one job at a time.
//
// Cancellation is cooperative. Cancelling a queued job marks it cancelled
// in the store and the runner skips it on dequeue; cancelling a running
// job cancels its context, which the pipeline honors at the next stage
// boundary.
package scheduler
