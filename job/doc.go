// Package job defines the training job entity, its state machine, and the
// store interface behind the job registry.
//
// # Job Entity
//
// A [Job] represents one training request's lifecycle. It embeds
// [training.Entity] for timestamps, carries the immutable [Request] it was
// created from, and progresses through a state machine:
//
//	pending → running → completed
//	pending → running → failed
//	pending → running → cancelled
//	pending → cancelled
//
// All three right-hand states are terminal: [CanTransition] rejects any
// transition out of them, and stores enforce this on every update.
//
// Fields of note:
//   - Progress: stage name/index written only by the job's single runner
//   - Result: set exactly once, on completion; mutually exclusive with Err
//   - Err: the structured [Failure] identifying the failing stage and kind
//   - Warning: a non-fatal publish failure on an otherwise completed job
//
// # Store
//
// [Store] is the persistence contract for job records. The reference
// implementation is store/memory (process-lifetime retention, no
// eviction); store/redis demonstrates a substitutable durable backend.
package job
