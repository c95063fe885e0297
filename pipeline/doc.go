// Package pipeline provides the training execution engine — an Executor
// that runs one job through the fixed stage sequence inside a middleware
// chain, records progress after each stage, and writes the terminal state.
//
// Stages run in order: resolve_dataset, build_model, fit, evaluate,
// publish. The first three fail the job on error; evaluate computes the
// metric set; publish is best effort and at worst attaches a warning to a
// completed job. Cancellation and timeouts are honored at stage
// boundaries.
package pipeline
