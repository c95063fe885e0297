// Package ext defines the extension system for the training service.
//
// Extensions are notified of lifecycle events and can react to them —
// recording metrics, emitting webhooks, writing audit logs, etc.
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
//	    log.Printf("job %s completed in %s", j.ID, elapsed)
//	    return nil
//	}
//
// # Job Lifecycle Hooks
//
//   - [JobQueued] — job was admitted and is waiting for a runner
//   - [JobStarted] — a runner began executing the job
//   - [StageCompleted] — one pipeline stage finished
//   - [JobCompleted] — job finished successfully
//   - [JobFailed] — job failed terminally
//   - [JobCancelled] — job was cancelled by the caller
//   - [PublishDegraded] — metrics/artifact publish failed on a completed job
//
// # Other Hooks
//
//   - [Shutdown] — the service is shutting down gracefully
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface. Hook errors are logged and
// never propagated to the pipeline.
package ext
