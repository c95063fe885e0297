// Package track defines the external publishing collaborators: a Tracker
// receives evaluation metrics for a finished job, and a Hub receives the
// serialized model artifact. Both are best effort from the pipeline's point
// of view; errors surface as a warning on the job, never as a failure.
package track
