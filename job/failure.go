package job

import "fmt"

// FailureKind classifies what went wrong with a job.
type FailureKind string

const (
	// KindData means the dataset reference could not be resolved into
	// usable feature/label sets (stage resolve_dataset).
	KindData FailureKind = "data_error"
	// KindUnknownModel means no trainer is registered for the requested
	// model kind (stage build_model).
	KindUnknownModel FailureKind = "unknown_model_kind"
	// KindTraining means the trainer's fit operation failed (stage fit).
	KindTraining FailureKind = "training_error"
	// KindTimeout means the job exceeded its wall-clock budget.
	KindTimeout FailureKind = "timeout"
	// KindCancelled means cooperative cancellation was honored.
	KindCancelled FailureKind = "cancelled"
	// KindPublish marks a non-fatal tracking/upload failure attached as a
	// warning to a completed job.
	KindPublish FailureKind = "publish_warning"
)

// Failure is the structured error captured on a job record. Errors after
// dispatch are never returned across the async boundary; they always land
// here so pollers can distinguish the failing stage and cause.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Stage   string      `json:"stage,omitempty"`
	Message string      `json:"message"`
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Stage == "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	}
	return fmt.Sprintf("%s at stage %s: %s", f.Kind, f.Stage, f.Message)
}

// NewFailure builds a Failure from an underlying error.
func NewFailure(kind FailureKind, stage string, err error) *Failure {
	return &Failure{Kind: kind, Stage: stage, Message: err.Error()}
}
