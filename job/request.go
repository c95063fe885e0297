package job

import (
	"fmt"
	"time"

	training "github.com/GeneAlphaAI/genealpha-backend-training"
)

// Params is a free-form hyperparameter bag. Model adapters read from it
// with the typed accessors; unknown keys are ignored by adapters that do
// not understand them.
type Params map[string]any

// Float returns the value under key as a float64, or def when the key is
// absent or not numeric. JSON-decoded numbers arrive as float64; int and
// int64 are accepted for values set programmatically.
func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// Int returns the value under key as an int, or def when absent or not
// numeric.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// Bool returns the value under key as a bool, or def.
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// String returns the value under key as a string, or def.
func (p Params) String(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

// SplitConfig controls how a resolved dataset is divided into features,
// labels, and train/validation subsets.
type SplitConfig struct {
	// TargetColumn names the label column. Empty means the source default.
	TargetColumn string `json:"target_column,omitempty"`

	// FeatureColumns restricts the feature set. Empty means every column
	// except the target.
	FeatureColumns []string `json:"feature_columns,omitempty"`

	// ValidationSplit is the fraction of rows held out for evaluation,
	// in [0, 1). Zero means no validation split: evaluation metrics are
	// simply omitted.
	ValidationSplit float64 `json:"validation_split,omitempty"`

	// Seed drives the shuffle before splitting, so splits are reproducible.
	Seed int64 `json:"seed,omitempty"`
}

// Request is the immutable input describing what to train.
type Request struct {
	// ModelKind selects the trainer from the catalog. It is validated
	// structurally at submission; resolution against registered kinds
	// happens in the build-model stage.
	ModelKind string `json:"model_kind"`

	// Dataset is the dataset reference: a built-in name ("sample"), a
	// local CSV path, or a remote URL.
	Dataset string `json:"dataset"`

	Params Params      `json:"params,omitempty"`
	Split  SplitConfig `json:"split,omitempty"`

	// PublishMetrics records evaluation metrics to the tracking
	// collaborator after a successful fit. UploadArtifact pushes the
	// serialized model to the hub collaborator. Both are best effort:
	// their failure never fails the job.
	PublishMetrics bool `json:"publish_metrics,omitempty"`
	UploadArtifact bool `json:"upload_artifact,omitempty"`

	// Timeout overrides the service-wide job budget. Zero means use the
	// configured default.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Validate checks the request is structurally usable. It deliberately does
// not resolve ModelKind against the catalog — an unregistered kind is a job
// failure, not a submission failure, so callers can observe it through the
// job record.
func (r Request) Validate() error {
	if r.ModelKind == "" {
		return fmt.Errorf("%w: model kind is required", training.ErrInvalidRequest)
	}
	if r.Dataset == "" {
		return fmt.Errorf("%w: dataset reference is required", training.ErrInvalidRequest)
	}
	if r.Split.ValidationSplit < 0 || r.Split.ValidationSplit >= 1 {
		return fmt.Errorf("%w: validation split %v outside [0, 1)", training.ErrInvalidRequest, r.Split.ValidationSplit)
	}
	if r.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", training.ErrInvalidRequest)
	}

	seen := make(map[string]struct{}, len(r.Split.FeatureColumns))
	for _, col := range r.Split.FeatureColumns {
		if col == r.Split.TargetColumn && col != "" {
			return fmt.Errorf("%w: target column %q listed as a feature", training.ErrInvalidRequest, col)
		}
		if _, dup := seen[col]; dup {
			return fmt.Errorf("%w: duplicate feature column %q", training.ErrInvalidRequest, col)
		}
		seen[col] = struct{}{}
	}

	return nil
}
