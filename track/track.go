package track

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/GeneAlphaAI/genealpha-backend-training/id"
)

// Tracker records evaluation metrics for a job with an external experiment
// tracking system.
type Tracker interface {
	RecordMetrics(ctx context.Context, jobID id.JobID, metrics map[string]float64) error
}

// Hub stores a serialized model artifact and returns an external reference
// for it (a URL, path, or opaque handle).
type Hub interface {
	UploadArtifact(ctx context.Context, jobID id.JobID, kind string, artifact []byte) (string, error)
}

// NopTracker discards metrics.
type NopTracker struct{}

func (NopTracker) RecordMetrics(context.Context, id.JobID, map[string]float64) error { return nil }

// NopHub discards artifacts.
type NopHub struct{}

func (NopHub) UploadArtifact(context.Context, id.JobID, string, []byte) (string, error) {
	return "", nil
}

// LogTracker writes metrics to a structured logger. Useful as a default in
// development and as the example configuration.
type LogTracker struct {
	logger *slog.Logger
}

// NewLogTracker returns a tracker logging at info level. A nil logger means
// slog.Default().
func NewLogTracker(logger *slog.Logger) *LogTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTracker{logger: logger}
}

func (t *LogTracker) RecordMetrics(ctx context.Context, jobID id.JobID, metrics map[string]float64) error {
	attrs := make([]any, 0, len(metrics)+1)
	attrs = append(attrs, slog.String("job_id", jobID.String()))
	for name, value := range metrics {
		attrs = append(attrs, slog.Float64(name, value))
	}
	t.logger.InfoContext(ctx, "metrics recorded", attrs...)
	return nil
}

// DirHub stores artifacts as files under a local directory, named by the
// model kind and owning job. The returned reference is the file path.
type DirHub struct {
	dir string
}

// NewDirHub creates the directory if needed.
func NewDirHub(dir string) (*DirHub, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("track: create artifact dir: %w", err)
	}
	return &DirHub{dir: dir}, nil
}

func (h *DirHub) UploadArtifact(ctx context.Context, jobID id.JobID, kind string, artifact []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(h.dir, fmt.Sprintf("%s_%s.bin", kind, jobID))
	if err := os.WriteFile(path, artifact, 0o644); err != nil {
		return "", fmt.Errorf("track: write artifact: %w", err)
	}
	return path, nil
}
