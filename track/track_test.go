package track_test

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/GeneAlphaAI/genealpha-backend-training/id"
	"github.com/GeneAlphaAI/genealpha-backend-training/track"
)

func TestLogTracker(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	tracker := track.NewLogTracker(logger)

	jobID := id.NewJobID()
	err := tracker.RecordMetrics(context.Background(), jobID, map[string]float64{
		"train_mse": 0.05,
		"val_r2":    0.93,
	})
	if err != nil {
		t.Fatalf("RecordMetrics: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"metrics recorded", jobID.String(), "train_mse", "val_r2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestDirHub(t *testing.T) {
	t.Parallel()

	hub, err := track.NewDirHub(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirHub: %v", err)
	}

	jobID := id.NewJobID()
	payload := []byte("model weights")
	ref, err := hub.UploadArtifact(context.Background(), jobID, "linear_regression", payload)
	if err != nil {
		t.Fatalf("UploadArtifact: %v", err)
	}

	if !strings.Contains(ref, jobID.String()) || !strings.HasSuffix(ref, ".bin") {
		t.Fatalf("ref = %q", ref)
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "model weights" {
		t.Fatalf("artifact content = %q", data)
	}
}

func TestDirHubCancelledContext(t *testing.T) {
	t.Parallel()

	hub, err := track.NewDirHub(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirHub: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := hub.UploadArtifact(ctx, id.NewJobID(), "k", nil); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestNops(t *testing.T) {
	t.Parallel()

	if err := (track.NopTracker{}).RecordMetrics(context.Background(), id.NewJobID(), nil); err != nil {
		t.Fatalf("NopTracker: %v", err)
	}
	ref, err := (track.NopHub{}).UploadArtifact(context.Background(), id.NewJobID(), "k", nil)
	if err != nil || ref != "" {
		t.Fatalf("NopHub: ref=%q err=%v", ref, err)
	}
}
