package ext_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/GeneAlphaAI/genealpha-backend-training/ext"
	"github.com/GeneAlphaAI/genealpha-backend-training/job"
)

// lifecycleExt implements every job lifecycle hook and records calls.
type lifecycleExt struct {
	name  string
	calls []string
	err   error
}

func (e *lifecycleExt) Name() string { return e.name }

func (e *lifecycleExt) record(hook string) error {
	e.calls = append(e.calls, hook)
	return e.err
}

func (e *lifecycleExt) OnJobQueued(context.Context, *job.Job) error  { return e.record("queued") }
func (e *lifecycleExt) OnJobStarted(context.Context, *job.Job) error { return e.record("started") }
func (e *lifecycleExt) OnStageCompleted(_ context.Context, _ *job.Job, stage string, _ time.Duration) error {
	return e.record("stage:" + stage)
}
func (e *lifecycleExt) OnJobCompleted(context.Context, *job.Job, time.Duration) error {
	return e.record("completed")
}
func (e *lifecycleExt) OnJobFailed(context.Context, *job.Job, error) error {
	return e.record("failed")
}
func (e *lifecycleExt) OnJobCancelled(context.Context, *job.Job) error {
	return e.record("cancelled")
}
func (e *lifecycleExt) OnPublishDegraded(context.Context, *job.Job, error) error {
	return e.record("degraded")
}
func (e *lifecycleExt) OnShutdown(context.Context) error { return e.record("shutdown") }

// queuedOnlyExt implements only the JobQueued hook.
type queuedOnlyExt struct {
	queued int
}

func (*queuedOnlyExt) Name() string { return "queued-only" }
func (e *queuedOnlyExt) OnJobQueued(context.Context, *job.Job) error {
	e.queued++
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

func TestRegistryDispatch(t *testing.T) {
	t.Parallel()

	full := &lifecycleExt{name: "full"}
	partial := &queuedOnlyExt{}

	r := ext.NewRegistry(discard())
	r.Register(full)
	r.Register(partial)

	ctx := context.Background()
	j := job.New(job.Request{ModelKind: "linear_regression", Dataset: "sample"})

	r.EmitJobQueued(ctx, j)
	r.EmitJobStarted(ctx, j)
	r.EmitStageCompleted(ctx, j, "fit", time.Second)
	r.EmitJobCompleted(ctx, j, time.Second)
	r.EmitJobFailed(ctx, j, errors.New("boom"))
	r.EmitJobCancelled(ctx, j)
	r.EmitPublishDegraded(ctx, j, errors.New("mlflow down"))
	r.EmitShutdown(ctx)

	want := []string{"queued", "started", "stage:fit", "completed", "failed", "cancelled", "degraded", "shutdown"}
	if len(full.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", full.calls, want)
	}
	for i := range want {
		if full.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", full.calls, want)
		}
	}

	// The partial extension only sees the hook it implements.
	if partial.queued != 1 {
		t.Fatalf("queued-only extension saw %d queued events, want 1", partial.queued)
	}

	if n := len(r.Extensions()); n != 2 {
		t.Fatalf("Extensions() = %d, want 2", n)
	}
}

// orderExt appends its name to a shared log when notified.
type orderExt struct {
	name string
	log  *[]string
}

func (e *orderExt) Name() string { return e.name }
func (e *orderExt) OnJobQueued(context.Context, *job.Job) error {
	*e.log = append(*e.log, e.name)
	return nil
}

func TestRegistryOrder(t *testing.T) {
	t.Parallel()

	var log []string
	r := ext.NewRegistry(discard())
	r.Register(&orderExt{name: "first", log: &log})
	r.Register(&orderExt{name: "second", log: &log})

	r.EmitJobQueued(context.Background(), job.New(job.Request{ModelKind: "k", Dataset: "d"}))

	if len(log) != 2 || log[0] != "first" || log[1] != "second" {
		t.Fatalf("notification order = %v, want [first second]", log)
	}
}

func TestHookErrorsDoNotPropagate(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	failing := &lifecycleExt{name: "flaky", err: errors.New("hook broke")}
	after := &queuedOnlyExt{}

	r := ext.NewRegistry(logger)
	r.Register(failing)
	r.Register(after)

	// Emit must not panic or stop at the failing extension.
	r.EmitJobQueued(context.Background(), job.New(job.Request{ModelKind: "k", Dataset: "d"}))

	if after.queued != 1 {
		t.Fatal("extension after the failing one was not notified")
	}
	out := buf.String()
	if !strings.Contains(out, "extension hook error") || !strings.Contains(out, "flaky") {
		t.Fatalf("hook error not logged:\n%s", out)
	}
}
