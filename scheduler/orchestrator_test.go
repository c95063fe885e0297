package scheduler_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	training "github.com/GeneAlphaAI/genealpha-backend-training"
	"github.com/GeneAlphaAI/genealpha-backend-training/ext"
	"github.com/GeneAlphaAI/genealpha-backend-training/id"
	"github.com/GeneAlphaAI/genealpha-backend-training/job"
	"github.com/GeneAlphaAI/genealpha-backend-training/scheduler"
	"github.com/GeneAlphaAI/genealpha-backend-training/store/memory"
)

// gatedRunner mimics the executor: it skips terminal jobs, marks the job
// running, blocks until released (or its context ends), then writes the
// terminal state. Tests use the gate to hold runner slots occupied.
type gatedRunner struct {
	store   *memory.Store
	gate    chan struct{}
	active  atomic.Int32
	peak    atomic.Int32
	mu      sync.Mutex
	execIDs []string
}

func newGatedRunner(store *memory.Store) *gatedRunner {
	return &gatedRunner{store: store, gate: make(chan struct{})}
}

func (r *gatedRunner) executed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.execIDs...)
}

func (r *gatedRunner) Execute(ctx context.Context, jobID id.JobID) error {
	j, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if j.State.Terminal() {
		return nil
	}

	r.mu.Lock()
	r.execIDs = append(r.execIDs, jobID.String())
	r.mu.Unlock()

	n := r.active.Add(1)
	for {
		peak := r.peak.Load()
		if n <= peak || r.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	defer r.active.Add(-1)

	now := time.Now().UTC()
	j.State = job.StateRunning
	j.StartedAt = &now
	if err := r.store.UpdateJob(ctx, j); err != nil {
		return err
	}

	cancelled := false
	select {
	case <-r.gate:
	case <-ctx.Done():
		cancelled = true
	}

	end := time.Now().UTC()
	j.FinishedAt = &end
	if cancelled {
		j.State = job.StateCancelled
		j.Err = job.NewFailure(job.KindCancelled, "fit", ctx.Err())
	} else {
		j.State = job.StateCompleted
	}
	return r.store.UpdateJob(ctx, j)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

func request() job.Request {
	return job.Request{ModelKind: "linear_regression", Dataset: "sample"}
}

func newOrchestrator(t *testing.T, store *memory.Store, r scheduler.Runner, opts ...scheduler.Option) *scheduler.Orchestrator {
	t.Helper()
	o := scheduler.New(store, r, ext.NewRegistry(discard()), discard(), opts...)
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = o.Stop(ctx)
	})
	return o
}

// await polls the store until the job reaches the wanted state.
func await(t *testing.T, store *memory.Store, jobID id.JobID, want job.State) *job.Job {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		j, err := store.GetJob(context.Background(), jobID)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if j.State == want {
			return j
		}
		select {
		case <-deadline:
			t.Fatalf("job %s stuck in %s, want %s", jobID, j.State, want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSubmitBeforeStart(t *testing.T) {
	t.Parallel()

	store := memory.New()
	o := scheduler.New(store, newGatedRunner(store), ext.NewRegistry(discard()), discard())

	// Lifecycle misuse is not backpressure: callers shedding load on
	// ErrOverloaded must never retry into a scheduler that never started.
	_, err := o.Submit(context.Background(), request())
	if !errors.Is(err, training.ErrNotRunning) {
		t.Fatalf("got %v, want ErrNotRunning", err)
	}
	if errors.Is(err, training.ErrOverloaded) {
		t.Fatal("lifecycle error must not match ErrOverloaded")
	}
}

func TestSubmitInvalidRequest(t *testing.T) {
	t.Parallel()

	store := memory.New()
	o := newOrchestrator(t, store, newGatedRunner(store))

	_, err := o.Submit(context.Background(), job.Request{Dataset: "sample"})
	if !errors.Is(err, training.ErrInvalidRequest) {
		t.Fatalf("got %v, want ErrInvalidRequest", err)
	}

	stats, _ := store.Stats(context.Background())
	if stats.Total != 0 {
		t.Fatalf("rejected submit created a record: %+v", stats)
	}
}

func TestSubmitCreatesDistinctPendingJobs(t *testing.T) {
	t.Parallel()

	store := memory.New()
	runner := newGatedRunner(store)
	o := newOrchestrator(t, store, runner, scheduler.WithConcurrency(2), scheduler.WithQueueDepth(8))

	seen := map[string]bool{}
	var ids []id.JobID
	for range 5 {
		j, err := o.Submit(context.Background(), request())
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if j.State != job.StatePending {
			t.Fatalf("submitted job state = %s, want pending", j.State)
		}
		if seen[j.ID.String()] {
			t.Fatalf("duplicate id %s", j.ID)
		}
		seen[j.ID.String()] = true
		ids = append(ids, j.ID)
	}

	close(runner.gate)
	for _, jobID := range ids {
		await(t, store, jobID, job.StateCompleted)
	}
}

func TestSubmitOverload(t *testing.T) {
	t.Parallel()

	store := memory.New()
	runner := newGatedRunner(store)
	o := newOrchestrator(t, store, runner, scheduler.WithConcurrency(1), scheduler.WithQueueDepth(2))

	// Capacity is concurrency + queue depth = 3 non-terminal jobs.
	for i := range 3 {
		if _, err := o.Submit(context.Background(), request()); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}

	_, err := o.Submit(context.Background(), request())
	if !errors.Is(err, training.ErrOverloaded) {
		t.Fatalf("got %v, want ErrOverloaded", err)
	}

	// The rejected submission must leave no trace.
	stats, _ := store.Stats(context.Background())
	if stats.Total != 3 {
		t.Fatalf("stats.Total = %d, want 3", stats.Total)
	}

	// Draining the backlog frees admission slots.
	close(runner.gate)
	deadline := time.After(5 * time.Second)
	for {
		if _, err := o.Submit(context.Background(), request()); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("admission slots never freed after drain")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestConcurrencyCeiling(t *testing.T) {
	t.Parallel()

	store := memory.New()
	runner := newGatedRunner(store)
	o := newOrchestrator(t, store, runner, scheduler.WithConcurrency(2), scheduler.WithQueueDepth(8))

	var ids []id.JobID
	for range 6 {
		j, err := o.Submit(context.Background(), request())
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		ids = append(ids, j.ID)
	}

	// Wait for both runners to pick up work, then release everything.
	deadline := time.After(5 * time.Second)
	for runner.active.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("runners never saturated")
		case <-time.After(time.Millisecond):
		}
	}
	close(runner.gate)

	for _, jobID := range ids {
		await(t, store, jobID, job.StateCompleted)
	}
	if peak := runner.peak.Load(); peak > 2 {
		t.Fatalf("peak concurrent executions = %d, want <= 2", peak)
	}
}

func TestCancelPendingJob(t *testing.T) {
	t.Parallel()

	store := memory.New()
	runner := newGatedRunner(store)
	o := newOrchestrator(t, store, runner, scheduler.WithConcurrency(1), scheduler.WithQueueDepth(4))

	// Occupy the only runner slot.
	blocker, err := o.Submit(context.Background(), request())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	await(t, store, blocker.ID, job.StateRunning)

	// This one sits in the queue.
	queued, err := o.Submit(context.Background(), request())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := o.Cancel(context.Background(), queued.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	got := await(t, store, queued.ID, job.StateCancelled)
	if got.Err == nil || got.Err.Kind != job.KindCancelled {
		t.Fatalf("err = %v, want cancelled", got.Err)
	}
	if got.FinishedAt == nil {
		t.Fatal("cancelled job missing FinishedAt")
	}

	// Releasing the gate lets the runner drain; the cancelled job must
	// never execute.
	close(runner.gate)
	await(t, store, blocker.ID, job.StateCompleted)
	for _, executed := range runner.executed() {
		if executed == queued.ID.String() {
			t.Fatal("cancelled job was executed")
		}
	}
}

func TestCancelRunningJob(t *testing.T) {
	t.Parallel()

	store := memory.New()
	runner := newGatedRunner(store)
	o := newOrchestrator(t, store, runner, scheduler.WithConcurrency(1))

	j, err := o.Submit(context.Background(), request())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	await(t, store, j.ID, job.StateRunning)

	if err := o.Cancel(context.Background(), j.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	await(t, store, j.ID, job.StateCancelled)
}

func TestCancelTerminalJobIsNoop(t *testing.T) {
	t.Parallel()

	store := memory.New()
	runner := newGatedRunner(store)
	o := newOrchestrator(t, store, runner, scheduler.WithConcurrency(1))

	j, err := o.Submit(context.Background(), request())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	await(t, store, j.ID, job.StateRunning)
	close(runner.gate)
	await(t, store, j.ID, job.StateCompleted)

	if err := o.Cancel(context.Background(), j.ID); err != nil {
		t.Fatalf("cancel of terminal job: got %v, want nil", err)
	}
	got := await(t, store, j.ID, job.StateCompleted)
	if got.Err != nil {
		t.Fatalf("terminal job mutated by cancel: %+v", got.Err)
	}
}

func TestCancelMissingJob(t *testing.T) {
	t.Parallel()

	store := memory.New()
	o := newOrchestrator(t, store, newGatedRunner(store))

	if err := o.Cancel(context.Background(), id.NewJobID()); !errors.Is(err, training.ErrJobNotFound) {
		t.Fatalf("got %v, want ErrJobNotFound", err)
	}
}

// denyOnce rejects the first acquire for each kind, then admits.
type denyOnce struct {
	mu     sync.Mutex
	denied map[string]bool
}

func (d *denyOnce) Acquire(kind string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.denied == nil {
		d.denied = make(map[string]bool)
	}
	if !d.denied[kind] {
		d.denied[kind] = true
		return false
	}
	return true
}

func (d *denyOnce) Release(string) {}

func TestLimitDeniedJobIsRequeued(t *testing.T) {
	t.Parallel()

	store := memory.New()
	runner := newGatedRunner(store)
	close(runner.gate)

	o := newOrchestrator(t, store, runner,
		scheduler.WithConcurrency(1),
		scheduler.WithRetryDelay(time.Millisecond),
		scheduler.WithLimitManager(&denyOnce{}),
	)

	j, err := o.Submit(context.Background(), request())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Denied on the first pass, admitted on the retry.
	await(t, store, j.ID, job.StateCompleted)
}

func TestGracefulStop(t *testing.T) {
	t.Parallel()

	store := memory.New()
	runner := newGatedRunner(store)
	o := scheduler.New(store, runner, ext.NewRegistry(discard()), discard(), scheduler.WithConcurrency(2))
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	j, err := o.Submit(context.Background(), request())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	await(t, store, j.ID, job.StateRunning)
	close(runner.gate)
	await(t, store, j.ID, job.StateCompleted)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// A stopped orchestrator rejects new work.
	if _, err := o.Submit(context.Background(), request()); !errors.Is(err, training.ErrNotRunning) {
		t.Fatalf("got %v, want ErrNotRunning after stop", err)
	}
}

func TestStopDeadlineCancelsActiveJobs(t *testing.T) {
	t.Parallel()

	store := memory.New()
	runner := newGatedRunner(store)
	o := scheduler.New(store, runner, ext.NewRegistry(discard()), discard(), scheduler.WithConcurrency(1))
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	j, err := o.Submit(context.Background(), request())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	await(t, store, j.ID, job.StateRunning)

	// The runner is holding the gate, so the deadline fires and the active
	// job's context is cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := o.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	await(t, store, j.ID, job.StateCancelled)
}
