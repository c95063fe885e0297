package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	training "github.com/GeneAlphaAI/genealpha-backend-training"
	"github.com/GeneAlphaAI/genealpha-backend-training/id"
	"github.com/GeneAlphaAI/genealpha-backend-training/job"
)

func newJob(state job.State) *job.Job {
	j := job.New(job.Request{
		ModelKind: "linear_regression",
		Dataset:   "sample",
	})
	j.State = state
	return j
}

func TestLifecycle(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestCreateAndGet(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	j := newJob(job.StatePending)

	tests := []struct {
		name    string
		fn      func() error
		wantErr error
	}{
		{
			name:    "create new job",
			fn:      func() error { return s.CreateJob(ctx, j) },
			wantErr: nil,
		},
		{
			name:    "create duplicate job",
			fn:      func() error { return s.CreateJob(ctx, j) },
			wantErr: training.ErrJobExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got error %v, want %v", err, tt.wantErr)
			}
		})
	}

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Request.ModelKind != j.Request.ModelKind {
		t.Fatalf("got kind %q, want %q", got.Request.ModelKind, j.Request.ModelKind)
	}

	_, err = s.GetJob(ctx, id.NewJobID())
	if !errors.Is(err, training.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	j := newJob(job.StatePending)
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	got.State = job.StateFailed

	again, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if again.State != job.StatePending {
		t.Fatalf("mutating a snapshot leaked into the store: state %q", again.State)
	}
}

func TestSnapshotsDoNotAliasResult(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	j := newJob(job.StateRunning)
	j.Result = &job.Result{
		ModelKind: j.Request.ModelKind,
		Metrics:   map[string]float64{"train_mse": 0.5},
	}
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	snapshot, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}

	// A later write must not show through an earlier snapshot.
	j.State = job.StateCompleted
	j.Result.ArtifactRef = "hub://models/trained"
	j.Result.Metrics["train_mse"] = 0.1
	if err := s.UpdateJob(ctx, j); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	if snapshot.Result.ArtifactRef != "" {
		t.Fatalf("snapshot artifact ref mutated to %q after update", snapshot.Result.ArtifactRef)
	}
	if got := snapshot.Result.Metrics["train_mse"]; got != 0.5 {
		t.Fatalf("snapshot metric mutated to %v after update", got)
	}

	// Writing through a snapshot must not reach the stored record either.
	final, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	final.Result.ArtifactRef = "hub://models/overwritten"
	final.Result.Metrics["train_mse"] = 99

	stored, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if stored.Result.ArtifactRef != "hub://models/trained" {
		t.Fatalf("stored artifact ref mutated to %q through a snapshot", stored.Result.ArtifactRef)
	}
	if got := stored.Result.Metrics["train_mse"]; got != 0.1 {
		t.Fatalf("stored metric mutated to %v through a snapshot", got)
	}
}

func TestConcurrentResultReaders(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	j := newJob(job.StateRunning)
	j.Result = &job.Result{ModelKind: j.Request.ModelKind, Metrics: map[string]float64{}}
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	// Writer keeps rewriting the result while readers walk their own
	// snapshots. Under -race this fails if store copies are shallow.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 100 {
			j.Result.Metrics["train_mse"] = float64(i)
			j.Result.ArtifactRef = "hub://models/iter"
			if err := s.UpdateJob(ctx, j); err != nil {
				t.Errorf("UpdateJob: %v", err)
				return
			}
		}
	}()
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				got, err := s.GetJob(ctx, j.ID)
				if err != nil {
					t.Errorf("GetJob: %v", err)
					return
				}
				_ = got.Result.Metrics["train_mse"]
				_ = got.Result.ArtifactRef
			}
		}()
	}
	wg.Wait()
}

func TestUpdateTransitions(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	tests := []struct {
		name    string
		from    job.State
		to      job.State
		wantErr error
	}{
		{"pending to running", job.StatePending, job.StateRunning, nil},
		{"pending to cancelled", job.StatePending, job.StateCancelled, nil},
		{"running to completed", job.StateRunning, job.StateCompleted, nil},
		{"running to failed", job.StateRunning, job.StateFailed, nil},
		{"running to cancelled", job.StateRunning, job.StateCancelled, nil},
		{"running progress update", job.StateRunning, job.StateRunning, nil},
		{"pending to completed", job.StatePending, job.StateCompleted, training.ErrInvalidTransition},
		{"completed to running", job.StateCompleted, job.StateRunning, training.ErrInvalidTransition},
		{"failed to failed", job.StateFailed, job.StateFailed, training.ErrInvalidTransition},
		{"cancelled to running", job.StateCancelled, job.StateRunning, training.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := newJob(tt.from)
			if err := s.CreateJob(ctx, j); err != nil {
				t.Fatalf("CreateJob: %v", err)
			}

			j.State = tt.to
			err := s.UpdateJob(ctx, j)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("UpdateJob(%s→%s) = %v, want %v", tt.from, tt.to, err, tt.wantErr)
			}
		})
	}
}

func TestUpdateMissingJob(t *testing.T) {
	t.Parallel()
	s := New()

	j := newJob(job.StatePending)
	err := s.UpdateJob(context.Background(), j)
	if !errors.Is(err, training.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	base := time.Now().UTC()
	var ids []string
	for i := range 5 {
		j := newJob(job.StatePending)
		j.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := s.CreateJob(ctx, j); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
		ids = append(ids, j.ID.String())
	}

	got, err := s.ListJobs(ctx, job.ListOpts{})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d jobs, want 5", len(got))
	}
	for i, j := range got {
		want := ids[len(ids)-1-i]
		if j.ID.String() != want {
			t.Fatalf("position %d: got %s, want %s", i, j.ID, want)
		}
	}
}

func TestListFilterAndPagination(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	for i := range 6 {
		state := job.StatePending
		if i%2 == 0 {
			state = job.StateFailed
		}
		j := newJob(state)
		if err := s.CreateJob(ctx, j); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
	}

	failed, err := s.ListJobs(ctx, job.ListOpts{State: job.StateFailed})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(failed) != 3 {
		t.Fatalf("got %d failed jobs, want 3", len(failed))
	}
	for _, j := range failed {
		if j.State != job.StateFailed {
			t.Fatalf("filter leaked state %q", j.State)
		}
	}

	page, err := s.ListJobs(ctx, job.ListOpts{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("got %d jobs, want 2", len(page))
	}

	empty, err := s.ListJobs(ctx, job.ListOpts{Offset: 100})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("got %d jobs past the end, want 0", len(empty))
	}
}

func TestStats(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	counts := map[job.State]int{
		job.StatePending:   2,
		job.StateRunning:   1,
		job.StateCompleted: 3,
		job.StateFailed:    1,
		job.StateCancelled: 1,
	}
	for state, n := range counts {
		for range n {
			if err := s.CreateJob(ctx, newJob(state)); err != nil {
				t.Fatalf("CreateJob: %v", err)
			}
		}
	}

	got, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := job.Stats{Total: 8, Pending: 2, Running: 1, Completed: 3, Failed: 1, Cancelled: 1}
	if got != want {
		t.Fatalf("Stats = %+v, want %+v", got, want)
	}
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j := newJob(job.StatePending)
			if err := s.CreateJob(ctx, j); err != nil {
				t.Errorf("CreateJob %d: %v", i, err)
				return
			}
			j.State = job.StateRunning
			if err := s.UpdateJob(ctx, j); err != nil {
				t.Errorf("UpdateJob %d: %v", i, err)
			}
			if _, err := s.ListJobs(ctx, job.ListOpts{}); err != nil {
				t.Errorf("ListJobs %d: %v", i, err)
			}
		}()
	}
	wg.Wait()

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != n || stats.Running != n {
		t.Fatalf("Stats = %+v, want %d total running", stats, n)
	}
}
