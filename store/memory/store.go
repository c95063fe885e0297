// Package memory provides a fully in-memory store. It is the default
// backend for a single-process service and the workhorse of the test
// suite.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	training "github.com/GeneAlphaAI/genealpha-backend-training"
	"github.com/GeneAlphaAI/genealpha-backend-training/id"
	"github.com/GeneAlphaAI/genealpha-backend-training/job"
)

// Ensure Store implements the job persistence contract at compile time.
var _ job.Store = (*Store)(nil)

// Store is a fully in-memory job registry. Safe for concurrent access.
// Reads and writes copy records at the boundary so callers never share
// memory with the store.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*job.Job
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		jobs: make(map[string]*job.Job),
	}
}

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// CreateJob persists a new job record.
func (m *Store) CreateJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := j.ID.String()
	if _, exists := m.jobs[key]; exists {
		return training.ErrJobExists
	}
	m.jobs[key] = j.Clone()
	return nil
}

// GetJob retrieves a job by ID.
func (m *Store) GetJob(_ context.Context, jobID id.JobID) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return nil, training.ErrJobNotFound
	}
	return j.Clone(), nil
}

// UpdateJob atomically replaces an existing record, validating the state
// transition against the job state machine.
func (m *Store) UpdateJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := j.ID.String()
	current, ok := m.jobs[key]
	if !ok {
		return training.ErrJobNotFound
	}
	if !job.CanTransition(current.State, j.State) {
		return training.ErrInvalidTransition
	}

	cp := j.Clone()
	cp.UpdatedAt = time.Now().UTC()
	m.jobs[key] = cp
	return nil
}

// ListJobs returns a snapshot of jobs ordered newest-first by creation
// time, optionally filtered by state.
func (m *Store) ListJobs(_ context.Context, opts job.ListOpts) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*job.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if opts.State != "" && j.State != opts.State {
			continue
		}
		result = append(result, j.Clone())
	}

	// Newest first; ID breaks ties deterministically since TypeIDs are
	// K-sortable.
	sort.Slice(result, func(i, k int) bool {
		if !result[i].CreatedAt.Equal(result[k].CreatedAt) {
			return result[i].CreatedAt.After(result[k].CreatedAt)
		}
		return result[i].ID.String() > result[k].ID.String()
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return []*job.Job{}, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

// Stats returns aggregate counts per state.
func (m *Store) Stats(_ context.Context) (job.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var s job.Stats
	for _, j := range m.jobs {
		s.Total++
		switch j.State {
		case job.StatePending:
			s.Pending++
		case job.StateRunning:
			s.Running++
		case job.StateCompleted:
			s.Completed++
		case job.StateFailed:
			s.Failed++
		case job.StateCancelled:
			s.Cancelled++
		}
	}
	return s, nil
}
