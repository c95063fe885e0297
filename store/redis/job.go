package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	training "github.com/GeneAlphaAI/genealpha-backend-training"
	"github.com/GeneAlphaAI/genealpha-backend-training/id"
	"github.com/GeneAlphaAI/genealpha-backend-training/job"
)

// CreateJob stores the job as a Hash and indexes it for enumeration and
// creation-time ordering.
func (s *Store) CreateJob(ctx context.Context, j *job.Job) error {
	jID := j.ID.String()
	key := jobKey(jID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("training/redis: create check exists: %w", err)
	}
	if exists > 0 {
		return training.ErrJobExists
	}

	fields, err := jobToMap(j)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.SAdd(ctx, jobIDsKey, jID)
	pipe.ZAdd(ctx, jobsByCreatedKey, goredis.Z{
		Score:  float64(j.CreatedAt.UnixNano()),
		Member: jID,
	})

	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("training/redis: create job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return s.getJobByKey(ctx, jobKey(jobID.String()))
}

// UpdateJob replaces an existing record after validating the transition
// against the stored state. The service guarantees one writer per job, so
// the read-then-write is race-free for state changes.
func (s *Store) UpdateJob(ctx context.Context, j *job.Job) error {
	jID := j.ID.String()
	key := jobKey(jID)

	current, err := s.client.HGet(ctx, key, "state").Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return training.ErrJobNotFound
		}
		return fmt.Errorf("training/redis: update get state: %w", err)
	}
	if !job.CanTransition(job.State(current), j.State) {
		return training.ErrInvalidTransition
	}

	fields, err := jobToMap(j)
	if err != nil {
		return err
	}
	fields["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	if _, err = s.client.HSet(ctx, key, fields).Result(); err != nil {
		return fmt.Errorf("training/redis: update job: %w", err)
	}
	return nil
}

// ListJobs returns jobs ordered newest-first by creation time, optionally
// filtered by state.
func (s *Store) ListJobs(ctx context.Context, opts job.ListOpts) ([]*job.Job, error) {
	// Reverse range over the creation index gives newest-first without a
	// client-side sort.
	ids, err := s.client.ZRevRange(ctx, jobsByCreatedKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("training/redis: list zrevrange: %w", err)
	}

	jobs := make([]*job.Job, 0, len(ids))
	skipped := 0
	for _, jID := range ids {
		j, getErr := s.getJobByKey(ctx, jobKey(jID))
		if getErr != nil {
			continue // skip records deleted mid-iteration
		}
		if opts.State != "" && j.State != opts.State {
			continue
		}
		if skipped < opts.Offset {
			skipped++
			continue
		}
		jobs = append(jobs, j)
		if opts.Limit > 0 && len(jobs) >= opts.Limit {
			break
		}
	}
	return jobs, nil
}

// Stats returns aggregate counts per state.
func (s *Store) Stats(ctx context.Context) (job.Stats, error) {
	ids, err := s.client.SMembers(ctx, jobIDsKey).Result()
	if err != nil {
		return job.Stats{}, fmt.Errorf("training/redis: stats smembers: %w", err)
	}

	var st job.Stats
	for _, jID := range ids {
		state, getErr := s.client.HGet(ctx, jobKey(jID), "state").Result()
		if getErr != nil {
			continue
		}
		st.Total++
		switch job.State(state) {
		case job.StatePending:
			st.Pending++
		case job.StateRunning:
			st.Running++
		case job.StateCompleted:
			st.Completed++
		case job.StateFailed:
			st.Failed++
		case job.StateCancelled:
			st.Cancelled++
		}
	}
	return st, nil
}

// ── helpers ──

func jobToMap(j *job.Job) (map[string]interface{}, error) {
	request, err := json.Marshal(j.Request)
	if err != nil {
		return nil, fmt.Errorf("training/redis: marshal request: %w", err)
	}
	progress, err := json.Marshal(j.Progress)
	if err != nil {
		return nil, fmt.Errorf("training/redis: marshal progress: %w", err)
	}

	m := map[string]interface{}{
		"id":         j.ID.String(),
		"state":      string(j.State),
		"request":    string(request),
		"progress":   string(progress),
		"created_at": j.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": j.UpdatedAt.Format(time.RFC3339Nano),
	}
	if j.Result != nil {
		b, mErr := json.Marshal(j.Result)
		if mErr != nil {
			return nil, fmt.Errorf("training/redis: marshal result: %w", mErr)
		}
		m["result"] = string(b)
	}
	if j.Err != nil {
		b, mErr := json.Marshal(j.Err)
		if mErr != nil {
			return nil, fmt.Errorf("training/redis: marshal error: %w", mErr)
		}
		m["error"] = string(b)
	}
	if j.Warning != nil {
		b, mErr := json.Marshal(j.Warning)
		if mErr != nil {
			return nil, fmt.Errorf("training/redis: marshal warning: %w", mErr)
		}
		m["warning"] = string(b)
	}
	if j.StartedAt != nil {
		m["started_at"] = j.StartedAt.Format(time.RFC3339Nano)
	}
	if j.FinishedAt != nil {
		m["finished_at"] = j.FinishedAt.Format(time.RFC3339Nano)
	}
	return m, nil
}

func (s *Store) getJobByKey(ctx context.Context, key string) (*job.Job, error) {
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("training/redis: get job: %w", err)
	}
	if len(vals) == 0 {
		return nil, training.ErrJobNotFound
	}
	return mapToJob(vals)
}

func mapToJob(m map[string]string) (*job.Job, error) {
	jID, err := id.ParseJobID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("training/redis: parse job id: %w", err)
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"]) //nolint:errcheck // best-effort parse from trusted Redis data
	updatedAt, _ := time.Parse(time.RFC3339Nano, m["updated_at"]) //nolint:errcheck // best-effort parse from trusted Redis data

	j := &job.Job{
		Entity: training.Entity{
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		},
		ID:    jID,
		State: job.State(m["state"]),
	}

	if v := m["request"]; v != "" {
		if uErr := json.Unmarshal([]byte(v), &j.Request); uErr != nil {
			return nil, fmt.Errorf("training/redis: unmarshal request: %w", uErr)
		}
	}
	if v := m["progress"]; v != "" {
		_ = json.Unmarshal([]byte(v), &j.Progress) //nolint:errcheck // best-effort parse from trusted Redis data
	}
	if v := m["result"]; v != "" {
		j.Result = &job.Result{}
		_ = json.Unmarshal([]byte(v), j.Result) //nolint:errcheck // best-effort parse from trusted Redis data
	}
	if v := m["error"]; v != "" {
		j.Err = &job.Failure{}
		_ = json.Unmarshal([]byte(v), j.Err) //nolint:errcheck // best-effort parse from trusted Redis data
	}
	if v := m["warning"]; v != "" {
		j.Warning = &job.Failure{}
		_ = json.Unmarshal([]byte(v), j.Warning) //nolint:errcheck // best-effort parse from trusted Redis data
	}
	if v := m["started_at"]; v != "" {
		t, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
		j.StartedAt = &t
	}
	if v := m["finished_at"]; v != "" {
		t, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
		j.FinishedAt = &t
	}

	return j, nil
}
