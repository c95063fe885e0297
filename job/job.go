package job

import (
	"time"

	training "github.com/GeneAlphaAI/genealpha-backend-training"
	"github.com/GeneAlphaAI/genealpha-backend-training/id"
)

// State represents the lifecycle state of a training job.
type State string

const (
	// StatePending means the job is accepted and waiting for a runner.
	StatePending State = "pending"
	// StateRunning means a runner is currently executing the pipeline.
	StateRunning State = "running"
	// StateCompleted means the pipeline finished with a training result.
	StateCompleted State = "completed"
	// StateFailed means a fatal stage failure or timeout was recorded.
	StateFailed State = "failed"
	// StateCancelled means cancellation was honored before completion.
	StateCancelled State = "cancelled"
)

// States lists all job states in lifecycle order.
var States = []State{StatePending, StateRunning, StateCompleted, StateFailed, StateCancelled}

// Terminal reports whether the state permits no further transitions.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// CanTransition reports whether a job may move from one state to another.
// A same-state write is a progress update and is always legal for
// non-terminal states.
func CanTransition(from, to State) bool {
	if from == to {
		return !from.Terminal()
	}
	switch from {
	case StatePending:
		return to == StateRunning || to == StateCancelled
	case StateRunning:
		return to == StateCompleted || to == StateFailed || to == StateCancelled
	default:
		return false
	}
}

// Progress records the executor's position in the stage sequence. It is
// written only by the single runner that owns the job; StageIndex never
// decreases over the life of a job.
type Progress struct {
	Stage      string    `json:"stage"`
	StageIndex int       `json:"stage_index"`
	StageCount int       `json:"stage_count"`
	Message    string    `json:"message,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Result holds the outcome of a completed job. Present only in
// StateCompleted, and mutually exclusive with Err.
type Result struct {
	ModelKind   string             `json:"model_kind"`
	Metrics     map[string]float64 `json:"metrics"`
	ArtifactID  id.ArtifactID      `json:"artifact_id,omitempty"`
	ArtifactRef string             `json:"artifact_ref,omitempty"`
}

// Job represents one training request's full lifecycle.
type Job struct {
	training.Entity

	ID       id.JobID `json:"id"`
	Request  Request  `json:"request"`
	State    State    `json:"state"`
	Progress Progress `json:"progress"`

	// Result and Err are mutually exclusive; each is set at most once, on
	// the transition into a terminal state. Warning carries a non-fatal
	// publish failure attached to an otherwise completed job.
	Result  *Result  `json:"result,omitempty"`
	Err     *Failure `json:"error,omitempty"`
	Warning *Failure `json:"warning,omitempty"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Clone returns a deep copy of the job. Stores copy records with it at
// their read and write boundaries so no caller ever shares Result, Err,
// or request memory with the stored record.
func (j *Job) Clone() *Job {
	cp := *j
	if j.Result != nil {
		res := *j.Result
		if j.Result.Metrics != nil {
			res.Metrics = make(map[string]float64, len(j.Result.Metrics))
			for k, v := range j.Result.Metrics {
				res.Metrics[k] = v
			}
		}
		cp.Result = &res
	}
	if j.Err != nil {
		e := *j.Err
		cp.Err = &e
	}
	if j.Warning != nil {
		w := *j.Warning
		cp.Warning = &w
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		cp.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		cp.FinishedAt = &t
	}
	if j.Request.Params != nil {
		p := make(Params, len(j.Request.Params))
		for k, v := range j.Request.Params {
			p[k] = v
		}
		cp.Request.Params = p
	}
	if j.Request.Split.FeatureColumns != nil {
		cp.Request.Split.FeatureColumns = append([]string(nil), j.Request.Split.FeatureColumns...)
	}
	return &cp
}

// New builds a pending job for the given request with a fresh ID.
func New(req Request) *Job {
	return &Job{
		Entity:  training.NewEntity(),
		ID:      id.NewJobID(),
		Request: req,
		State:   StatePending,
	}
}
