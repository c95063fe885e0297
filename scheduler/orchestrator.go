package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	training "github.com/GeneAlphaAI/genealpha-backend-training"
	"github.com/GeneAlphaAI/genealpha-backend-training/ext"
	"github.com/GeneAlphaAI/genealpha-backend-training/id"
	"github.com/GeneAlphaAI/genealpha-backend-training/job"
)

// Runner executes one admitted job to a terminal state. Implemented by
// pipeline.Executor.
type Runner interface {
	Execute(ctx context.Context, jobID id.JobID) error
}

// LimitManager controls per-model-kind rate limiting and concurrency.
// The orchestrator calls Acquire before executing a dequeued job and
// Release after execution completes.
type LimitManager interface {
	// Acquire checks rate limits and concurrency for the kind. Returns
	// true if the job is allowed to proceed.
	Acquire(kind string) bool
	// Release decrements the active count for the kind.
	Release(kind string)
}

// Orchestrator admits jobs up to the configured bound and runs a set of
// concurrent runner goroutines that execute them in admission order.
type Orchestrator struct {
	store      job.Store
	runner     Runner
	extensions *ext.Registry
	workerID   id.WorkerID
	logger     *slog.Logger

	concurrency int
	queueDepth  int
	retryDelay  time.Duration

	// Limit manager (optional).
	limits LimitManager

	// admitted counts non-terminal jobs owned by this orchestrator. It is
	// incremented under mu before the job record exists, so a rejected
	// submission never creates one.
	mu       sync.Mutex
	admitted int
	running  bool

	queue  chan *job.Job
	stopCh chan struct{}
	wg     sync.WaitGroup

	activeJobs map[string]context.CancelFunc
	activeMu   sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency sets the number of runner goroutines.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) { o.concurrency = n }
}

// WithQueueDepth sets how many admitted jobs may wait beyond the ones
// currently running. Zero means submissions are rejected unless a runner
// is free.
func WithQueueDepth(n int) Option {
	return func(o *Orchestrator) { o.queueDepth = n }
}

// WithRetryDelay sets how long a runner waits before retrying a job that
// was denied a per-kind limit slot.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.retryDelay = d }
}

// WithLimitManager sets the limit manager for per-kind rate limiting and
// concurrency control.
func WithLimitManager(m LimitManager) Option {
	return func(o *Orchestrator) { o.limits = m }
}

// New creates an orchestrator. Start must be called before submissions
// are accepted.
func New(
	store job.Store,
	runner Runner,
	extensions *ext.Registry,
	logger *slog.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		runner:      runner,
		extensions:  extensions,
		workerID:    id.NewWorkerID(),
		logger:      logger,
		concurrency: 4,
		queueDepth:  16,
		retryDelay:  50 * time.Millisecond,
		stopCh:      make(chan struct{}),
		activeJobs:  make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.queue = make(chan *job.Job, o.concurrency+o.queueDepth)
	return o
}

// WorkerID returns the orchestrator's unique worker identifier.
func (o *Orchestrator) WorkerID() id.WorkerID { return o.workerID }

// Submit validates and admits a request. It returns the created pending
// job, or ErrInvalidRequest / ErrOverloaded / ErrNotRunning without
// creating anything.
func (o *Orchestrator) Submit(ctx context.Context, req job.Request) (*job.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Claim an admission slot before creating the record, so a rejected
	// submission is invisible.
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return nil, training.ErrNotRunning
	}
	if o.admitted >= o.concurrency+o.queueDepth {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %d jobs in flight", training.ErrOverloaded, o.admitted)
	}
	o.admitted++
	o.mu.Unlock()

	j := job.New(req)
	if err := o.store.CreateJob(ctx, j); err != nil {
		o.release()
		return nil, err
	}

	// Capacity is sized to the admission bound, so this send never blocks.
	o.queue <- j
	o.extensions.EmitJobQueued(ctx, j)

	o.logger.Debug("job admitted",
		slog.String("job_id", j.ID.String()),
		slog.String("model_kind", req.ModelKind),
	)
	return j, nil
}

// Cancel requests cancellation of a job. A queued job is marked cancelled
// immediately; a running job has its context cancelled and reaches the
// cancelled state at the next stage boundary. Cancelling a job that is
// already terminal is a no-op.
func (o *Orchestrator) Cancel(ctx context.Context, jobID id.JobID) error {
	j, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	switch j.State {
	case job.StatePending:
		now := time.Now().UTC()
		j.State = job.StateCancelled
		j.Err = &job.Failure{Kind: job.KindCancelled, Message: "cancelled before start"}
		j.UpdatedAt = now
		j.FinishedAt = &now
		if err := o.store.UpdateJob(ctx, j); err != nil {
			return err
		}
		o.extensions.EmitJobCancelled(ctx, j)
		return nil

	case job.StateRunning:
		o.activeMu.Lock()
		cancel, ok := o.activeJobs[jobID.String()]
		o.activeMu.Unlock()
		if ok {
			cancel()
		}
		return nil

	default:
		// Already terminal. Nothing to do.
		return nil
	}
}

// Start launches the runner goroutines. It returns immediately.
func (o *Orchestrator) Start(_ context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return nil
	}
	o.running = true

	o.logger.Info("orchestrator starting",
		slog.String("worker_id", o.workerID.String()),
		slog.Int("concurrency", o.concurrency),
		slog.Int("queue_depth", o.queueDepth),
	)

	for range o.concurrency {
		o.wg.Add(1)
		go o.runLoop()
	}
	return nil
}

// Stop signals all runners to stop and waits for them to finish. If the
// context has a deadline, active jobs are cancelled when time runs out.
// Queued jobs that were never picked up remain pending in the store.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return nil
	}
	o.running = false
	o.mu.Unlock()

	o.logger.Info("orchestrator stopping", slog.String("worker_id", o.workerID.String()))

	close(o.stopCh)

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.logger.Info("orchestrator stopped gracefully")
	case <-ctx.Done():
		o.logger.Warn("orchestrator shutdown timed out, cancelling active jobs")
		o.cancelActiveJobs()
		o.wg.Wait()
	}

	return nil
}

// runLoop is run by each runner goroutine.
func (o *Orchestrator) runLoop() {
	defer o.wg.Done()

	for {
		select {
		case <-o.stopCh:
			return
		case j := <-o.queue:
			o.runOne(j)
		}
	}
}

// runOne takes one admitted job through per-kind limits and execution,
// then frees its admission slot.
func (o *Orchestrator) runOne(j *job.Job) {
	kind := j.Request.ModelKind

	// Per-kind rate limit and concurrency. A denied job goes back to the
	// tail after a short delay; capacity is sized so the send never blocks.
	if o.limits != nil && !o.limits.Acquire(kind) {
		select {
		case <-o.stopCh:
			return
		case <-time.After(o.retryDelay):
		}
		o.queue <- j
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.trackJob(j.ID.String(), cancel)

	if err := o.runner.Execute(ctx, j.ID); err != nil {
		o.logger.Error("job execution error",
			slog.String("job_id", j.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	o.untrackJob(j.ID.String())
	cancel()

	if o.limits != nil {
		o.limits.Release(kind)
	}
	o.release()
}

// release frees one admission slot.
func (o *Orchestrator) release() {
	o.mu.Lock()
	o.admitted--
	o.mu.Unlock()
}

func (o *Orchestrator) trackJob(jobID string, cancel context.CancelFunc) {
	o.activeMu.Lock()
	o.activeJobs[jobID] = cancel
	o.activeMu.Unlock()
}

func (o *Orchestrator) untrackJob(jobID string) {
	o.activeMu.Lock()
	delete(o.activeJobs, jobID)
	o.activeMu.Unlock()
}

func (o *Orchestrator) cancelActiveJobs() {
	o.activeMu.Lock()
	defer o.activeMu.Unlock()
	for jobID, cancel := range o.activeJobs {
		o.logger.Warn("cancelling active job", slog.String("job_id", jobID))
		cancel()
	}
}
