package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	training "github.com/GeneAlphaAI/genealpha-backend-training"
	"github.com/GeneAlphaAI/genealpha-backend-training/backoff"
	"github.com/GeneAlphaAI/genealpha-backend-training/dataset"
	"github.com/GeneAlphaAI/genealpha-backend-training/ext"
	"github.com/GeneAlphaAI/genealpha-backend-training/id"
	"github.com/GeneAlphaAI/genealpha-backend-training/job"
	"github.com/GeneAlphaAI/genealpha-backend-training/limit"
	mw "github.com/GeneAlphaAI/genealpha-backend-training/middleware"
	"github.com/GeneAlphaAI/genealpha-backend-training/model"
	"github.com/GeneAlphaAI/genealpha-backend-training/observability"
	"github.com/GeneAlphaAI/genealpha-backend-training/pipeline"
	"github.com/GeneAlphaAI/genealpha-backend-training/scheduler"
	"github.com/GeneAlphaAI/genealpha-backend-training/track"
)

// instrumentationName is the OTel scope used for engine-built middleware.
const instrumentationName = "github.com/GeneAlphaAI/genealpha-backend-training"

// Engine wraps a Service with the wired subsystems: catalog, dataset
// resolver, publish collaborators, pipeline executor, and orchestrator.
// Use Build() to create one.
type Engine struct {
	svc        *training.Service
	store      job.Store
	extensions *ext.Registry
	catalog    *model.Catalog
	datasets   *dataset.Resolver
	tracker    track.Tracker
	hub        track.Hub
	bo         backoff.Strategy
	mws        []mw.Middleware
	logger     *slog.Logger

	executor     *pipeline.Executor
	orchestrator *scheduler.Orchestrator

	// Limit subsystem.
	limitConfigs []limit.Config
	limits       *limit.Manager

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	awaitInterval time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithCatalog sets the model catalog. Default: model.DefaultCatalog().
func WithCatalog(c *model.Catalog) Option {
	return func(eng *Engine) { eng.catalog = c }
}

// WithDatasetResolver sets the dataset resolver. Default:
// dataset.DefaultResolver().
func WithDatasetResolver(r *dataset.Resolver) Option {
	return func(eng *Engine) { eng.datasets = r }
}

// WithTracker sets the metrics tracker. Default: track.NopTracker.
func WithTracker(t track.Tracker) Option {
	return func(eng *Engine) { eng.tracker = t }
}

// WithHub sets the artifact hub. Default: track.NopHub.
func WithHub(h track.Hub) Option {
	return func(eng *Engine) { eng.hub = h }
}

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) { eng.extensions.Register(e) }
}

// WithMiddleware adds middleware to the engine's chain, after the default
// stack.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) { eng.mws = append(eng.mws, m) }
}

// WithBackoff sets the publish retry backoff strategy. If not set,
// backoff.DefaultStrategy() (exponential with jitter) is used.
func WithBackoff(b backoff.Strategy) Option {
	return func(eng *Engine) { eng.bo = b }
}

// WithLimitConfig registers per-kind rate limiting and concurrency
// configurations. Kinds not listed have no limits.
func WithLimitConfig(configs ...limit.Config) Option {
	return func(eng *Engine) { eng.limitConfigs = append(eng.limitConfigs, configs...) }
}

// WithTracerProvider sets a custom OTel TracerProvider for the engine.
// When set, the tracing middleware uses this provider instead of the
// global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) { eng.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider for the engine.
// When set, both the metrics middleware and the observability extension
// use this provider instead of the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) { eng.meterProvider = mp }
}

// WithAwaitInterval sets how often Await polls the store. Default 25ms.
func WithAwaitInterval(d time.Duration) Option {
	return func(eng *Engine) { eng.awaitInterval = d }
}

// Build creates an Engine from an existing Service. The Service's store
// must implement job.Store.
func Build(svc *training.Service, opts ...Option) (*Engine, error) {
	logger := svc.Logger()
	store := svc.Store()

	if store == nil {
		return nil, training.ErrNoStore
	}
	js, ok := store.(job.Store)
	if !ok {
		return nil, fmt.Errorf("training: store does not implement job.Store")
	}

	eng := &Engine{
		svc:           svc,
		store:         js,
		extensions:    ext.NewRegistry(logger),
		logger:        logger,
		awaitInterval: 25 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(eng)
	}

	// Defaults for unset collaborators.
	if eng.catalog == nil {
		eng.catalog = model.DefaultCatalog()
	}
	if eng.datasets == nil {
		eng.datasets = dataset.DefaultResolver()
	}
	if eng.tracker == nil {
		eng.tracker = track.NopTracker{}
	}
	if eng.hub == nil {
		eng.hub = track.NopHub{}
	}
	if eng.bo == nil {
		eng.bo = backoff.DefaultStrategy()
	}

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer(instrumentationName))
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter(instrumentationName))
	} else {
		metricsMw = mw.Metrics()
	}

	// Register the observability metrics extension.
	var obsExt *observability.MetricsExtension
	if eng.meterProvider != nil {
		obsExt = observability.NewMetricsExtensionWithMeter(
			eng.meterProvider.Meter(instrumentationName + "/observability"))
	} else {
		obsExt = observability.NewMetricsExtension()
	}
	eng.extensions.Register(obsExt)

	config := svc.Config()

	// Default middleware stack: recover → tracing → metrics → logging → timeout.
	defaultMws := []mw.Middleware{
		mw.Recover(logger),
		tracingMw,
		metricsMw,
		mw.Logging(logger),
		mw.Timeout(logger, config.JobTimeout),
	}
	allMws := make([]mw.Middleware, 0, len(defaultMws)+len(eng.mws))
	allMws = append(allMws, defaultMws...)
	allMws = append(allMws, eng.mws...)

	eng.executor = pipeline.NewExecutor(
		eng.store,
		eng.catalog,
		eng.datasets,
		eng.tracker,
		eng.hub,
		eng.extensions,
		eng.bo,
		config.PublishRetries,
		logger,
		allMws...,
	)

	orchOpts := []scheduler.Option{
		scheduler.WithConcurrency(config.Concurrency),
		scheduler.WithQueueDepth(config.QueueDepth),
	}
	if len(eng.limitConfigs) > 0 {
		eng.limits = limit.NewManager(eng.limitConfigs...)
		orchOpts = append(orchOpts, scheduler.WithLimitManager(eng.limits))
	}

	eng.orchestrator = scheduler.New(eng.store, eng.executor, eng.extensions, logger, orchOpts...)

	// Wire back into the Service.
	svc.SetOrchestrator(eng.orchestrator)
	svc.SetExtensions(eng.extensions)

	return eng, nil
}

// Submit validates and admits a training request, returning the new job's
// ID. It fails synchronously with ErrInvalidRequest, ErrOverloaded, or
// ErrNotRunning;
// everything after admission lands on the job record.
func (eng *Engine) Submit(ctx context.Context, req job.Request) (id.JobID, error) {
	j, err := eng.orchestrator.Submit(ctx, req)
	if err != nil {
		return id.Nil, err
	}
	return j.ID, nil
}

// GetJob returns a snapshot of a job by ID.
func (eng *Engine) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return eng.store.GetJob(ctx, jobID)
}

// ListJobs returns jobs newest-first, optionally filtered by state.
func (eng *Engine) ListJobs(ctx context.Context, opts job.ListOpts) ([]*job.Job, error) {
	return eng.store.ListJobs(ctx, opts)
}

// Stats returns aggregate job counts per state.
func (eng *Engine) Stats(ctx context.Context) (job.Stats, error) {
	return eng.store.Stats(ctx)
}

// Cancel requests cooperative cancellation of a job.
func (eng *Engine) Cancel(ctx context.Context, jobID id.JobID) error {
	return eng.orchestrator.Cancel(ctx, jobID)
}

// Await polls the store until the job reaches a terminal state or the
// context ends, and returns the final snapshot.
func (eng *Engine) Await(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	ticker := time.NewTicker(eng.awaitInterval)
	defer ticker.Stop()

	for {
		j, err := eng.store.GetJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if j.State.Terminal() {
			return j, nil
		}

		select {
		case <-ctx.Done():
			return j, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Start begins job processing.
func (eng *Engine) Start(ctx context.Context) error {
	return eng.svc.Start(ctx)
}

// Stop gracefully shuts down the engine.
func (eng *Engine) Stop(ctx context.Context) error {
	return eng.svc.Stop(ctx)
}

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Catalog returns the model catalog.
func (eng *Engine) Catalog() *model.Catalog { return eng.catalog }

// Service returns the underlying Service.
func (eng *Engine) Service() *training.Service { return eng.svc }

// LimitManager returns the limit manager, or nil if no limit configs were
// provided.
func (eng *Engine) LimitManager() *limit.Manager { return eng.limits }
