package training

import (
	"context"
	"log/slog"
	"time"
)

// Option configures a Service.
type Option func(*Service) error

// Storer is the minimal store interface held by the Service. It covers
// lifecycle operations only; the full contract (store.Store) is consumed
// by the layers above that do not create import cycles.
type Storer interface {
	Ping(ctx context.Context) error
	Close() error
}

// orchestratorRunner is an internal interface for scheduler lifecycle.
type orchestratorRunner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// extensionEmitter is an internal interface for extension lifecycle events.
type extensionEmitter interface {
	EmitShutdown(ctx context.Context)
}

// Service is the central coordinator for training job processing.
//
// Create one with New() and functional options, then wire the subsystems
// together with engine.Build. The Service holds references to subsystem
// components via internal interfaces to avoid import cycles.
type Service struct {
	config       Config
	logger       *slog.Logger
	store        Storer
	extensions   extensionEmitter
	orchestrator orchestratorRunner

	started bool
}

// New creates a new Service with the given options.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Logger returns the service's logger.
func (s *Service) Logger() *slog.Logger { return s.logger }

// Store returns the service's store.
func (s *Service) Store() Storer { return s.store }

// Config returns a copy of the service's configuration.
func (s *Service) Config() Config { return s.config }

// SetOrchestrator sets the scheduler (called by the engine package).
func (s *Service) SetOrchestrator(o orchestratorRunner) { s.orchestrator = o }

// SetExtensions sets the extension emitter (called by the engine package).
func (s *Service) SetExtensions(e extensionEmitter) { s.extensions = e }

// Start begins job processing.
func (s *Service) Start(ctx context.Context) error {
	if s.orchestrator == nil {
		return ErrNoStore
	}
	if err := s.orchestrator.Start(ctx); err != nil {
		return err
	}
	s.started = true
	return nil
}

// Stop gracefully shuts down the service: the scheduler drains first, then
// extensions are notified, then the store is closed.
func (s *Service) Stop(ctx context.Context) error {
	if s.orchestrator != nil && s.started {
		if err := s.orchestrator.Stop(ctx); err != nil {
			s.logger.Error("scheduler stop error", "error", err)
		}
	}
	if s.extensions != nil {
		s.extensions.EmitShutdown(ctx)
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// WithConcurrency sets the number of concurrent training runners.
func WithConcurrency(n int) Option {
	return func(s *Service) error {
		s.config.Concurrency = n
		return nil
	}
}

// WithQueueDepth sets how many accepted jobs may wait behind the running
// ones before submissions are rejected with ErrOverloaded.
func WithQueueDepth(n int) Option {
	return func(s *Service) error {
		s.config.QueueDepth = n
		return nil
	}
}

// WithJobTimeout sets the default per-job wall-clock budget.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Service) error {
		s.config.JobTimeout = d
		return nil
	}
}

// WithPublishRetries sets the attempt count for the best-effort publish stage.
func WithPublishRetries(n int) Option {
	return func(s *Service) error {
		s.config.PublishRetries = n
		return nil
	}
}

// WithLogger sets the structured logger for the service.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) error {
		s.logger = l
		return nil
	}
}

// WithStore sets the job store backend. The store must implement Storer at
// minimum; typically it is a store.Store.
func WithStore(st Storer) Option {
	return func(s *Service) error {
		s.store = st
		return nil
	}
}
