package limit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Config defines per-model-kind behaviour such as rate limiting and
// concurrency.
type Config struct {
	// Kind is the model kind the limits apply to (matches
	// job.Request.ModelKind).
	Kind string

	// MaxConcurrency limits how many jobs of this kind may run
	// simultaneously across the local runner pool. Zero means no
	// kind-specific limit (pool-wide concurrency still applies).
	MaxConcurrency int

	// RateLimit is the maximum sustained admissions per second for this
	// kind. Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int
}

// kindState tracks runtime state for a single model kind.
type kindState struct {
	config  Config
	limiter *rate.Limiter
	active  int
}

// Manager controls per-kind rate limiting and concurrency. It is safe for
// concurrent use.
type Manager struct {
	mu    sync.Mutex
	kinds map[string]*kindState
}

// NewManager creates a Manager with the given kind configurations.
// Kinds not listed here have no limits.
func NewManager(configs ...Config) *Manager {
	m := &Manager{
		kinds: make(map[string]*kindState, len(configs)),
	}
	for _, cfg := range configs {
		m.kinds[cfg.Kind] = newKindState(cfg)
	}
	return m
}

func newKindState(cfg Config) *kindState {
	ks := &kindState{config: cfg}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		ks.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return ks
}

// Acquire checks rate limits and concurrency for the given kind. If the
// job is allowed to proceed it increments the active counter and returns
// true. The caller MUST call Release when the job completes.
func (m *Manager) Acquire(kind string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ks := m.kinds[kind]
	if ks == nil {
		return true
	}

	if ks.limiter != nil && !ks.limiter.Allow() {
		return false
	}
	if ks.config.MaxConcurrency > 0 && ks.active >= ks.config.MaxConcurrency {
		return false
	}

	ks.active++
	return true
}

// Release decrements the active job count for the kind.
func (m *Manager) Release(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ks := m.kinds[kind]; ks != nil && ks.active > 0 {
		ks.active--
	}
}

// SetConfig dynamically updates (or creates) a kind configuration.
func (m *Manager) SetConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.kinds[cfg.Kind]
	ks := newKindState(cfg)

	// Preserve current active count if reconfiguring.
	if existing != nil {
		ks.active = existing.active
	}
	m.kinds[cfg.Kind] = ks
}

// ActiveCount returns the current number of active jobs for a kind.
func (m *Manager) ActiveCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ks := m.kinds[kind]; ks != nil {
		return ks.active
	}
	return 0
}
