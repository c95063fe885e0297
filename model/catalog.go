package model

import (
	"context"
	"fmt"
	"sort"
	"sync"

	training "github.com/GeneAlphaAI/genealpha-backend-training"
	"github.com/GeneAlphaAI/genealpha-backend-training/dataset"
	"github.com/GeneAlphaAI/genealpha-backend-training/job"
)

// KindLinearRegression and KindRandomForest name the built-in trainers.
const (
	KindLinearRegression = "linear_regression"
	KindRandomForest     = "random_forest"
)

// Trainer is the uniform capability over one trainable algorithm. A
// Trainer instance is owned by a single pipeline run; implementations need
// not be safe for concurrent use.
type Trainer interface {
	// Kind returns the catalog name this trainer is registered under.
	Kind() string

	// Fit trains on the given split. Hyperparameters come from the
	// request params; implementations fall back to their documented
	// defaults for absent keys. Fit honors ctx cancellation between
	// internal iterations on a best-effort basis.
	Fit(ctx context.Context, train *dataset.Split, params job.Params) error

	// Predict returns one prediction per feature row. It fails if the
	// trainer has not been fitted.
	Predict(features [][]float64) ([]float64, error)

	// Serialize encodes the fitted state into a portable artifact.
	Serialize() ([]byte, error)
}

// Factory constructs a fresh, unfitted Trainer.
type Factory func() Trainer

// Catalog maps model kind names to trainer factories.
// It is safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// DefaultCatalog returns a catalog with all built-in trainers registered.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	c.Register(KindLinearRegression, func() Trainer { return &LinearRegression{} })
	c.Register(KindRandomForest, func() Trainer { return &RandomForest{} })
	return c
}

// Register binds a kind name to a factory. Re-registering a name replaces
// the previous factory.
func (c *Catalog) Register(kind string, f Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[kind] = f
}

// Resolve instantiates a fresh trainer for the given kind.
func (c *Catalog) Resolve(kind string) (Trainer, error) {
	c.mu.RLock()
	f, ok := c.factories[kind]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", training.ErrUnknownModelKind, kind, c.Kinds())
	}
	return f(), nil
}

// Kinds returns all registered kind names, sorted.
func (c *Catalog) Kinds() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	kinds := make([]string, 0, len(c.factories))
	for kind := range c.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
