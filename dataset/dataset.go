package dataset

import (
	"context"
	"fmt"
	"math/rand/v2"

	training "github.com/GeneAlphaAI/genealpha-backend-training"
	"github.com/GeneAlphaAI/genealpha-backend-training/job"
)

// Split is one feature-label set: a dense feature matrix plus a label
// vector, with the feature column names preserved for diagnostics.
type Split struct {
	Columns  []string
	Features [][]float64
	Labels   []float64
}

// Len returns the number of rows.
func (s *Split) Len() int { return len(s.Labels) }

// Source resolves one form of dataset reference.
type Source interface {
	// Match reports whether this source handles the given reference.
	Match(ref string) bool

	// Resolve produces the training split and, when the configuration
	// requests a validation fraction, a validation split. Failures wrap
	// training.ErrDataset.
	Resolve(ctx context.Context, ref string, split job.SplitConfig, params job.Params) (train, val *Split, err error)
}

// Resolver dispatches a dataset reference to the first matching source.
type Resolver struct {
	sources []Source
}

// NewResolver creates a resolver over the given sources, tried in order.
func NewResolver(sources ...Source) *Resolver {
	return &Resolver{sources: sources}
}

// DefaultResolver returns a resolver with all built-in sources registered.
func DefaultResolver() *Resolver {
	return NewResolver(&SampleSource{}, &CSVSource{}, NewHTTPSource(nil))
}

// Register appends a source. Later registrations lose ties to earlier ones.
func (r *Resolver) Register(s Source) {
	r.sources = append(r.sources, s)
}

// Resolve finds a source for the reference and resolves it.
func (r *Resolver) Resolve(ctx context.Context, ref string, split job.SplitConfig, params job.Params) (*Split, *Split, error) {
	for _, s := range r.sources {
		if s.Match(ref) {
			return s.Resolve(ctx, ref, split, params)
		}
	}
	return nil, nil, fmt.Errorf("%w: no source handles reference %q", training.ErrDataset, ref)
}

// partition shuffles rows with the configured seed and divides them by the
// validation fraction. The shuffled copy is local; input slices are not
// reordered.
func partition(columns []string, features [][]float64, labels []float64, cfg job.SplitConfig) (*Split, *Split, error) {
	n := len(labels)
	if n == 0 {
		return nil, nil, fmt.Errorf("%w: dataset is empty", training.ErrDataset)
	}
	if len(features) != n {
		return nil, nil, fmt.Errorf("%w: %d feature rows for %d labels", training.ErrDataset, len(features), n)
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)+1))
	rng.Shuffle(n, func(i, k int) { idx[i], idx[k] = idx[k], idx[i] })

	nVal := int(float64(n) * cfg.ValidationSplit)
	gather := func(ids []int) *Split {
		s := &Split{
			Columns:  columns,
			Features: make([][]float64, len(ids)),
			Labels:   make([]float64, len(ids)),
		}
		for i, row := range ids {
			s.Features[i] = features[row]
			s.Labels[i] = labels[row]
		}
		return s
	}

	train := gather(idx[nVal:])
	if nVal == 0 {
		return train, nil, nil
	}
	return train, gather(idx[:nVal]), nil
}
