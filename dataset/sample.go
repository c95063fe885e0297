package dataset

import (
	"context"
	"fmt"
	"math/rand/v2"

	training "github.com/GeneAlphaAI/genealpha-backend-training"
	"github.com/GeneAlphaAI/genealpha-backend-training/job"
)

// SampleRef is the reference name of the built-in synthetic dataset.
const SampleRef = "sample"

// SampleSource synthesizes a linear regression dataset: features drawn
// uniformly from [-1, 1), labels as a seeded random linear combination
// plus Gaussian noise. Row and feature counts come from the request
// params ("n_samples", "n_features").
type SampleSource struct{}

// Match implements Source.
func (*SampleSource) Match(ref string) bool { return ref == SampleRef }

// Resolve implements Source.
func (*SampleSource) Resolve(_ context.Context, _ string, split job.SplitConfig, params job.Params) (*Split, *Split, error) {
	nSamples := params.Int("n_samples", 1000)
	nFeatures := params.Int("n_features", 10)
	noise := params.Float("noise", 0.1)
	if nSamples <= 0 || nFeatures <= 0 {
		return nil, nil, fmt.Errorf("%w: n_samples=%d n_features=%d must be positive", training.ErrDataset, nSamples, nFeatures)
	}

	rng := rand.New(rand.NewPCG(uint64(split.Seed)+2, uint64(split.Seed)+3))

	weights := make([]float64, nFeatures)
	for i := range weights {
		weights[i] = rng.Float64()*4 - 2
	}
	bias := rng.Float64()*2 - 1

	columns := make([]string, nFeatures)
	for i := range columns {
		columns[i] = fmt.Sprintf("x%d", i)
	}

	features := make([][]float64, nSamples)
	labels := make([]float64, nSamples)
	for i := range features {
		row := make([]float64, nFeatures)
		y := bias
		for k := range row {
			row[k] = rng.Float64()*2 - 1
			y += weights[k] * row[k]
		}
		features[i] = row
		labels[i] = y + rng.NormFloat64()*noise
	}

	return partition(columns, features, labels, split)
}
