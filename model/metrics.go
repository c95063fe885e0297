package model

import "math"

// Metric names produced by Score. The executor prefixes them with the
// split they were computed on ("train_", "val_").
const (
	MetricMSE  = "mse"
	MetricRMSE = "rmse"
	MetricMAE  = "mae"
	MetricR2   = "r2"
)

// Score computes the fixed regression metric set over parallel actual and
// predicted vectors. Empty or mismatched inputs return nil.
func Score(actual, predicted []float64) map[string]float64 {
	n := len(actual)
	if n == 0 || len(predicted) != n {
		return nil
	}

	var mean float64
	for _, y := range actual {
		mean += y
	}
	mean /= float64(n)

	var sse, sae, sst float64
	for i, y := range actual {
		d := y - predicted[i]
		sse += d * d
		sae += math.Abs(d)
		dm := y - mean
		sst += dm * dm
	}

	mse := sse / float64(n)
	r2 := 1.0
	if sst > 0 {
		r2 = 1 - sse/sst
	}

	return map[string]float64{
		MetricMSE:  mse,
		MetricRMSE: math.Sqrt(mse),
		MetricMAE:  sae / float64(n),
		MetricR2:   r2,
	}
}
