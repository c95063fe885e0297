package model

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/GeneAlphaAI/genealpha-backend-training/dataset"
	"github.com/GeneAlphaAI/genealpha-backend-training/job"
)

// ErrNotFitted is returned by Predict and Serialize before a successful Fit.
var ErrNotFitted = errors.New("model: not fitted")

// linearState is the serialized form of a fitted LinearRegression.
type linearState struct {
	Weights []float64 `msgpack:"weights"`
	Bias    float64   `msgpack:"bias"`
	Means   []float64 `msgpack:"means"`
	Scales  []float64 `msgpack:"scales"`
}

// LinearRegression fits least squares by full-batch gradient descent on
// standardized features.
//
// Params:
//   - learning_rate (float, default 0.05)
//   - epochs        (int, default 500)
//   - l2            (float, default 0): ridge penalty on the weights
type LinearRegression struct {
	state  *linearState
	fitted bool
}

// Kind implements Trainer.
func (*LinearRegression) Kind() string { return KindLinearRegression }

// Fit implements Trainer.
func (m *LinearRegression) Fit(ctx context.Context, train *dataset.Split, params job.Params) error {
	if train.Len() == 0 {
		return errors.New("linear regression: empty training set")
	}

	lr := params.Float("learning_rate", 0.05)
	epochs := params.Int("epochs", 500)
	l2 := params.Float("l2", 0)
	if lr <= 0 || epochs <= 0 {
		return fmt.Errorf("linear regression: learning_rate=%v epochs=%d must be positive", lr, epochs)
	}

	nRows := train.Len()
	nFeat := len(train.Features[0])

	means, scales := standardize(train.Features, nFeat)

	st := &linearState{
		Weights: make([]float64, nFeat),
		Means:   means,
		Scales:  scales,
	}

	grad := make([]float64, nFeat)
	for epoch := 0; epoch < epochs; epoch++ {
		if epoch%64 == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		for k := range grad {
			grad[k] = 0
		}
		var gradBias float64

		for i, row := range train.Features {
			pred := st.Bias
			for k, x := range row {
				pred += st.Weights[k] * (x - means[k]) / scales[k]
			}
			residual := pred - train.Labels[i]
			gradBias += residual
			for k, x := range row {
				grad[k] += residual * (x - means[k]) / scales[k]
			}
		}

		inv := 1.0 / float64(nRows)
		st.Bias -= lr * gradBias * inv
		diverged := math.IsNaN(st.Bias) || math.IsInf(st.Bias, 0)
		for k := range st.Weights {
			st.Weights[k] -= lr * (grad[k]*inv + l2*st.Weights[k])
			if math.IsNaN(st.Weights[k]) || math.IsInf(st.Weights[k], 0) {
				diverged = true
			}
		}
		if diverged {
			return fmt.Errorf("linear regression: diverged at epoch %d (learning_rate=%v)", epoch, lr)
		}
	}

	m.state = st
	m.fitted = true
	return nil
}

// Predict implements Trainer.
func (m *LinearRegression) Predict(features [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}

	out := make([]float64, len(features))
	for i, row := range features {
		if len(row) != len(m.state.Weights) {
			return nil, fmt.Errorf("linear regression: row has %d features, model has %d", len(row), len(m.state.Weights))
		}
		y := m.state.Bias
		for k, x := range row {
			y += m.state.Weights[k] * (x - m.state.Means[k]) / m.state.Scales[k]
		}
		out[i] = y
	}
	return out, nil
}

// Serialize implements Trainer.
func (m *LinearRegression) Serialize() ([]byte, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	return msgpack.Marshal(m.state)
}

// Restore loads fitted state from a Serialize artifact.
func (m *LinearRegression) Restore(data []byte) error {
	var st linearState
	if err := msgpack.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("linear regression: restore: %w", err)
	}
	m.state = &st
	m.fitted = true
	return nil
}

// standardize computes per-column means and scales (standard deviation,
// floored at a small epsilon so constant columns stay finite).
func standardize(features [][]float64, nFeat int) (means, scales []float64) {
	means = make([]float64, nFeat)
	scales = make([]float64, nFeat)
	n := float64(len(features))

	for _, row := range features {
		for k, x := range row {
			means[k] += x
		}
	}
	for k := range means {
		means[k] /= n
	}
	for _, row := range features {
		for k, x := range row {
			d := x - means[k]
			scales[k] += d * d
		}
	}
	for k := range scales {
		scales[k] = math.Sqrt(scales[k] / n)
		if scales[k] < 1e-9 {
			scales[k] = 1
		}
	}
	return means, scales
}
