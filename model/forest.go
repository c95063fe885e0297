package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"

	"github.com/GeneAlphaAI/genealpha-backend-training/dataset"
	"github.com/GeneAlphaAI/genealpha-backend-training/job"
)

// treeNode is one node of a regression tree, stored in a flat slice so the
// whole forest serializes cleanly. Leaves have Left == -1.
type treeNode struct {
	Feature   int     `msgpack:"f"`
	Threshold float64 `msgpack:"t"`
	Left      int     `msgpack:"l"`
	Right     int     `msgpack:"r"`
	Value     float64 `msgpack:"v"`
}

type tree struct {
	Nodes []treeNode `msgpack:"nodes"`
}

func (t *tree) predict(row []float64) float64 {
	i := 0
	for t.Nodes[i].Left >= 0 {
		if row[t.Nodes[i].Feature] <= t.Nodes[i].Threshold {
			i = t.Nodes[i].Left
		} else {
			i = t.Nodes[i].Right
		}
	}
	return t.Nodes[i].Value
}

// forestState is the serialized form of a fitted RandomForest.
type forestState struct {
	Trees    []tree `msgpack:"trees"`
	NFeature int    `msgpack:"n_feature"`
}

// RandomForest bags depth-bounded regression trees fitted on bootstrap
// samples, considering a random sqrt-sized feature subset at each split.
// Trees are fitted concurrently.
//
// Params:
//   - n_estimators      (int, default 50)
//   - max_depth         (int, default 6)
//   - min_samples_split (int, default 2)
//   - random_state      (int, default 42)
type RandomForest struct {
	state  *forestState
	fitted bool
}

// Kind implements Trainer.
func (*RandomForest) Kind() string { return KindRandomForest }

// Fit implements Trainer.
func (m *RandomForest) Fit(ctx context.Context, train *dataset.Split, params job.Params) error {
	if train.Len() == 0 {
		return errors.New("random forest: empty training set")
	}

	nTrees := params.Int("n_estimators", 50)
	maxDepth := params.Int("max_depth", 6)
	minSplit := params.Int("min_samples_split", 2)
	seed := params.Int("random_state", 42)
	if nTrees <= 0 || maxDepth <= 0 || minSplit < 2 {
		return fmt.Errorf("random forest: n_estimators=%d max_depth=%d min_samples_split=%d out of range", nTrees, maxDepth, minSplit)
	}

	nRows := train.Len()
	nFeat := len(train.Features[0])
	mtry := int(math.Ceil(math.Sqrt(float64(nFeat))))

	st := &forestState{
		Trees:    make([]tree, nTrees),
		NFeature: nFeat,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for ti := range nTrees {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			rng := rand.New(rand.NewPCG(uint64(seed), uint64(ti)))

			// Bootstrap sample.
			rows := make([]int, nRows)
			for i := range rows {
				rows[i] = rng.IntN(nRows)
			}

			b := treeBuilder{
				features: train.Features,
				labels:   train.Labels,
				maxDepth: maxDepth,
				minSplit: minSplit,
				mtry:     mtry,
				rng:      rng,
			}
			b.grow(rows, 0)
			st.Trees[ti] = tree{Nodes: b.nodes}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	m.state = st
	m.fitted = true
	return nil
}

// Predict implements Trainer.
func (m *RandomForest) Predict(features [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}

	out := make([]float64, len(features))
	for i, row := range features {
		if len(row) != m.state.NFeature {
			return nil, fmt.Errorf("random forest: row has %d features, model has %d", len(row), m.state.NFeature)
		}
		var sum float64
		for ti := range m.state.Trees {
			sum += m.state.Trees[ti].predict(row)
		}
		out[i] = sum / float64(len(m.state.Trees))
	}
	return out, nil
}

// Serialize implements Trainer.
func (m *RandomForest) Serialize() ([]byte, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	return msgpack.Marshal(m.state)
}

// Restore loads fitted state from a Serialize artifact.
func (m *RandomForest) Restore(data []byte) error {
	var st forestState
	if err := msgpack.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("random forest: restore: %w", err)
	}
	m.state = &st
	m.fitted = true
	return nil
}

// treeBuilder grows one regression tree over row indexes into the shared
// training matrix.
type treeBuilder struct {
	features [][]float64
	labels   []float64
	maxDepth int
	minSplit int
	mtry     int
	rng      *rand.Rand
	nodes    []treeNode
}

// grow appends the subtree for the given rows and returns its node index.
func (b *treeBuilder) grow(rows []int, depth int) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{Left: -1, Right: -1, Value: b.mean(rows)})

	if depth >= b.maxDepth || len(rows) < b.minSplit {
		return idx
	}

	feature, threshold, ok := b.bestSplit(rows)
	if !ok {
		return idx
	}

	var left, right []int
	for _, r := range rows {
		if b.features[r][feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return idx
	}

	b.nodes[idx].Feature = feature
	b.nodes[idx].Threshold = threshold
	b.nodes[idx].Left = b.grow(left, depth+1)
	b.nodes[idx].Right = b.grow(right, depth+1)
	return idx
}

func (b *treeBuilder) mean(rows []int) float64 {
	var sum float64
	for _, r := range rows {
		sum += b.labels[r]
	}
	return sum / float64(len(rows))
}

// bestSplit scans a random feature subset for the threshold minimizing the
// weighted sum of squared errors of the two children.
func (b *treeBuilder) bestSplit(rows []int) (feature int, threshold float64, ok bool) {
	nFeat := len(b.features[rows[0]])

	candidates := b.rng.Perm(nFeat)
	if len(candidates) > b.mtry {
		candidates = candidates[:b.mtry]
	}

	best := math.Inf(1)
	values := make([]float64, len(rows))

	for _, f := range candidates {
		for i, r := range rows {
			values[i] = b.features[r][f]
		}
		sort.Float64s(values)

		for i := 0; i+1 < len(values); i++ {
			if values[i] == values[i+1] {
				continue
			}
			t := (values[i] + values[i+1]) / 2
			sse := b.splitSSE(rows, f, t)
			if sse < best {
				best = sse
				feature = f
				threshold = t
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

func (b *treeBuilder) splitSSE(rows []int, feature int, threshold float64) float64 {
	var nL, nR float64
	var sumL, sumR float64
	for _, r := range rows {
		if b.features[r][feature] <= threshold {
			nL++
			sumL += b.labels[r]
		} else {
			nR++
			sumR += b.labels[r]
		}
	}
	if nL == 0 || nR == 0 {
		return math.Inf(1)
	}
	meanL, meanR := sumL/nL, sumR/nR

	var sse float64
	for _, r := range rows {
		var d float64
		if b.features[r][feature] <= threshold {
			d = b.labels[r] - meanL
		} else {
			d = b.labels[r] - meanR
		}
		sse += d * d
	}
	return sse
}
