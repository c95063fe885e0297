package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	training "github.com/GeneAlphaAI/genealpha-backend-training"
	"github.com/GeneAlphaAI/genealpha-backend-training/job"
)

// defaultTargetColumn is assumed when the request names no target.
const defaultTargetColumn = "target"

// CSVSource resolves local *.csv paths. The first row is the header;
// non-numeric cells are label-encoded per column in first-seen order.
type CSVSource struct{}

// Match implements Source. Remote URLs are left to the HTTP source even
// when they end in .csv.
func (*CSVSource) Match(ref string) bool {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return false
	}
	return strings.HasSuffix(ref, ".csv")
}

// Resolve implements Source.
func (*CSVSource) Resolve(_ context.Context, ref string, split job.SplitConfig, _ job.Params) (*Split, *Split, error) {
	f, err := os.Open(ref)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open %s: %v", training.ErrDataset, ref, err)
	}
	defer f.Close()

	columns, features, labels, err := decodeCSV(f, split)
	if err != nil {
		return nil, nil, err
	}
	return partition(columns, features, labels, split)
}

// decodeCSV reads a headered CSV table and extracts the feature matrix and
// label vector per the split configuration. Shared by the CSV and HTTP
// sources.
func decodeCSV(r io.Reader, cfg job.SplitConfig) ([]string, [][]float64, []float64, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: read header: %v", training.ErrDataset, err)
	}

	target := cfg.TargetColumn
	if target == "" {
		target = defaultTargetColumn
	}

	targetIdx := -1
	for i, name := range header {
		if name == target {
			targetIdx = i
			break
		}
	}
	if targetIdx < 0 {
		return nil, nil, nil, fmt.Errorf("%w: target column %q not in header %v", training.ErrDataset, target, header)
	}

	// Column indexes to use as features: the explicit list, or every
	// column except the target.
	var featureIdx []int
	if len(cfg.FeatureColumns) > 0 {
		want := make(map[string]int, len(header))
		for i, name := range header {
			want[name] = i
		}
		for _, name := range cfg.FeatureColumns {
			i, ok := want[name]
			if !ok {
				return nil, nil, nil, fmt.Errorf("%w: feature column %q not in header", training.ErrDataset, name)
			}
			featureIdx = append(featureIdx, i)
		}
	} else {
		for i := range header {
			if i != targetIdx {
				featureIdx = append(featureIdx, i)
			}
		}
	}

	columns := make([]string, len(featureIdx))
	for i, idx := range featureIdx {
		columns[i] = header[idx]
	}

	// Per-column label encoding for non-numeric cells, first-seen order.
	encoders := make([]map[string]float64, len(header))

	cell := func(col int, raw string) float64 {
		if v, numErr := strconv.ParseFloat(strings.TrimSpace(raw), 64); numErr == nil {
			return v
		}
		if encoders[col] == nil {
			encoders[col] = make(map[string]float64)
		}
		enc, ok := encoders[col][raw]
		if !ok {
			enc = float64(len(encoders[col]))
			encoders[col][raw] = enc
		}
		return enc
	}

	var (
		features [][]float64
		labels   []float64
	)
	for {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, nil, nil, fmt.Errorf("%w: read row: %v", training.ErrDataset, readErr)
		}

		row := make([]float64, len(featureIdx))
		for i, idx := range featureIdx {
			row[i] = cell(idx, record[idx])
		}
		features = append(features, row)
		labels = append(labels, cell(targetIdx, record[targetIdx]))
	}

	if len(labels) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: no data rows", training.ErrDataset)
	}
	return columns, features, labels, nil
}
