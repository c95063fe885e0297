package dataset

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	training "github.com/GeneAlphaAI/genealpha-backend-training"
	"github.com/GeneAlphaAI/genealpha-backend-training/job"
)

// HTTPSource resolves http(s):// references by fetching a CSV body. It is
// the remote-dataset counterpart of CSVSource; the same header/encoding
// rules apply to the response body.
type HTTPSource struct {
	client *http.Client
}

// NewHTTPSource creates an HTTPSource. A nil client uses http.DefaultClient.
func NewHTTPSource(client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{client: client}
}

// Match implements Source.
func (*HTTPSource) Match(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Resolve implements Source.
func (h *HTTPSource) Resolve(ctx context.Context, ref string, split job.SplitConfig, _ job.Params) (*Split, *Split, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: build request for %s: %v", training.ErrDataset, ref, err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: fetch %s: %v", training.ErrDataset, ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("%w: fetch %s: status %d", training.ErrDataset, ref, resp.StatusCode)
	}

	columns, features, labels, err := decodeCSV(resp.Body, split)
	if err != nil {
		return nil, nil, err
	}
	return partition(columns, features, labels, split)
}
