package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minervaai/minerva/internal/sparse"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPConfig configures the Pinecone-style vector index client.
type HTTPConfig struct {
	// URL is the index endpoint (the per-index host, not the control plane).
	URL string

	// APIKey is sent as the Api-Key header.
	APIKey string

	// Timeout is the HTTP request timeout. Defaults to 10s.
	Timeout time.Duration
}

// HTTPQuerier queries a serverless vector index over its REST API.
// Safe for concurrent use.
type HTTPQuerier struct {
	cfg    HTTPConfig
	client *http.Client
}

func NewHTTPQuerier(cfg HTTPConfig) *HTTPQuerier {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	return &HTTPQuerier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// --- index wire types ---

type wireQuery struct {
	Vector          []float32      `json:"vector"`
	SparseVector    *sparse.Vector `json:"sparseVector,omitempty"`
	TopK            int            `json:"topK"`
	IncludeMetadata bool           `json:"includeMetadata"`
	Filter          map[string]any `json:"filter"`
}

type wireMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

type wireResponse struct {
	Matches []wireMatch `json:"matches"`
	Message string      `json:"message,omitempty"`
}

func (q *HTTPQuerier) Query(ctx context.Context, query Query) ([]Match, error) {
	body := wireQuery{
		Vector:          query.Dense,
		SparseVector:    query.Sparse,
		TopK:            query.TopK,
		IncludeMetadata: true,
		// The role flag filter is the access-control boundary. It is always
		// sent, even when the sparse vector is absent.
		Filter: map[string]any{query.Role: map[string]any{"$eq": true}},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal index query: %w", err)
	}

	url := strings.TrimRight(q.cfg.URL, "/") + "/query"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create index request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", q.cfg.APIKey)

	res, err := q.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("index request: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read index response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("index status %d: %s", res.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed wireResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode index response: %w", err)
	}

	matches := make([]Match, 0, len(parsed.Matches))
	for _, m := range parsed.Matches {
		matches = append(matches, fromWire(m))
	}
	return matches, nil
}

func fromWire(m wireMatch) Match {
	out := Match{
		ID:       m.ID,
		Score:    m.Score,
		Metadata: m.Metadata,
	}
	if m.Metadata != nil {
		if text, ok := m.Metadata["text"].(string); ok {
			out.Text = text
		}
		if pid, ok := m.Metadata["parent_id"].(string); ok {
			out.ParentID = pid
		}
	}
	return out
}
