package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.cohere.com/v2"
	defaultModel   = "rerank-v3.5"
	defaultTimeout = 10 * time.Second
)

// Config configures the Cohere-compatible rerank client.
type Config struct {
	// APIKey is the bearer token used to authenticate against the API.
	APIKey string

	// BaseURL overrides the API endpoint. Defaults to https://api.cohere.com/v2.
	BaseURL string

	// Model is the rerank model. Defaults to rerank-v3.5.
	Model string

	// Timeout is the HTTP request timeout. Defaults to 10s.
	Timeout time.Duration
}

// HTTPScorer calls a Cohere-style rerank endpoint. Safe for concurrent use.
type HTTPScorer struct {
	cfg    Config
	client *http.Client
}

func NewHTTPScorer(cfg Config) *HTTPScorer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &HTTPScorer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// --- rerank wire types ---

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
	Message string `json:"message,omitempty"`
}

func (s *HTTPScorer) Score(ctx context.Context, query string, documents []string, topN int) ([]Ranking, error) {
	payload, err := json.Marshal(rerankRequest{
		Model:     s.cfg.Model,
		Query:     query,
		Documents: documents,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read rerank response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("rerank status %d: %s", res.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed rerankResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	rankings := make([]Ranking, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		rankings = append(rankings, Ranking{Index: r.Index, Relevance: r.RelevanceScore})
	}
	return rankings, nil
}
