package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClientEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %q, want /embeddings", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Input != "hello" {
			t.Errorf("input = %q, want hello", req.Input)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":  []map[string]any{{"embedding": []float32{0.1, 0.2, 0.3}}},
			"usage": map[string]int{"total_tokens": 2},
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	got, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(got.Vector) != 3 || got.Vector[0] != 0.1 {
		t.Fatalf("Vector = %v", got.Vector)
	}
	if got.Tokens != 2 {
		t.Fatalf("Tokens = %d, want 2", got.Tokens)
	}
}

func TestHTTPClientEmbedServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(Config{BaseURL: srv.URL})
	if _, err := c.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("Embed() expected error on 429")
	}
}

func TestMockClientDeterministic(t *testing.T) {
	c := NewMockClient(32)
	a, err := c.Embed(context.Background(), "vacation policy for employees")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	b, _ := c.Embed(context.Background(), "vacation policy for employees")
	for i := range a.Vector {
		if a.Vector[i] != b.Vector[i] {
			t.Fatalf("mock embedding not deterministic at %d", i)
		}
	}
	if a.Tokens != 4 {
		t.Fatalf("Tokens = %d, want 4", a.Tokens)
	}
}
