package embed

import "context"

// Result is one embedded text plus the token cost reported by the service.
type Result struct {
	Vector []float32
	Tokens int
}

// Client turns text into a dense vector. The embedding service is a required
// collaborator: the pipeline cannot proceed without it.
type Client interface {
	Embed(ctx context.Context, text string) (Result, error)
}
