package index

import (
	"context"

	"github.com/minervaai/minerva/internal/sparse"
)

// Match is one retrieved child fragment.
type Match struct {
	ID       string
	Score    float64
	Text     string
	ParentID string
	Metadata map[string]any
}

// Query is a single hybrid index query. Sparse is optional; when nil the
// query is dense-only. Role is the caller's corpus role and drives the
// mandatory visibility filter: fragments not flagged for Role must never be
// returned.
type Query struct {
	Dense  []float32
	Sparse *sparse.Vector
	TopK   int
	Role   string
}

// Querier is the vector index contract. An empty result slice is a value,
// not an error.
type Querier interface {
	Query(ctx context.Context, q Query) ([]Match, error)
}
