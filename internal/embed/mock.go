package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// MockClient produces deterministic embeddings without a network call.
// Texts sharing words produce nearby vectors, so dev-mode cache lookups and
// retrieval behave plausibly.
type MockClient struct {
	dim int
}

func NewMockClient(dim int) *MockClient {
	if dim <= 0 {
		dim = 64
	}
	return &MockClient{dim: dim}
}

func (c *MockClient) Embed(_ context.Context, text string) (Result, error) {
	vec := make([]float32, c.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(c.dim)] += 1
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}

	return Result{Vector: vec, Tokens: len(words)}, nil
}
