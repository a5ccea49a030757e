package index

import (
	"context"
	"math"
	"sort"
)

// Fragment is one indexed child fragment held by the mock index.
type Fragment struct {
	ID        string
	Text      string
	ParentID  string
	Embedding []float32
	Roles     map[string]bool
}

// MockQuerier is an in-process index for dev mode and tests. It applies the
// same role-flag filter contract as the real backends.
type MockQuerier struct {
	fragments []Fragment
}

func NewMockQuerier(fragments []Fragment) *MockQuerier {
	return &MockQuerier{fragments: fragments}
}

func (m *MockQuerier) Query(_ context.Context, q Query) ([]Match, error) {
	topK := q.TopK
	if topK <= 0 {
		topK = 10
	}

	var matches []Match
	for _, f := range m.fragments {
		if !f.Roles[q.Role] {
			continue
		}
		matches = append(matches, Match{
			ID:       f.ID,
			Score:    cosine(q.Dense, f.Embedding),
			Text:     f.Text,
			ParentID: f.ParentID,
			Metadata: map[string]any{"text": f.Text, "parent_id": f.ParentID},
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
