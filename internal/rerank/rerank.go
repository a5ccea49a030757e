package rerank

import (
	"context"
	"sort"

	"github.com/minervaai/minerva/internal/index"
)

// Ranking is one scored candidate, addressed by its position in the input
// document list.
type Ranking struct {
	Index     int
	Relevance float64
}

// Scorer is the cross-encoder reranking service contract.
type Scorer interface {
	Score(ctx context.Context, query string, documents []string, topN int) ([]Ranking, error)
}

// Selection is the outcome of candidate selection. Scored tells which branch
// produced it: true means the reranking service ordered and filtered the
// candidates, false means the deterministic fallback kept the first
// candidates in original retrieval order.
type Selection struct {
	Matches []index.Match
	Scores  []float64
	Scored  bool
}

// Select reranks candidates with the scorer when one is configured. Scored
// candidates are sorted by descending relevance, filtered to relevance >=
// threshold and truncated to keep. On a nil scorer or any scorer failure the
// fallback keeps the first `keep` candidates unreordered; the failure is
// absorbed, never surfaced.
func Select(ctx context.Context, scorer Scorer, query string, candidates []index.Match, threshold float64, keep int) Selection {
	if keep <= 0 {
		keep = 3
	}
	if len(candidates) == 0 {
		return Selection{}
	}

	if scorer == nil {
		return fallback(candidates, keep)
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Text
	}

	rankings, err := scorer.Score(ctx, query, docs, len(docs))
	if err != nil {
		return fallback(candidates, keep)
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].Relevance > rankings[j].Relevance
	})

	sel := Selection{Scored: true}
	for _, r := range rankings {
		if r.Index < 0 || r.Index >= len(candidates) {
			continue
		}
		if r.Relevance < threshold {
			continue
		}
		sel.Matches = append(sel.Matches, candidates[r.Index])
		sel.Scores = append(sel.Scores, r.Relevance)
		if len(sel.Matches) == keep {
			break
		}
	}
	return sel
}

func fallback(candidates []index.Match, keep int) Selection {
	if len(candidates) > keep {
		candidates = candidates[:keep]
	}
	out := make([]index.Match, len(candidates))
	copy(out, candidates)
	return Selection{Matches: out}
}
