package sparse

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"sort"
	"strings"
	"unicode"
)

// Vector is a sparse term-weight vector in the index wire format: parallel
// term-id and weight slices, sorted by term id.
type Vector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

// Encoder builds BM25-style query vectors from the term statistics the
// offline ingestion job exports. Query-side BM25 reduces to the IDF weight
// per query term, so the stats file only carries per-token IDF values.
type Encoder struct {
	idf map[string]float64
}

// statsFile mirrors the JSON the ingestion pipeline writes.
type statsFile struct {
	IDF map[string]float64 `json:"idf"`
}

var errNoTerms = errors.New("no indexed terms in query")

// Load reads the term-statistics file produced by ingestion.
func Load(path string) (*Encoder, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sparse stats: %w", err)
	}
	var stats statsFile
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, fmt.Errorf("decode sparse stats: %w", err)
	}
	if len(stats.IDF) == 0 {
		return nil, errors.New("sparse stats file has no idf table")
	}
	return &Encoder{idf: stats.IDF}, nil
}

// NewEncoder builds an encoder from an in-memory IDF table. Used in tests
// and by dev mode.
func NewEncoder(idf map[string]float64) *Encoder {
	return &Encoder{idf: idf}
}

// EncodeQuery tokenizes the question and returns the weighted sparse vector.
// Tokens absent from the IDF table carry no signal and are dropped; an error
// is returned when nothing remains, which callers treat as dense-only.
func (e *Encoder) EncodeQuery(text string) (Vector, error) {
	weights := make(map[uint32]float32)
	for _, tok := range tokenize(text) {
		w, ok := e.idf[tok]
		if !ok || w <= 0 {
			continue
		}
		weights[termID(tok)] += float32(w)
	}
	if len(weights) == 0 {
		return Vector{}, errNoTerms
	}

	indices := make([]uint32, 0, len(weights))
	for id := range weights {
		indices = append(indices, id)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float32, len(indices))
	for i, id := range indices {
		values[i] = weights[id]
	}
	return Vector{Indices: indices, Values: values}, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func termID(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return h.Sum32()
}
