package parents

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// Fragment is one parent document window. Parents are produced offline by
// the ingestion pipeline and immutable here.
type Fragment struct {
	Text     string
	Metadata map[string]any
}

// Store holds every parent fragment, loaded once per process lifetime.
type Store struct {
	byID map[string]Fragment
}

type record struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// Load reads a JSONL file of parent fragments keyed by metadata.parent_id
// (falling back to the record id). Malformed lines are skipped. A missing
// file yields an empty store: a corpus without parent windows still answers,
// with child-only context.
func Load(path string) (*Store, error) {
	s := &Store{byID: make(map[string]Fragment)}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("open parent fragments: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		id := rec.ID
		if rec.Metadata != nil {
			if pid, ok := rec.Metadata["parent_id"].(string); ok && pid != "" {
				id = pid
			}
		}
		if id == "" {
			continue
		}
		s.byID[id] = Fragment{Text: rec.Text, Metadata: rec.Metadata}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read parent fragments: %w", err)
	}

	return s, nil
}

// NewStore builds a store from an in-memory map. Used in tests and dev mode.
func NewStore(fragments map[string]Fragment) *Store {
	byID := make(map[string]Fragment, len(fragments))
	for id, f := range fragments {
		byID[id] = f
	}
	return &Store{byID: byID}
}

// Get returns the parent fragment for an id.
func (s *Store) Get(id string) (Fragment, bool) {
	f, ok := s.byID[id]
	return f, ok
}

// Len returns the number of loaded parent fragments.
func (s *Store) Len() int {
	return len(s.byID)
}
