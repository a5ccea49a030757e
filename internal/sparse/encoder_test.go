package sparse

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEncodeQuery(t *testing.T) {
	enc := NewEncoder(map[string]float64{
		"vacation": 2.5,
		"policy":   1.2,
	})

	vec, err := enc.EncodeQuery("What is the Vacation policy?")
	if err != nil {
		t.Fatalf("EncodeQuery() error = %v", err)
	}
	if len(vec.Indices) != 2 || len(vec.Values) != 2 {
		t.Fatalf("vector = %+v, want 2 terms", vec)
	}
	for i := 1; i < len(vec.Indices); i++ {
		if vec.Indices[i-1] >= vec.Indices[i] {
			t.Fatalf("indices not sorted: %v", vec.Indices)
		}
	}

	// Same token repeated accumulates weight.
	rep, err := enc.EncodeQuery("policy policy")
	if err != nil {
		t.Fatalf("EncodeQuery() error = %v", err)
	}
	if len(rep.Values) != 1 || rep.Values[0] != 2.4 {
		t.Fatalf("repeated term weight = %+v, want [2.4]", rep.Values)
	}
}

func TestEncodeQueryNoKnownTerms(t *testing.T) {
	enc := NewEncoder(map[string]float64{"vacation": 2.5})
	if _, err := enc.EncodeQuery("zzz qqq"); err == nil {
		t.Fatal("EncodeQuery() expected error for unknown terms")
	}
}

func TestLoadStatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bm25.json")
	if err := os.WriteFile(path, []byte(`{"idf":{"leave":1.7}}`), 0o600); err != nil {
		t.Fatalf("write stats: %v", err)
	}

	enc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := enc.EncodeQuery("parental leave"); err != nil {
		t.Fatalf("EncodeQuery() error = %v", err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}
