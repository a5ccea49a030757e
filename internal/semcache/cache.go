package semcache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/minervaai/minerva/internal/kv"
)

const keyPrefix = "semantic_cache:"

// Entry is one cached answer, stored serialized in the keyed store.
type Entry struct {
	Role      string    `json:"role"`
	Question  string    `json:"question"`
	Embedding []float32 `json:"embedding"`
	Answer    string    `json:"answer"`
	StoredAt  time.Time `json:"ts"`
}

// Hit is a successful semantic lookup.
type Hit struct {
	Answer string
	Score  float64
}

// Cache matches incoming question embeddings against previously answered
// questions for the same role. Entries live in the keyed store under
// semantic_cache:<role>:<md5(question)> and expire via store-level TTL.
type Cache struct {
	store     kv.Store
	threshold float64
	ttl       time.Duration
}

func New(store kv.Store, threshold float64, ttl time.Duration) *Cache {
	if threshold <= 0 {
		threshold = 0.6
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{store: store, threshold: threshold, ttl: ttl}
}

// Lookup scans every entry scoped to role and returns the best cosine match
// at or above the similarity threshold, or nil on a miss. Two entries with
// equal scores tie-break by scan enumeration order: the first one seen wins,
// because only a strictly greater score displaces the current best.
// Malformed entries are skipped.
func (c *Cache) Lookup(ctx context.Context, role string, embedding []float32) (*Hit, error) {
	keys, err := c.store.Scan(ctx, keyPrefix+role+":*")
	if err != nil {
		return nil, fmt.Errorf("scan cache keys: %w", err)
	}

	var (
		best      *Entry
		bestScore float64
	)
	for _, key := range keys {
		raw, err := c.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read cache entry: %w", err)
		}
		if raw == "" {
			// Expired between scan and read.
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil || len(entry.Embedding) == 0 {
			continue
		}
		if len(entry.Embedding) != len(embedding) {
			// Stored under a different embedding dimensionality; treated
			// like a malformed entry, never scored over a prefix.
			continue
		}
		if score := cosine(embedding, entry.Embedding); score > bestScore {
			bestScore = score
			e := entry
			best = &e
		}
	}

	if best == nil || bestScore < c.threshold {
		return nil, nil
	}
	return &Hit{Answer: best.Answer, Score: bestScore}, nil
}

// Store writes a cache entry with the configured TTL. Callers treat failures
// as non-fatal: an unstorable answer is still an answer.
func (c *Cache) Store(ctx context.Context, role, question string, embedding []float32, answer string) error {
	entry := Entry{
		Role:      role,
		Question:  question,
		Embedding: embedding,
		Answer:    answer,
		StoredAt:  time.Now().UTC(),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := c.store.Set(ctx, cacheKey(role, question), string(raw), c.ttl); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

func cacheKey(role, question string) string {
	sum := md5.Sum([]byte(question))
	return keyPrefix + role + ":" + hex.EncodeToString(sum[:])
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
