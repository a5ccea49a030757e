package kv

import (
	"context"
	"time"
)

// Store is the keyed-store contract the service depends on. All shared
// mutable state (semantic cache entries, session turn logs, session
// summaries) lives behind this interface; the core does no in-process
// locking around it.
//
// A missing key is not an error: Get returns an empty string and ListRange
// returns an empty slice. A ttl of zero means no expiration.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	ListAppend(ctx context.Context, key, value string) error
	ListRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ListTrim(ctx context.Context, key string, start, stop int64) error

	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Scan returns every key matching a glob-style pattern.
	Scan(ctx context.Context, pattern string) ([]string, error)

	Close() error
}
