package kv

import (
	"context"
	"strings"
)

// NewStore creates a Redis-backed store when configured, otherwise in-memory.
func NewStore(ctx context.Context, redisURL string) (Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return NewInMemoryStore(), nil
	}
	return NewRedisStore(ctx, RedisOptions{URL: redisURL})
}
