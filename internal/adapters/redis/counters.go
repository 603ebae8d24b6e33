// Package redis provides Redis-based adapters for the gatewarden core: the
// shared rate counter store and the refresh rotation blacklist.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore is a Redis-backed TTL counter shared across all instances.
// Increment uses INCR, the store's atomic increment-and-get primitive, which
// creates missing keys at 1; the window TTL is attached on first hit. Under
// concurrency the count can therefore only over-report, never under-report.
type CounterStore struct {
	client redis.UniversalClient
	prefix string
}

// NewCounterStore creates a counter store with the default key prefix.
func NewCounterStore(client redis.UniversalClient) *CounterStore {
	return &CounterStore{client: client, prefix: "bot:rate:"}
}

// NewCounterStoreWithPrefix creates a counter store with a custom key prefix.
func NewCounterStoreWithPrefix(client redis.UniversalClient, prefix string) *CounterStore {
	return &CounterStore{client: client, prefix: prefix}
}

// Increment bumps the counter for key and returns the post-increment value.
// A failure is a store failure; it is never reported as a zero count.
func (s *CounterStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	redisKey := s.prefix + key

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %q: %w", redisKey, err)
	}

	// Fixed-window semantics: the TTL starts when the key is created and is
	// never extended by later hits.
	if count == 1 {
		if err := s.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return 0, fmt.Errorf("redis expire %q: %w", redisKey, err)
		}
	}

	return count, nil
}
