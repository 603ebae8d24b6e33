package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RotationBlacklist retires refresh-token rotation ids in Redis. Entries are
// written with a TTL covering the retired token's remaining lifetime, after
// which the token has expired on its own and the entry is dead weight anyway.
type RotationBlacklist struct {
	client redis.UniversalClient
	prefix string
}

// NewRotationBlacklist creates a blacklist with the default key prefix.
func NewRotationBlacklist(client redis.UniversalClient) *RotationBlacklist {
	return &RotationBlacklist{client: client, prefix: "rotation:consumed:"}
}

// Consume marks a rotation id as used for at least ttl.
func (b *RotationBlacklist) Consume(ctx context.Context, rotationID string, ttl time.Duration) error {
	if rotationID == "" {
		return errors.New("rotation id cannot be empty")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}

	key := b.prefix + rotationID
	if err := b.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// IsConsumed reports whether the rotation id has been retired. Store failures
// propagate; a broken blacklist must not read as "not consumed".
func (b *RotationBlacklist) IsConsumed(ctx context.Context, rotationID string) (bool, error) {
	if rotationID == "" {
		return false, nil
	}

	key := b.prefix + rotationID
	n, err := b.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %q: %w", key, err)
	}
	return n > 0, nil
}
