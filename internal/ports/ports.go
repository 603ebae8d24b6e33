// Package ports defines interfaces (hexagonal ports) for the collaborators
// the authentication core consumes. Implementations live in internal/adapters
// and internal/data; orchestration in internal/service.
package ports

import (
	"context"
	"time"

	domainauth "github.com/gatewarden/gatewarden/internal/domain/auth"
)

// UserStore resolves identities from the external user backend.
//
// Lookups distinguish "no such user" (data.ErrUserNotFound) from backend
// unavailability; the authenticator degrades only on the former.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (domainauth.Identity, error)
	FindByID(ctx context.Context, id int64) (domainauth.Identity, error)

	// VerifyPassword checks a raw password against the stored hash for the
	// identity. A mismatch returns (false, nil); errors mean the check could
	// not be performed.
	VerifyPassword(ctx context.Context, id int64, raw string) (bool, error)
}

// RotationBlacklist retires refresh-token rotation ids. Once a rotation id is
// consumed, any token still carrying it must fail verification. A nil
// blacklist makes rotation best-effort non-enforcing.
type RotationBlacklist interface {
	// Consume marks the rotation id as used for at least ttl.
	Consume(ctx context.Context, rotationID string, ttl time.Duration) error
	// IsConsumed reports whether the rotation id has been retired.
	IsConsumed(ctx context.Context, rotationID string) (bool, error)
}

// CounterStore is a shared TTL-expiring counter, keyed by client identifier.
// Increment is atomic increment-and-get; the window TTL is applied when the
// increment created the key.
type CounterStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimiter answers whether a client key has exceeded its request budget
// for the current window. Store failures propagate; they are never masked as
// "not limited".
type RateLimiter interface {
	IsLimited(ctx context.Context, key string) (bool, error)
}
