package botrisk

import (
	"context"
	"fmt"
	"time"

	"github.com/gatewarden/gatewarden/internal/ports"
)

// LimiterConfig holds fixed-window tuning parameters.
type LimiterConfig struct {
	// Window is the counting window; counters expire wholesale when it ends.
	Window time.Duration
	// Max is the number of requests allowed per key per window.
	Max int64
}

const (
	defaultWindow = 60 * time.Second
	defaultMax    = 60
)

// FixedWindowLimiter counts requests per client key over a TTL window in a
// shared counter store. The count is taken with a single atomic
// increment-and-get, so concurrent requests can only over-count; a counter
// never reports fewer hits than actually arrived. A window ends by TTL
// expiry, which resets the key entirely; counts are never decremented.
type FixedWindowLimiter struct {
	counters ports.CounterStore
	config   LimiterConfig
}

// NewFixedWindowLimiter creates a limiter over the given counter store.
func NewFixedWindowLimiter(counters ports.CounterStore, cfg LimiterConfig) *FixedWindowLimiter {
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.Max <= 0 {
		cfg.Max = defaultMax
	}
	return &FixedWindowLimiter{counters: counters, config: cfg}
}

// IsLimited records one request for key and reports whether the key has
// exceeded its window budget: with a budget of 60, the 61st request inside
// one window is the first limited one. A counter store failure propagates so
// operators can distinguish "not limited" from "limiting broken".
func (l *FixedWindowLimiter) IsLimited(ctx context.Context, key string) (bool, error) {
	count, err := l.counters.Increment(ctx, key, l.config.Window)
	if err != nil {
		return false, fmt.Errorf("rate counter: %w", err)
	}
	return count > l.config.Max, nil
}
