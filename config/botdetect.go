package config

import "time"

// BotDetectConfig contains bot detection and rate limiting configuration.
type BotDetectConfig struct {
	// Bypass disables bot detection entirely. Intended for development;
	// defaults on when DEV=true and BOT_DETECT_BYPASS is unset.
	Bypass bool `env:"BOT_DETECT_BYPASS" envDefault:"false"`

	// BlockThreshold is the risk score at which a request is rejected.
	BlockThreshold int `env:"BOT_DETECT_BLOCK_THRESHOLD" envDefault:"4"`

	// RateLimitWindow is the fixed window for per-IP request counting.
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`

	// RateLimitMax is the number of requests allowed per window.
	RateLimitMax int64 `env:"RATE_LIMIT_MAX" envDefault:"60"`
}

// Sanitize applies guardrails to bot detection configuration values.
func (b *BotDetectConfig) Sanitize() {
	if b.BlockThreshold < 1 {
		b.BlockThreshold = 4
	}
	if b.RateLimitWindow <= 0 {
		b.RateLimitWindow = 60 * time.Second
	}
	if b.RateLimitMax < 1 {
		b.RateLimitMax = 60
	}
}
