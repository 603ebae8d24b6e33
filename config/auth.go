package config

import "time"

// AuthConfig groups token signing and cookie configuration.
type AuthConfig struct {
	// SigningKey is the HMAC key used to sign tokens. Required.
	SigningKey string `env:"TOKEN_SIGNING_KEY,required"`

	// AccessTTL is the lifetime of access tokens.
	AccessTTL time.Duration `env:"TOKEN_ACCESS_TTL" envDefault:"60m"`

	// RefreshTTL is the lifetime of refresh tokens.
	RefreshTTL time.Duration `env:"TOKEN_REFRESH_TTL" envDefault:"168h"`

	// Issuer is the token issuer claim.
	Issuer string `env:"TOKEN_ISSUER" envDefault:"gatewarden"`

	// CookieSecure marks auth cookies Secure. Disable only for local
	// plain-HTTP development.
	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"true"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.AccessTTL <= 0 {
		a.AccessTTL = 60 * time.Minute
	}
	if a.RefreshTTL <= 0 {
		a.RefreshTTL = 168 * time.Hour
	}
}
