package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gatewarden/gatewarden/internal/data"
	domainauth "github.com/gatewarden/gatewarden/internal/domain/auth"
	"github.com/gatewarden/gatewarden/internal/ports"
	"github.com/gatewarden/gatewarden/internal/token"
)

// Service-level sentinels surfaced to the HTTP layer.
var (
	// ErrInvalidCredentials covers a wrong password or a deactivated account.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRefreshInvalid covers an absent, expired, tampered, or already
	// rotated refresh token on the explicit refresh path.
	ErrRefreshInvalid = errors.New("invalid refresh token")
)

// AuthServiceOptions groups dependencies for AuthService. Blacklist may be
// nil, in which case refresh rotation is best-effort non-enforcing.
type AuthServiceOptions struct {
	Issuer    *token.Issuer
	Users     ports.UserStore
	Blacklist ports.RotationBlacklist
}

// AuthService resolves caller identity from cookie credentials with
// self-healing fallback, and drives the explicit login/refresh flows.
type AuthService struct {
	issuer    *token.Issuer
	users     ports.UserStore
	blacklist ports.RotationBlacklist
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	return &AuthService{
		issuer:    opts.Issuer,
		users:     opts.Users,
		blacklist: opts.Blacklist,
	}
}

// AccessTTL exposes the configured access lifetime for cookie max-age.
func (s *AuthService) AccessTTL() time.Duration { return s.issuer.AccessTTL() }

// RefreshTTL exposes the configured refresh lifetime for cookie max-age.
func (s *AuthService) RefreshTTL() time.Duration { return s.issuer.RefreshTTL() }

// Resolve performs one authentication pass over the raw cookie values.
//
// The order is fixed: a valid access token wins; otherwise a valid refresh
// token transparently mints a replacement access token, reported through
// Result.RenewedAccess for the response-finalizing step. Credential problems
// (expired, tampered, unknown user) deliberately degrade to Anonymous, the
// self-healing contract, while infrastructure failures (user store or
// blacklist unreachable) propagate so callers can tell the two apart.
func (s *AuthService) Resolve(ctx context.Context, rawAccess, rawRefresh string) (domainauth.Result, error) {
	if rawAccess != "" {
		if sub, err := s.issuer.VerifyAccess(rawAccess); err == nil {
			ident, err := s.users.FindByID(ctx, sub)
			switch {
			case err == nil && ident.Active:
				return domainauth.Result{
					State:       domainauth.StateAuthenticated,
					Identity:    ident,
					AccessToken: rawAccess,
				}, nil
			case err != nil && !errors.Is(err, data.ErrUserNotFound):
				return domainauth.Anonymous, fmt.Errorf("resolve access subject: %w", err)
			}
			// Unknown or deactivated subject: fall through to refresh.
		}
		// Verification failed: try refresh next. Never surfaced.
	}

	if rawRefresh == "" {
		return domainauth.Anonymous, nil
	}

	rc, err := s.issuer.VerifyRefresh(rawRefresh)
	if err != nil {
		return domainauth.Anonymous, nil
	}

	if s.blacklist != nil {
		consumed, err := s.blacklist.IsConsumed(ctx, rc.RotationID)
		if err != nil {
			return domainauth.Anonymous, fmt.Errorf("rotation blacklist: %w", err)
		}
		if consumed {
			return domainauth.Anonymous, nil
		}
	}

	ident, err := s.users.FindByID(ctx, rc.Subject)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			return domainauth.Anonymous, nil
		}
		return domainauth.Anonymous, fmt.Errorf("resolve refresh subject: %w", err)
	}
	if !ident.Active {
		return domainauth.Anonymous, nil
	}

	// Access-only remint; the refresh token rotates only on explicit
	// refresh calls.
	access, err := s.issuer.MintAccess(ident)
	if err != nil {
		return domainauth.Anonymous, fmt.Errorf("mint renewal token: %w", err)
	}

	return domainauth.Result{
		State:         domainauth.StateAuthenticated,
		Identity:      ident,
		AccessToken:   access,
		RenewedAccess: access,
	}, nil
}

// Login verifies the email/password pair and mints a fresh token pair.
// Unknown emails surface data.ErrUserNotFound so the endpoint can answer
// not-found and clear stale cookies.
func (s *AuthService) Login(ctx context.Context, email, password string) (domainauth.Identity, domainauth.TokenPair, error) {
	ident, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return domainauth.Identity{}, domainauth.TokenPair{}, fmt.Errorf("login lookup: %w", err)
	}
	if !ident.Active {
		return domainauth.Identity{}, domainauth.TokenPair{}, ErrInvalidCredentials
	}

	ok, err := s.users.VerifyPassword(ctx, ident.ID, password)
	if err != nil {
		return domainauth.Identity{}, domainauth.TokenPair{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return domainauth.Identity{}, domainauth.TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.issuer.Issue(ident)
	if err != nil {
		return domainauth.Identity{}, domainauth.TokenPair{}, fmt.Errorf("issue token pair: %w", err)
	}

	return ident, pair, nil
}

// Refresh rotates the refresh token: verifies it, issues a new pair with a
// fresh rotation id, and retires the old rotation id so the presented token
// cannot be replayed. With no blacklist wired, retirement is skipped and
// rotation is non-enforcing.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (domainauth.TokenPair, error) {
	if rawRefresh == "" {
		return domainauth.TokenPair{}, ErrRefreshInvalid
	}

	rc, err := s.issuer.VerifyRefresh(rawRefresh)
	if err != nil {
		return domainauth.TokenPair{}, fmt.Errorf("%w: %v", ErrRefreshInvalid, err)
	}

	if s.blacklist != nil {
		consumed, err := s.blacklist.IsConsumed(ctx, rc.RotationID)
		if err != nil {
			return domainauth.TokenPair{}, fmt.Errorf("rotation blacklist: %w", err)
		}
		if consumed {
			return domainauth.TokenPair{}, fmt.Errorf("%w: rotation id already consumed", ErrRefreshInvalid)
		}
	}

	ident, err := s.users.FindByID(ctx, rc.Subject)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			return domainauth.TokenPair{}, fmt.Errorf("%w: unknown subject", ErrRefreshInvalid)
		}
		return domainauth.TokenPair{}, fmt.Errorf("resolve refresh subject: %w", err)
	}
	if !ident.Active {
		return domainauth.TokenPair{}, fmt.Errorf("%w: subject deactivated", ErrRefreshInvalid)
	}

	pair, err := s.issuer.Rotate(rc)
	if err != nil {
		return domainauth.TokenPair{}, fmt.Errorf("issue rotated pair: %w", err)
	}

	if s.blacklist != nil {
		// TTL covers the retired token's remaining lifetime.
		if err := s.blacklist.Consume(ctx, rc.RotationID, time.Until(rc.ExpiresAt)); err != nil {
			return domainauth.TokenPair{}, fmt.Errorf("retire rotation id: %w", err)
		}
	}

	return pair, nil
}
