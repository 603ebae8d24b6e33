// Package token mints and verifies the signed access/refresh credential
// pairs carried in cookies. Verification is stateless: validity is decided by
// signature, expiry, and kind alone. Rotation enforcement (retiring consumed
// rotation ids) belongs to the caller's blacklist collaborator.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domainauth "github.com/gatewarden/gatewarden/internal/domain/auth"
)

// Typed verification failures. Callers decide fallback behavior; nothing is
// swallowed here.
var (
	// ErrTokenExpired indicates a structurally valid token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid indicates a malformed token or a kind mismatch.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenTampered indicates a signature that does not verify.
	ErrTokenTampered = errors.New("token signature mismatch")
)

// Config holds issuer tuning parameters. SigningKey is required; zero TTLs
// fall back to the defaults below.
type Config struct {
	SigningKey []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
}

const (
	defaultAccessTTL  = 60 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims is the signed claim set for both token kinds. Kind discriminates
// access from refresh; RotationID is set on refresh tokens only.
type Claims struct {
	Kind       string `json:"kind"`
	RotationID string `json:"rid,omitempty"`
	jwt.RegisteredClaims
}

// Issuer creates, verifies, and rotates token pairs. It has no storage or
// network dependencies and is safe for concurrent use.
type Issuer struct {
	config Config
}

// NewIssuer validates the configuration and constructs an Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("token signing key is required")
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	if cfg.AccessTTL < 0 || cfg.RefreshTTL < 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	return &Issuer{config: cfg}, nil
}

// AccessTTL returns the configured access-token lifetime. Cookie max-age is
// derived from it so the two can never drift apart.
func (i *Issuer) AccessTTL() time.Duration { return i.config.AccessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.config.RefreshTTL }

// Issue mints a fresh access/refresh pair for the identity. The refresh token
// carries a new rotation id.
func (i *Issuer) Issue(ident domainauth.Identity) (domainauth.TokenPair, error) {
	access, err := i.sign(ident.ID, domainauth.KindAccess, "", i.config.AccessTTL)
	if err != nil {
		return domainauth.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := i.sign(ident.ID, domainauth.KindRefresh, uuid.NewString(), i.config.RefreshTTL)
	if err != nil {
		return domainauth.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return domainauth.TokenPair{Access: access, Refresh: refresh}, nil
}

// MintAccess mints a replacement access token for the identity without
// touching the refresh credential. Used by the self-healing renewal path,
// where only explicit refresh calls rotate the refresh token.
func (i *Issuer) MintAccess(ident domainauth.Identity) (string, error) {
	access, err := i.sign(ident.ID, domainauth.KindAccess, "", i.config.AccessTTL)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return access, nil
}

// VerifyAccess checks signature, expiry, and kind == access, returning the
// subject id on success.
func (i *Issuer) VerifyAccess(raw string) (int64, error) {
	claims, err := i.parse(raw, domainauth.KindAccess)
	if err != nil {
		return 0, err
	}
	return subjectID(claims)
}

// VerifyRefresh checks signature, expiry, and kind == refresh, returning the
// verified refresh claims. Blacklist consultation is the caller's concern.
func (i *Issuer) VerifyRefresh(raw string) (domainauth.RefreshClaims, error) {
	claims, err := i.parse(raw, domainauth.KindRefresh)
	if err != nil {
		return domainauth.RefreshClaims{}, err
	}

	sub, err := subjectID(claims)
	if err != nil {
		return domainauth.RefreshClaims{}, err
	}
	if claims.RotationID == "" {
		return domainauth.RefreshClaims{}, fmt.Errorf("%w: missing rotation id", ErrTokenInvalid)
	}

	out := domainauth.RefreshClaims{Subject: sub, RotationID: claims.RotationID}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Rotate mints a new access token and a new refresh token (fresh rotation id)
// for the subject of a verified refresh token. The caller is expected to
// retire rc.RotationID via its blacklist so the old token cannot be replayed.
func (i *Issuer) Rotate(rc domainauth.RefreshClaims) (domainauth.TokenPair, error) {
	return i.Issue(domainauth.Identity{ID: rc.Subject})
}

func (i *Issuer) sign(subject int64, kind domainauth.TokenKind, rotationID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Kind:       string(kind),
		RotationID: rotationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(subject, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    i.config.Issuer,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.config.SigningKey)
}

func (i *Issuer) parse(raw string, kind domainauth.TokenKind) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return i.config.SigningKey, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Kind != string(kind) {
		return nil, fmt.Errorf("%w: kind %q, want %q", ErrTokenInvalid, claims.Kind, kind)
	}

	return claims, nil
}

// classifyParseError maps jwt library failures onto the package's typed
// errors so call sites can discriminate without importing the library.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrTokenTampered, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}

func subjectID(claims *Claims) (int64, error) {
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: non-numeric subject", ErrTokenInvalid)
	}
	return id, nil
}
