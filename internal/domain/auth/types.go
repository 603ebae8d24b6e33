// Package auth contains domain-level types for authentication and request
// filtering. It is pure and free of framework/adapter concerns.
package auth

import "time"

// Identity represents the principal resolved from the external user store.
// This core only reads identities; it never creates or mutates them.
type Identity struct {
	ID     int64  `json:"id"`
	Email  string `json:"email"`
	Active bool   `json:"active"`
}

// TokenKind discriminates access and refresh credentials. The two are never
// interchangeable in validation logic.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// TokenPair is a freshly minted access/refresh credential pair in serialized
// (wire) form.
type TokenPair struct {
	Access  string
	Refresh string
}

// State is the outcome of one authentication pass. Credential problems never
// surface as transport errors; they degrade to StateAnonymous instead.
type State string

const (
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

// Result is the authenticator's per-request output. RenewedAccess carries the
// serialized replacement access token when the pass minted one from a valid
// refresh credential; the response-finalizing step consumes it exactly once.
type Result struct {
	State         State
	Identity      Identity
	AccessToken   string
	RenewedAccess string
}

// Authenticated reports whether the pass resolved a caller identity.
func (r Result) Authenticated() bool { return r.State == StateAuthenticated }

// Anonymous is the outcome for requests carrying no usable credential.
var Anonymous = Result{State: StateAnonymous}

// RiskAssessment is the ephemeral verdict for one inbound request. Score is
// additive over the individual heuristics; Reasons preserves evaluation order.
type RiskAssessment struct {
	Score   int      `json:"score"`
	Reasons []string `json:"reason"`
}

// RefreshClaims is the verified content of a refresh token as the core's
// components exchange it: subject identity, rotation id, and expiry.
type RefreshClaims struct {
	Subject    int64
	RotationID string
	ExpiresAt  time.Time
}
