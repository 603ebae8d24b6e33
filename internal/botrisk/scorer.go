// Package botrisk scores inbound requests for automated-client likelihood.
// The score is a sum of independent heuristics over request metadata plus the
// shared rate counter; it is deterministic given identical inputs and counter
// state.
package botrisk

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	domainauth "github.com/gatewarden/gatewarden/internal/domain/auth"
	"github.com/gatewarden/gatewarden/internal/ports"
)

// suspiciousUAKeywords are substrings of well-known script and crawler
// client names, matched case-insensitively against the User-Agent value.
var suspiciousUAKeywords = []string{
	"postman", "curl", "wget", "python", "requests",
	"httpclient", "scrapy", "bot", "spider", "crawler",
}

// integrityHeaders are sent by virtually all modern browsers; their absence
// is weighted one point each.
var integrityHeaders = []string{
	"Accept-Language",
	"Sec-Fetch-Site",
	"Sec-Fetch-Mode",
	"Sec-Fetch-Dest",
}

// Heuristic weights.
const (
	weightMissingUA      = 2
	weightSuspiciousUA   = 3
	weightMissingReferer = 1
	weightRateLimited    = 2
)

// Scorer evaluates one request and produces a RiskAssessment. It holds no
// per-request state; the only shared state it touches is the rate limiter's
// counter store.
type Scorer struct {
	limiter ports.RateLimiter
}

// NewScorer creates a Scorer consulting the given rate limiter.
func NewScorer(limiter ports.RateLimiter) *Scorer {
	return &Scorer{limiter: limiter}
}

// Score runs every heuristic and returns the additive verdict. A rate
// counter store failure propagates; it never reads as "no bot detected".
func (s *Scorer) Score(r *http.Request) (domainauth.RiskAssessment, error) {
	var out domainauth.RiskAssessment

	ua := strings.ToLower(r.Header.Get("User-Agent"))
	switch {
	case ua == "":
		out.Score += weightMissingUA
		out.Reasons = append(out.Reasons, "Missing User-Agent")
	case matchesKeyword(ua):
		out.Score += weightSuspiciousUA
		out.Reasons = append(out.Reasons, "Suspicious User-Agent: "+ua)
	}

	if missing := missingIntegrityHeaders(r); len(missing) > 0 {
		out.Score += len(missing)
		out.Reasons = append(out.Reasons, "Missing browser-integrity headers: "+strings.Join(missing, ", "))
	}

	if r.Header.Get("Referer") == "" {
		out.Score += weightMissingReferer
		out.Reasons = append(out.Reasons, "Missing Referer header")
	}

	if ip := ClientIP(r); ip != "" {
		limited, err := s.limiter.IsLimited(r.Context(), ip)
		if err != nil {
			return domainauth.RiskAssessment{}, fmt.Errorf("bot risk scoring: %w", err)
		}
		if limited {
			out.Score += weightRateLimited
			out.Reasons = append(out.Reasons, "Rate limit exceeded for IP: "+ip)
		}
	}

	return out, nil
}

func matchesKeyword(lowerUA string) bool {
	for _, kw := range suspiciousUAKeywords {
		if strings.Contains(lowerUA, kw) {
			return true
		}
	}
	return false
}

func missingIntegrityHeaders(r *http.Request) []string {
	var missing []string
	for _, h := range integrityHeaders {
		if r.Header.Get(h) == "" {
			missing = append(missing, h)
		}
	}
	return missing
}

// ClientIP extracts the caller's address, preferring the first entry of
// X-Forwarded-For (the original client when behind a proxy or load balancer)
// and falling back to the direct peer address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
