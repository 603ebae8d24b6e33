package httpx

import (
	"net/http"
	"time"

	domainauth "github.com/gatewarden/gatewarden/internal/domain/auth"
)

// Cookie names, fixed across every code path that sets or clears them.
const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

// CookieWriter owns every Set-Cookie decision for the auth credentials so
// names and attributes can never drift between call sites. Cookies are
// HTTP-only and SameSite=None for cross-site frontends; Secure is a
// deployment switch (off only for plain-HTTP development).
type CookieWriter struct {
	Domain     string
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// SetPair writes both credential cookies with max-ages matching the token
// lifetimes.
func (c *CookieWriter) SetPair(w http.ResponseWriter, pair domainauth.TokenPair) {
	c.set(w, AccessCookieName, pair.Access, c.AccessTTL)
	c.set(w, RefreshCookieName, pair.Refresh, c.RefreshTTL)
}

// Clear expires both credential cookies. Deletion mirrors the path and
// same-site attributes used when setting, or browsers will not remove them.
func (c *CookieWriter) Clear(w http.ResponseWriter) {
	c.clear(w, AccessCookieName)
	c.clear(w, RefreshCookieName)
}

// Apply consumes the authenticator's renewal signal, if any, attaching the
// replacement access cookie to the outgoing response. It runs once per
// response; a result without a signal passes through untouched.
func (c *CookieWriter) Apply(w http.ResponseWriter, res domainauth.Result) {
	if res.RenewedAccess == "" {
		return
	}
	c.set(w, AccessCookieName, res.RenewedAccess, c.AccessTTL)
}

func (c *CookieWriter) set(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteNoneMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func (c *CookieWriter) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteNoneMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
	})
}
