package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_Success(t *testing.T) {
	stack := newTestStack(t)

	req := httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"email":"user@example.com","password":"correct horse"}`))
	rec := httptest.NewRecorder()
	stack.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "Login successful", body["message"])

	access := cookieByName(t, rec, AccessCookieName)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, "/", access.Path)
	assert.Equal(t, http.SameSiteNoneMode, access.SameSite)
	assert.Equal(t, int((60 * time.Minute).Seconds()), access.MaxAge)

	refresh := cookieByName(t, rec, RefreshCookieName)
	assert.True(t, refresh.HttpOnly)
	assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), refresh.MaxAge)

	// Both values verify against the issuer.
	sub, err := stack.issuer.VerifyAccess(access.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(42), sub)

	rc, err := stack.issuer.VerifyRefresh(refresh.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(42), rc.Subject)
}

func TestLogin_UnknownEmail(t *testing.T) {
	stack := newTestStack(t)

	req := httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"email":"nobody@example.com","password":"whatever"}`))
	rec := httptest.NewRecorder()
	stack.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	// Failed login clears any stale credential cookies.
	access := cookieByName(t, rec, AccessCookieName)
	assert.Empty(t, access.Value)
	assert.Equal(t, -1, access.MaxAge)
	assert.Equal(t, "/", access.Path)
	assert.Equal(t, http.SameSiteNoneMode, access.SameSite)

	refresh := cookieByName(t, rec, RefreshCookieName)
	assert.Empty(t, refresh.Value)
	assert.Equal(t, -1, refresh.MaxAge)
}

func TestLogin_WrongPassword(t *testing.T) {
	stack := newTestStack(t)

	req := httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"email":"user@example.com","password":"wrong"}`))
	rec := httptest.NewRecorder()
	stack.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, cookieByName(t, rec, AccessCookieName).Value)
}

func TestLogin_MalformedBody(t *testing.T) {
	stack := newTestStack(t)

	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	stack.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefresh_RotatesPair(t *testing.T) {
	stack := newTestStack(t)

	pair, err := stack.issuer.Issue(stack.users.byID[42])
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: pair.Refresh})
	rec := httptest.NewRecorder()
	stack.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	refresh := cookieByName(t, rec, RefreshCookieName)
	assert.NotEqual(t, pair.Refresh, refresh.Value)

	// The presented token is retired: replaying it must fail.
	replay := httptest.NewRequest("POST", "/api/auth/refresh", nil)
	replay.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: pair.Refresh})
	rec = httptest.NewRecorder()
	stack.handler.ServeHTTP(rec, replay)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh_NoCookie(t *testing.T) {
	stack := newTestStack(t)

	req := httptest.NewRequest("POST", "/api/auth/refresh", nil)
	rec := httptest.NewRecorder()
	stack.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_ClearsCookies(t *testing.T) {
	stack := newTestStack(t)

	pair, err := stack.issuer.Issue(stack.users.byID[42])
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: pair.Access})
	req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: pair.Refresh})
	rec := httptest.NewRecorder()
	stack.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "Logged out", body["message"])

	access := cookieByName(t, rec, AccessCookieName)
	assert.Empty(t, access.Value)
	assert.Equal(t, -1, access.MaxAge)
}

func TestMe_Authenticated(t *testing.T) {
	stack := newTestStack(t)

	pair, err := stack.issuer.Issue(stack.users.byID[42])
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: pair.Access})
	rec := httptest.NewRecorder()
	stack.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "user@example.com", body["email"])
}

func TestMe_Anonymous(t *testing.T) {
	stack := newTestStack(t)

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	stack.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthz_PlainJSON(t *testing.T) {
	stack := newTestStack(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	stack.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
