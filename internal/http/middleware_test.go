package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/botrisk"
	domainauth "github.com/gatewarden/gatewarden/internal/domain/auth"
)

// fakeLimiter drives the scorer's rate-limit heuristic in middleware tests.
type fakeLimiter struct {
	isLimitedFunc func(context.Context, string) (bool, error)
}

func (f *fakeLimiter) IsLimited(ctx context.Context, key string) (bool, error) {
	if f.isLimitedFunc != nil {
		return f.isLimitedFunc(ctx, key)
	}
	return false, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestBotFilter_RejectsScriptClient(t *testing.T) {
	mw := BotFilter(BotFilterConfig{
		Scorer:    botrisk.NewScorer(&fakeLimiter{}),
		Threshold: 4,
		Logger:    discardLogger(),
	})

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	req.Header.Set("User-Agent", "curl/8.5.0")
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)

	var body struct {
		Error  string   `json:"error"`
		Score  int      `json:"score"`
		Reason []string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Suspicious activity detected", body.Error)
	assert.Equal(t, 8, body.Score)
	assert.NotEmpty(t, body.Reason)
}

func TestBotFilter_AllowsBrowserRequest(t *testing.T) {
	mw := BotFilter(BotFilterConfig{
		Scorer:    botrisk.NewScorer(&fakeLimiter{}),
		Threshold: 4,
		Logger:    discardLogger(),
	})

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")
	req.Header.Set("Accept-Language", "en-US")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Referer", "https://app.example.com/")
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBotFilter_BypassShortCircuits(t *testing.T) {
	scoreErr := errors.New("must not be called")
	mw := BotFilter(BotFilterConfig{
		Scorer: botrisk.NewScorer(&fakeLimiter{
			isLimitedFunc: func(context.Context, string) (bool, error) { return false, scoreErr },
		}),
		Threshold: 4,
		Bypass:    true,
		Logger:    discardLogger(),
	})

	// A blatant script client sails through when bypassed.
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("User-Agent", "curl/8.5.0")
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBotFilter_SkipPaths(t *testing.T) {
	mw := BotFilter(BotFilterConfig{
		Scorer:    botrisk.NewScorer(&fakeLimiter{}),
		Threshold: 4,
		SkipPaths: []string{"/healthz"},
		Logger:    discardLogger(),
	})

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBotFilter_CounterFailureIs503(t *testing.T) {
	mw := BotFilter(BotFilterConfig{
		Scorer: botrisk.NewScorer(&fakeLimiter{
			isLimitedFunc: func(context.Context, string) (bool, error) {
				return false, errors.New("connection refused")
			},
		}),
		Threshold: 4,
		Logger:    discardLogger(),
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthenticate_RenewalCookieOnResponse(t *testing.T) {
	stack := newTestStack(t)

	pair, err := stack.issuer.Issue(stack.users.byID[42])
	require.NoError(t, err)

	// Refresh cookie only: the pass heals and attaches a fresh access cookie.
	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: pair.Refresh})
	rec := httptest.NewRecorder()
	stack.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	access := cookieByName(t, rec, AccessCookieName)
	require.NotEmpty(t, access.Value)
	assert.Equal(t, int((60 * time.Minute).Seconds()), access.MaxAge)

	sub, err := stack.issuer.VerifyAccess(access.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(42), sub)

	// The refresh cookie stays untouched on the self-healing path.
	assert.False(t, hasCookie(rec, RefreshCookieName))
}

func TestAuthenticate_NoRenewalOnValidAccess(t *testing.T) {
	stack := newTestStack(t)

	pair, err := stack.issuer.Issue(stack.users.byID[42])
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: pair.Access})
	rec := httptest.NewRecorder()
	stack.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, hasCookie(rec, AccessCookieName), "a valid access token must not be re-set")
}

func TestAuthenticate_GarbageCookiesDegradeToAnonymous(t *testing.T) {
	stack := newTestStack(t)

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: "garbage"})
	req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: "garbage"})
	rec := httptest.NewRecorder()
	stack.handler.ServeHTTP(rec, req)

	// Anonymous, not a transport error; the guard answers 401.
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_StoreFailureIs503(t *testing.T) {
	stack := newTestStack(t)
	stack.users.lookupErr = errors.New("connection refused")

	pair, err := stack.issuer.Issue(domainauth.Identity{ID: 42})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: pair.Access})
	rec := httptest.NewRecorder()
	stack.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRecover_PanicIs500(t *testing.T) {
	mw := Recover(discardLogger())
	handler := mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLogging_PreservesStatus(t *testing.T) {
	mw := Logging(discardLogger())
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
}
