package httpx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/data"
	domainauth "github.com/gatewarden/gatewarden/internal/domain/auth"
	"github.com/gatewarden/gatewarden/internal/obfuscate"
	"github.com/gatewarden/gatewarden/internal/service"
	"github.com/gatewarden/gatewarden/internal/token"
)

// fakeUsers is a test helper backing the auth service with in-memory users.
type fakeUsers struct {
	byID      map[int64]domainauth.Identity
	passwords map[int64]string
	lookupErr error
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (domainauth.Identity, error) {
	if f.lookupErr != nil {
		return domainauth.Identity{}, f.lookupErr
	}
	for _, ident := range f.byID {
		if ident.Email == email {
			return ident, nil
		}
	}
	return domainauth.Identity{}, data.ErrUserNotFound
}

func (f *fakeUsers) FindByID(_ context.Context, id int64) (domainauth.Identity, error) {
	if f.lookupErr != nil {
		return domainauth.Identity{}, f.lookupErr
	}
	ident, ok := f.byID[id]
	if !ok {
		return domainauth.Identity{}, data.ErrUserNotFound
	}
	return ident, nil
}

func (f *fakeUsers) VerifyPassword(_ context.Context, id int64, raw string) (bool, error) {
	if f.lookupErr != nil {
		return false, f.lookupErr
	}
	return f.passwords[id] == raw, nil
}

// fakeBlacklist is an in-memory rotation blacklist.
type fakeBlacklist struct {
	retired map[string]bool
}

func (f *fakeBlacklist) Consume(_ context.Context, rotationID string, _ time.Duration) error {
	if f.retired == nil {
		f.retired = map[string]bool{}
	}
	f.retired[rotationID] = true
	return nil
}

func (f *fakeBlacklist) IsConsumed(_ context.Context, rotationID string) (bool, error) {
	return f.retired[rotationID], nil
}

type testStack struct {
	svc     *service.AuthService
	issuer  *token.Issuer
	users   *fakeUsers
	cookies *CookieWriter
	handler http.Handler
}

// newTestStack assembles the full handler chain (minus bot filtering) over
// in-memory stores, with one active seed user.
func newTestStack(t *testing.T) *testStack {
	t.Helper()

	issuer, err := token.NewIssuer(token.Config{
		SigningKey: []byte("test-signing-key-0123456789"),
		Issuer:     "gatewarden-test",
	})
	require.NoError(t, err)

	users := &fakeUsers{
		byID: map[int64]domainauth.Identity{
			42: {ID: 42, Email: "user@example.com", Active: true},
		},
		passwords: map[int64]string{42: "correct horse"},
	}

	svc := service.NewAuthService(service.AuthServiceOptions{
		Issuer:    issuer,
		Users:     users,
		Blacklist: &fakeBlacklist{},
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cookies := &CookieWriter{
		Secure:     true,
		AccessTTL:  issuer.AccessTTL(),
		RefreshTTL: issuer.RefreshTTL(),
	}

	router := NewRouter(RouterServices{Auth: svc, Cookies: cookies, Logger: logger})
	handler := Authenticate(svc, cookies, logger)(router)

	return &testStack{svc: svc, issuer: issuer, users: users, cookies: cookies, handler: handler}
}

// decodeBody reverses the response encoding pipeline into dst.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	raw, err := obfuscate.Decode(rec.Body.String())
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dst))
}

// cookieByName finds a response cookie, failing the test when absent.
func cookieByName(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set on response", name)
	return nil
}

func hasCookie(rec *httptest.ResponseRecorder, name string) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return true
		}
	}
	return false
}
