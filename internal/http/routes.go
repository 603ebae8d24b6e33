package httpx

import (
	"log/slog"
	"net/http"

	"github.com/gatewarden/gatewarden/internal/service"
)

// RouterServices carries the dependencies handlers need.
type RouterServices struct {
	Auth    *service.AuthService
	Cookies *CookieWriter
	Logger  *slog.Logger
}

// NewRouter builds the route table.
func NewRouter(svcs RouterServices) *http.ServeMux {
	mux := http.NewServeMux()

	auth := &AuthHandlers{Svc: svcs.Auth, Cookies: svcs.Cookies, Logger: svcs.Logger}

	mux.HandleFunc("POST /api/auth/login", auth.Login)
	mux.HandleFunc("POST /api/auth/refresh", auth.Refresh)
	mux.HandleFunc("POST /api/auth/logout", auth.Logout)
	mux.Handle("GET /api/auth/me", RequireAuth()(http.HandlerFunc(auth.Me)))
	mux.HandleFunc("GET /healthz", Health)
	mux.HandleFunc("HEAD /healthz", Health)

	return mux
}
