package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gatewarden/gatewarden/internal/botrisk"
	domainauth "github.com/gatewarden/gatewarden/internal/domain/auth"
	"github.com/gatewarden/gatewarden/internal/service"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// BotFilterConfig groups bot-filter middleware dependencies and tunables.
type BotFilterConfig struct {
	Scorer *botrisk.Scorer
	// Threshold is the score at which a request is rejected.
	Threshold int
	// Bypass short-circuits scoring entirely (development deployments).
	Bypass bool
	// SkipPaths are exempt from scoring (health probes).
	SkipPaths []string
	Logger    *slog.Logger
}

// BotFilter returns a middleware that scores inbound requests and rejects
// likely automated clients before any further processing. A counter-store
// failure is surfaced as a 503, never as a pass: "no bot detected" and "bot
// detection broken" must stay distinguishable.
func BotFilter(cfg BotFilterConfig) func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Bypass || skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			assessment, err := cfg.Scorer.Score(r)
			if err != nil {
				cfg.Logger.ErrorContext(r.Context(), "bot risk scoring failed", "error", err)
				WriteError(w, ErrorParams{
					Code:    http.StatusServiceUnavailable,
					ErrCode: "bot_detection_unavailable",
					Err:     errors.New("request screening is temporarily unavailable"),
				})
				return
			}

			if assessment.Score >= cfg.Threshold {
				cfg.Logger.InfoContext(r.Context(), "request rejected as bot traffic",
					"score", assessment.Score,
					"reasons", assessment.Reasons,
					"path", r.URL.Path)
				WriteJSON(w, http.StatusForbidden, map[string]any{
					"error":  "Suspicious activity detected",
					"score":  assessment.Score,
					"reason": assessment.Reasons,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// authResultKey is an unexported context key type for the auth result.
type authResultKey struct{}

// AuthResultFromContext retrieves the authentication result attached by the
// Authenticate middleware.
func AuthResultFromContext(ctx context.Context) (domainauth.Result, bool) {
	res, ok := ctx.Value(authResultKey{}).(domainauth.Result)
	return res, ok
}

// setAuthResult attaches the authentication result to the request context.
func setAuthResult(ctx context.Context, res domainauth.Result) context.Context {
	return context.WithValue(ctx, authResultKey{}, res)
}

// Authenticate returns the self-healing authentication middleware. Every
// request gets exactly one resolution pass; the result (authenticated or
// anonymous) goes into the request context, and any renewal signal is
// consumed immediately by the cookie writer so it can never leak into a
// later response. Anonymous is not an error here; route guards decide
// whether anonymous access is acceptable.
func Authenticate(svc *service.AuthService, cookies *CookieWriter, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := svc.Resolve(r.Context(), cookieValue(r, AccessCookieName), cookieValue(r, RefreshCookieName))
			if err != nil {
				logger.ErrorContext(r.Context(), "authentication backend failure", "error", err)
				WriteError(w, ErrorParams{
					Code:    http.StatusServiceUnavailable,
					ErrCode: "auth_unavailable",
					Err:     errors.New("authentication is temporarily unavailable"),
				})
				return
			}

			cookies.Apply(w, res)
			next.ServeHTTP(w, r.WithContext(setAuthResult(r.Context(), res)))
		})
	}
}

// RequireAuth returns a middleware that rejects anonymous requests with 401.
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok || !res.Authenticated() {
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "authentication_required",
					Err:     errors.New("authentication required"),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
