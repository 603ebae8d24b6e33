package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gatewarden/gatewarden/internal/data"
	"github.com/gatewarden/gatewarden/internal/service"
)

// AuthHandlers bundles the authentication endpoints.
type AuthHandlers struct {
	Svc     *service.AuthService
	Cookies *CookieWriter
	Logger  *slog.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login. A successful login sets the access and
// refresh cookies; any failed attempt clears both so a stale pair cannot
// linger on the client.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	ident, pair, err := h.Svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.Cookies.Clear(w)
		switch {
		case errors.Is(err, data.ErrUserNotFound):
			WriteError(w, ErrorParams{
				Code:    http.StatusNotFound,
				ErrCode: "user_not_found",
				Err:     errors.New("no account matches that email"),
			})
		case errors.Is(err, service.ErrInvalidCredentials):
			WriteError(w, ErrorParams{
				Code:    http.StatusUnauthorized,
				ErrCode: "invalid_credentials",
				Err:     errors.New("email or password is incorrect"),
			})
		case errors.Is(err, data.ErrStoreUnavailable):
			h.Logger.ErrorContext(r.Context(), "login store failure", "error", err)
			WriteError(w, ErrorParams{
				Code:    http.StatusServiceUnavailable,
				ErrCode: "auth_unavailable",
				Err:     errors.New("authentication is temporarily unavailable"),
			})
		default:
			h.Logger.ErrorContext(r.Context(), "login failed", "error", err)
			WriteError(w, ErrorParams{
				Code:    http.StatusInternalServerError,
				ErrCode: "internal_error",
				Err:     errors.New("login failed"),
			})
		}
		return
	}

	h.Logger.InfoContext(r.Context(), "login", "user_id", ident.ID)
	h.Cookies.SetPair(w, pair)
	WriteEncoded(w, http.StatusOK, map[string]string{"message": "Login successful"})
}

// Refresh handles POST /api/auth/refresh. It rotates the refresh token: the
// presented token's rotation id is retired and a fresh pair is issued.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := cookieValue(r, RefreshCookieName)
	if raw == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "refresh_required",
			Err:     errors.New("no refresh token presented"),
		})
		return
	}

	pair, err := h.Svc.Refresh(r.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRefreshInvalid):
			h.Cookies.Clear(w)
			WriteError(w, ErrorParams{
				Code:    http.StatusUnauthorized,
				ErrCode: "refresh_invalid",
				Err:     errors.New("refresh token is invalid or expired"),
			})
		case errors.Is(err, data.ErrStoreUnavailable):
			h.Logger.ErrorContext(r.Context(), "refresh store failure", "error", err)
			WriteError(w, ErrorParams{
				Code:    http.StatusServiceUnavailable,
				ErrCode: "auth_unavailable",
				Err:     errors.New("authentication is temporarily unavailable"),
			})
		default:
			h.Logger.ErrorContext(r.Context(), "refresh failed", "error", err)
			WriteError(w, ErrorParams{
				Code:    http.StatusInternalServerError,
				ErrCode: "internal_error",
				Err:     errors.New("refresh failed"),
			})
		}
		return
	}

	h.Cookies.SetPair(w, pair)
	WriteEncoded(w, http.StatusOK, map[string]string{"message": "Token refreshed"})
}

// Logout handles POST /api/auth/logout. Logout is purely client-side cookie
// removal; tokens already issued expire on their own schedule.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Cookies.Clear(w)
	WriteEncoded(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me handles GET /api/auth/me and reports the authenticated identity.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	res, ok := AuthResultFromContext(r.Context())
	if !ok || !res.Authenticated() {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}
	WriteEncoded(w, http.StatusOK, map[string]string{"email": res.Identity.Email})
}

// Health handles GET /healthz. Health output is deliberately plain JSON,
// never run through the response encoder, so probes stay trivially parseable.
func Health(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
