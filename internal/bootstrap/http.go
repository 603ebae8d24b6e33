package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gatewarden/gatewarden/config"
	httpx "github.com/gatewarden/gatewarden/internal/http"
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services *Services
	Logger   *slog.Logger
}

// StartHTTPServer creates and starts the HTTP server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	handler := BuildHTTPHandler(appCfg, cfg.Services, logger)
	return startServer(logger, handler, appCfg.HTTP.Addr)
}

// BuildHTTPHandler assembles the router and wraps it in the middleware
// chain. Order: Recover -> Logging -> BotFilter -> Authenticate -> Router,
// so bot traffic is rejected before any token work happens.
func BuildHTTPHandler(appCfg *config.AppConfig, svcs *Services, logger *slog.Logger) http.Handler {
	cookies := &httpx.CookieWriter{
		Domain:     appCfg.HTTP.CookieDomain,
		Secure:     appCfg.Auth.CookieSecure,
		AccessTTL:  svcs.Auth.AccessTTL(),
		RefreshTTL: svcs.Auth.RefreshTTL(),
	}

	router := httpx.NewRouter(httpx.RouterServices{
		Auth:    svcs.Auth,
		Cookies: cookies,
		Logger:  logger,
	})

	bypass := appCfg.BotDetect.Bypass || appCfg.IsDev
	if bypass {
		logger.Info("bot detection bypassed")
	}

	h := http.Handler(router)
	h = httpx.Authenticate(svcs.Auth, cookies, logger)(h)
	h = httpx.BotFilter(httpx.BotFilterConfig{
		Scorer:    svcs.Scorer,
		Threshold: appCfg.BotDetect.BlockThreshold,
		Bypass:    bypass,
		SkipPaths: []string{"/healthz"},
		Logger:    logger,
	})(h)
	h = httpx.Logging(logger)(h)
	h = httpx.Recover(logger)(h)

	return h
}

func startServer(logger *slog.Logger, handler http.Handler, addr string) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	return server
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	if server == nil {
		return nil
	}

	if logger != nil {
		logger.Info("shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if logger != nil {
		logger.Info("HTTP server stopped")
	}

	return nil
}
