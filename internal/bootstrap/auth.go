package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/gatewarden/gatewarden/config"
	redisadapter "github.com/gatewarden/gatewarden/internal/adapters/redis"
	"github.com/gatewarden/gatewarden/internal/botrisk"
	"github.com/gatewarden/gatewarden/internal/data"
	"github.com/gatewarden/gatewarden/internal/service"
	"github.com/gatewarden/gatewarden/internal/token"
)

// ServiceDeps contains shared dependencies for building services.
type ServiceDeps struct {
	Config      *config.AppConfig
	Pool        *pgxpool.Pool
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// Services holds the constructed application services.
type Services struct {
	Auth   *service.AuthService
	Scorer *botrisk.Scorer
}

// NewServices wires the token issuer, stores, and risk scorer.
func NewServices(deps *ServiceDeps) (*Services, error) {
	issuer, err := token.NewIssuer(token.Config{
		SigningKey: []byte(deps.Config.Auth.SigningKey),
		AccessTTL:  deps.Config.Auth.AccessTTL,
		RefreshTTL: deps.Config.Auth.RefreshTTL,
		Issuer:     deps.Config.Auth.Issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("build token issuer: %w", err)
	}

	users := data.NewUserRepo(deps.Pool)
	blacklist := redisadapter.NewRotationBlacklist(deps.RedisClient)

	auth := service.NewAuthService(service.AuthServiceOptions{
		Issuer:    issuer,
		Users:     users,
		Blacklist: blacklist,
	})

	limiter := botrisk.NewFixedWindowLimiter(
		redisadapter.NewCounterStore(deps.RedisClient),
		botrisk.LimiterConfig{
			Window: deps.Config.BotDetect.RateLimitWindow,
			Max:    deps.Config.BotDetect.RateLimitMax,
		},
	)

	return &Services{
		Auth:   auth,
		Scorer: botrisk.NewScorer(limiter),
	}, nil
}
