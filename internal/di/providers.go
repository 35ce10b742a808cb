package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gorm.io/gorm"

	"github.com/sandeepkv93/token-session-auth-service/internal/app"
	"github.com/sandeepkv93/token-session-auth-service/internal/config"
	"github.com/sandeepkv93/token-session-auth-service/internal/health"
	"github.com/sandeepkv93/token-session-auth-service/internal/http/handler"
	"github.com/sandeepkv93/token-session-auth-service/internal/http/middleware"
	"github.com/sandeepkv93/token-session-auth-service/internal/http/router"
	"github.com/sandeepkv93/token-session-auth-service/internal/observability"
	"github.com/sandeepkv93/token-session-auth-service/internal/repository"
	"github.com/sandeepkv93/token-session-auth-service/internal/security"
	"github.com/sandeepkv93/token-session-auth-service/internal/service"
)

var ConfigSet = wire.NewSet(
	provideObservability,
	provideClock,
)

var RepositorySet = wire.NewSet(
	provideDatabase,
	provideRedisClient,
	provideUserRepository,
)

var ServiceSet = wire.NewSet(
	provideTokenCodec,
	providePasswordHasher,
	provideNegativeLookupCache,
	provideRefreshTokenStore,
	service.NewSessionService,
	service.NewUserService,
)

var HTTPSet = wire.NewSet(
	handler.NewAuthHandler,
	handler.NewUserHandler,
	provideReadiness,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
	app.New,
)

func provideObservability(ctx context.Context, cfg *config.Config, logger *slog.Logger, lp *sdklog.LoggerProvider) (*observability.Runtime, func(), error) {
	rt, err := observability.InitRuntime(ctx, cfg, logger, lp)
	if err != nil {
		return nil, nil, err
	}
	// Usually a no-op: App.Serve has already shut the runtime down.
	cleanup := func() {
		if err := rt.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("shutdown observability", "error", err)
		}
	}
	return rt, cleanup, nil
}

func provideClock() security.Clock { return time.Now }

// provideDatabase yields a nil *gorm.DB for the memory driver.
func provideDatabase(cfg *config.Config) (*gorm.DB, func(), error) {
	return repository.OpenDatabase(cfg)
}

// provideRedisClient yields a nil client when REDIS_ADDR is unset.
func provideRedisClient(cfg *config.Config, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info("redis disabled; using in-process caches and limiters")
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("close redis client", "error", err)
		}
	}
	return client, cleanup, nil
}

func provideUserRepository(db *gorm.DB) repository.UserRepository {
	if db == nil {
		return repository.NewInMemoryUserRepository()
	}
	return repository.NewUserRepository(db)
}

func provideTokenCodec(cfg *config.Config, clock security.Clock) *security.TokenCodec {
	return security.NewTokenCodec(security.TokenCodecConfig{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		AccessTTL: cfg.AccessTokenTTL,
		Clock:     clock,
	})
}

func providePasswordHasher(cfg *config.Config) security.PasswordHasher {
	return security.NewBcryptHasher(cfg.BcryptCost)
}

func provideNegativeLookupCache(client redis.UniversalClient) service.NegativeLookupCacheStore {
	if client == nil {
		return service.NewInMemoryNegativeLookupCacheStore()
	}
	return service.NewRedisNegativeLookupCacheStore(client, "")
}

func provideRefreshTokenStore(cfg *config.Config, users repository.UserRepository, cache service.NegativeLookupCacheStore, clock security.Clock) *service.RefreshTokenStore {
	return service.NewRefreshTokenStore(users, cache, service.RefreshTokenStoreConfig{
		TTL:              cfg.RefreshTokenTTL,
		NegativeCacheTTL: cfg.NegativeLookupCacheTTL,
		Clock:            clock,
	})
}

func provideReadiness(db *gorm.DB, client redis.UniversalClient) *health.ProbeRunner {
	var probes []health.Probe
	if db != nil {
		probes = append(probes, health.Probe{Name: "database", Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}})
	}
	if client != nil {
		probes = append(probes, health.Probe{Name: "redis", Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
	}
	return health.NewProbeRunner(2*time.Second, probes...)
}

func provideRouterDependencies(
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	codec *security.TokenCodec,
	users repository.UserRepository,
	client redis.UniversalClient,
	readiness *health.ProbeRunner,
) router.Dependencies {
	var limiter middleware.Limiter = middleware.NewLocalFixedWindowLimiter()
	if client != nil {
		limiter = middleware.NewRedisFixedWindowLimiter(client, "")
	}
	mode := middleware.FailClosed
	if cfg.RateLimitFailOpen {
		mode = middleware.FailOpen
	}
	return router.Dependencies{
		AuthHandler:       authHandler,
		UserHandler:       userHandler,
		TokenVerifier:     codec,
		Principals:        users,
		AuthRateLimitRPM:  cfg.AuthRateLimitRPM,
		APIRateLimitRPM:   cfg.APIRateLimitRPM,
		GlobalRateLimiter: middleware.NewRateLimiter(limiter, cfg.APIRateLimitRPM, time.Minute, mode, "api").Middleware(),
		AuthRateLimiter:   middleware.NewRateLimiter(limiter, cfg.AuthRateLimitRPM, time.Minute, mode, "auth").Middleware(),
		Readiness:         readiness,
		EnableOTelHTTP:    cfg.EnableOTelHTTP,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) (*http.Server, error) {
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http address is empty")
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: cfg.HTTPReadHeaderTimeout,
	}, nil
}
