package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Meekdavid/django-jwt-auth-service/internal/infra/config"
	"github.com/Meekdavid/django-jwt-auth-service/internal/infra/database"
	"github.com/Meekdavid/django-jwt-auth-service/internal/infra/logger"
	"github.com/Meekdavid/django-jwt-auth-service/internal/infra/notify"
	redisinfra "github.com/Meekdavid/django-jwt-auth-service/internal/infra/redis"
	"github.com/Meekdavid/django-jwt-auth-service/internal/infra/security"
	postgresrepo "github.com/Meekdavid/django-jwt-auth-service/internal/repository/postgres"
	redisrepo "github.com/Meekdavid/django-jwt-auth-service/internal/repository/redis"
	"github.com/Meekdavid/django-jwt-auth-service/internal/transport/http/middleware"
	"github.com/Meekdavid/django-jwt-auth-service/internal/transport/http/routes"
	"github.com/Meekdavid/django-jwt-auth-service/internal/usecase"
)

// Application wires configuration, storage, and the HTTP surface together.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
}

// New builds a ready-to-run application from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	codec, err := security.NewTokenCodec(cfg.JWT.Secret, cfg.JWT.Issuer)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token codec: %w", err)
	}

	accounts := postgresrepo.NewAccountRepository(pool)
	blacklist := redisrepo.NewBlacklistRepository(redisClient.Client(), cfg.Redis.KeyPrefix+":blacklist")
	resetStore := redisrepo.NewResetTokenRepository(redisClient.Client(), cfg.Redis.KeyPrefix+":pwdreset")
	rateStore := redisrepo.NewRateLimitRepository(redisClient.Client(), cfg.Redis.KeyPrefix+":ratelimit")

	passwordValidator := security.DefaultPasswordValidator()
	notifier := notify.NewLogNotifier(log)

	authService := usecase.NewAuthService(cfg, accounts, blacklist, codec, log)
	registrationService := usecase.NewRegistrationService(accounts, passwordValidator, log)
	passwordResetService := usecase.NewPasswordResetService(cfg, accounts, resetStore, blacklist, notifier, passwordValidator, log)
	rateLimiter := usecase.NewRateLimiter(cfg.RateLimit, rateStore, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Metrics:  metrics,
		Database: pool,
		Cache:    redisClient,
		Services: routes.ServiceSet{
			Auth:          authService,
			Registration:  registrationService,
			PasswordReset: passwordResetService,
			RateLimiter:   rateLimiter,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.pool.Close()
	defer func() {
		_ = a.redis.Close()
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
