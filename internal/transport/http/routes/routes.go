package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Meekdavid/django-jwt-auth-service/internal/infra/config"
	"github.com/Meekdavid/django-jwt-auth-service/internal/transport/http/handlers"
	"github.com/Meekdavid/django-jwt-auth-service/internal/transport/http/middleware"
	"github.com/Meekdavid/django-jwt-auth-service/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth          *usecase.AuthService
	Registration  *usecase.RegistrationService
	PasswordReset *usecase.PasswordResetService
	RateLimiter   *usecase.RateLimiter
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Metrics  *middleware.HTTPMetrics
	Services ServiceSet
	Database DatabaseChecker
	Cache    CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.AllowedOrigins()))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.RequireAuth(deps.Services.Auth)
	limiter := deps.Services.RateLimiter

	api := r.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Registration)

		authGroup := api.Group("/auth")
		authHandler.RegisterRoutes(
			authGroup,
			throttle(limiter, usecase.ScopeRegister, middleware.ClientIPIdentity(), deps.Logger),
			// Login is throttled per address and, independently, per
			// address/email pair so one address cannot spread attempts
			// across many accounts.
			append(
				throttle(limiter, usecase.ScopeLogin, middleware.ClientIPIdentity(), deps.Logger),
				throttle(limiter, usecase.ScopeLogin, middleware.ClientIPAndEmailIdentity(), deps.Logger)...,
			),
		)

		isDev := deps.Config.App.IsDevelopment()
		passwordHandler := handlers.NewPasswordHandler(deps.Services.PasswordReset, isDev)
		passwordHandler.RegisterRoutes(
			authGroup,
			throttle(limiter, usecase.ScopeForgotPassword, middleware.ClientIPAndEmailIdentity(), deps.Logger),
			throttle(limiter, usecase.ScopeResetPassword, middleware.ClientIPIdentity(), deps.Logger),
		)

		protected := api.Group("/protected")
		protected.Use(authMiddleware)
		if chain := throttle(limiter, usecase.ScopeProtected, middleware.ClientIPIdentity(), deps.Logger); len(chain) > 0 {
			protected.Use(chain...)
		}
		protected.GET("", authHandler.Protected)
	}

	return r
}

func throttle(limiter *usecase.RateLimiter, scope usecase.Scope, identity middleware.IdentityFunc, log *zap.Logger) []gin.HandlerFunc {
	if limiter == nil {
		return nil
	}
	return []gin.HandlerFunc{middleware.RateLimit(limiter, scope, identity, log)}
}
