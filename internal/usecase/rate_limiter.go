package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Meekdavid/django-jwt-auth-service/internal/core/port"
	"github.com/Meekdavid/django-jwt-auth-service/internal/infra/config"
	"github.com/Meekdavid/django-jwt-auth-service/internal/infra/security"
)

// Scope names a rate-limited operation. Counters for different scopes never
// share keys, so the same client can be throttled on login while register
// remains open.
type Scope string

const (
	ScopeRegister       Scope = "register"
	ScopeLogin          Scope = "login"
	ScopeForgotPassword Scope = "forgot_password"
	ScopeResetPassword  Scope = "reset_password"
	ScopeProtected      Scope = "protected"
)

// ErrRateLimitUnavailable indicates the counter backend could not be reached.
// Throttled endpoints fail closed on it rather than admitting unlimited
// traffic.
var ErrRateLimitUnavailable = errors.New("rate limit backend unavailable")

// RateLimitExceededError reports which scope rejected the request and when a
// retry may succeed.
type RateLimitExceededError struct {
	Scope      Scope
	RetryAfter time.Duration
}

// Error implements error.
func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for scope %s", e.Scope)
}

// RateLimiter enforces fixed-window ceilings per scope and identity.
type RateLimiter struct {
	store  port.RateLimitStore
	limits map[Scope]config.ScopeLimit
	logger *zap.Logger
}

// NewRateLimiter constructs a limiter from the configured per-scope ceilings.
func NewRateLimiter(cfg config.RateLimitSettings, store port.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RateLimiter{
		store: store,
		limits: map[Scope]config.ScopeLimit{
			ScopeRegister:       cfg.Register,
			ScopeLogin:          cfg.Login,
			ScopeForgotPassword: cfg.ForgotPassword,
			ScopeResetPassword:  cfg.ResetPassword,
			ScopeProtected:      cfg.Protected,
		},
		logger: logger,
	}
}

// Limit returns the configured ceiling for the scope. Unknown scopes have a
// zero limit, which disables throttling.
func (l *RateLimiter) Limit(scope Scope) config.ScopeLimit {
	return l.limits[scope]
}

// Check counts one attempt for the scope and identity and reports whether the
// caller may proceed. Exceeding the ceiling yields RateLimitExceededError; a
// backend failure yields ErrRateLimitUnavailable.
func (l *RateLimiter) Check(ctx context.Context, scope Scope, identity ...string) error {
	limit := l.limits[scope]
	if limit.Limit <= 0 || limit.Window <= 0 {
		return nil
	}

	parts := make([]string, 0, len(identity))
	for _, part := range identity {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return nil
	}

	key := fmt.Sprintf("%s:%s", scope, strings.Join(parts, ":"))

	count, remaining, err := l.store.Increment(ctx, key, limit.Window)
	if err != nil {
		l.logger.Error("rate limit backend failure",
			zap.String("scope", string(scope)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrRateLimitUnavailable, err)
	}

	if count > int64(limit.Limit) {
		return &RateLimitExceededError{Scope: scope, RetryAfter: remaining}
	}

	return nil
}

// EmailIdentity derives a stable identity component from an email address.
// Raw addresses never become Redis key material.
func EmailIdentity(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return ""
	}
	return security.HashToken(normalized)
}
