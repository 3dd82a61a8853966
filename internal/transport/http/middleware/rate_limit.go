package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Meekdavid/django-jwt-auth-service/internal/usecase"
)

const (
	rateLimitProblemType  = "https://auth-service.example.com/errors/rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"

	maxPeekBodyBytes = 1 << 20
)

// ProblemDetails is an RFC 9457 compatible payload for throttled requests.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retry_after"`
	TraceID    string `json:"trace_id,omitempty"`
}

// IdentityFunc extracts the identity components a scope counts attempts by.
// Returning no components skips the check for this request.
type IdentityFunc func(*gin.Context) []string

// ClientIPIdentity keys the counter on the client address alone.
func ClientIPIdentity() IdentityFunc {
	return func(c *gin.Context) []string {
		return []string{c.ClientIP()}
	}
}

// ClientIPAndEmailIdentity keys the counter on the client address combined
// with the email in the JSON request body. Requests without an email skip
// this check; the handler rejects them before any credential work happens,
// and the per-IP throttle still counts them.
func ClientIPAndEmailIdentity() IdentityFunc {
	return func(c *gin.Context) []string {
		email := peekEmail(c)
		if email == "" {
			return nil
		}
		return []string{c.ClientIP(), usecase.EmailIdentity(email)}
	}
}

// RateLimit enforces the scope's ceiling before the handler runs. The
// endpoint fails closed when the counter backend is unreachable.
func RateLimit(limiter *usecase.RateLimiter, scope usecase.Scope, identity IdentityFunc, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	if identity == nil {
		identity = ClientIPIdentity()
	}

	return func(c *gin.Context) {
		limit := limiter.Limit(scope)
		if limit.Limit > 0 {
			c.Writer.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Limit))
		}

		err := limiter.Check(c.Request.Context(), scope, identity(c)...)
		if err == nil {
			c.Next()
			return
		}

		var exceeded *usecase.RateLimitExceededError
		if errors.As(err, &exceeded) {
			respondRateLimited(c, exceeded)
			return
		}

		if errors.Is(err, usecase.ErrRateLimitUnavailable) {
			log.Error("rate limit check unavailable",
				zap.String("scope", string(scope)),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				newErrorResponse(c, "service temporarily unavailable"))
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError,
			newErrorResponse(c, "rate limit check failed"))
	}
}

func respondRateLimited(c *gin.Context, exceeded *usecase.RateLimitExceededError) {
	retrySeconds := int(math.Ceil(exceeded.RetryAfter.Seconds()))
	if retrySeconds < 0 {
		retrySeconds = 0
	}

	c.Writer.Header().Set("Retry-After", strconv.Itoa(retrySeconds))

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      rateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     "Too many requests. Try again in " + strconv.Itoa(retrySeconds) + " seconds.",
		Instance:   instance,
		RetryAfter: retrySeconds,
		TraceID:    GetTraceID(c),
	})
}

// peekEmail reads the email field from the JSON body without consuming it for
// the downstream handler.
func peekEmail(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPeekBodyBytes))
	_ = c.Request.Body.Close()
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	return payload.Email
}
