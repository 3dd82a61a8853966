package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func newLimiterFixture(t *testing.T, store *rateStoreMock) *RateLimiter {
	t.Helper()
	return NewRateLimiter(testConfig().RateLimit, store, zaptest.NewLogger(t))
}

func TestRateLimiterAllowsWithinCeiling(t *testing.T) {
	limiter := newLimiterFixture(t, newRateStoreMock())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := limiter.Check(ctx, ScopeLogin, "1.2.3.4"); err != nil {
			t.Fatalf("attempt %d: expected allow, got %v", i+1, err)
		}
	}

	err := limiter.Check(ctx, ScopeLogin, "1.2.3.4")
	var exceeded *RateLimitExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("expected RateLimitExceededError, got %v", err)
	}
	if exceeded.Scope != ScopeLogin {
		t.Fatalf("expected scope login, got %s", exceeded.Scope)
	}
	if exceeded.RetryAfter != time.Minute {
		t.Fatalf("expected retry-after %v, got %v", time.Minute, exceeded.RetryAfter)
	}
}

func TestRateLimiterScopesAreIndependent(t *testing.T) {
	store := newRateStoreMock()
	limiter := newLimiterFixture(t, store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := limiter.Check(ctx, ScopeLogin, "1.2.3.4"); err != nil {
			t.Fatalf("login attempt %d: %v", i+1, err)
		}
	}

	// Exhausting login must not affect register for the same client.
	if err := limiter.Check(ctx, ScopeRegister, "1.2.3.4"); err != nil {
		t.Fatalf("expected register to be open, got %v", err)
	}
}

func TestRateLimiterIdentitiesAreIndependent(t *testing.T) {
	limiter := newLimiterFixture(t, newRateStoreMock())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := limiter.Check(ctx, ScopeLogin, "1.2.3.4", EmailIdentity("a@example.com")); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}

	// Same IP, different email: separate counter.
	if err := limiter.Check(ctx, ScopeLogin, "1.2.3.4", EmailIdentity("b@example.com")); err != nil {
		t.Fatalf("expected separate identity to be open, got %v", err)
	}
}

func TestRateLimiterFailsClosed(t *testing.T) {
	store := newRateStoreMock()
	store.err = errStoreDown
	limiter := newLimiterFixture(t, store)

	err := limiter.Check(context.Background(), ScopeLogin, "1.2.3.4")
	if !errors.Is(err, ErrRateLimitUnavailable) {
		t.Fatalf("expected ErrRateLimitUnavailable, got %v", err)
	}
}

func TestRateLimiterZeroLimitDisablesScope(t *testing.T) {
	cfg := testConfig().RateLimit
	cfg.Protected.Limit = 0
	limiter := NewRateLimiter(cfg, newRateStoreMock(), zaptest.NewLogger(t))

	for i := 0; i < 100; i++ {
		if err := limiter.Check(context.Background(), ScopeProtected, "1.2.3.4"); err != nil {
			t.Fatalf("expected disabled scope to always allow, got %v", err)
		}
	}
}

func TestRateLimiterEmptyIdentitySkipsCheck(t *testing.T) {
	store := newRateStoreMock()
	limiter := newLimiterFixture(t, store)

	if err := limiter.Check(context.Background(), ScopeLogin, "", "  "); err != nil {
		t.Fatalf("expected empty identity to be skipped, got %v", err)
	}
	if len(store.counts) != 0 {
		t.Fatalf("expected no counters for empty identity")
	}
}

func TestEmailIdentityNormalizes(t *testing.T) {
	a := EmailIdentity(" Person@Example.COM ")
	b := EmailIdentity("person@example.com")
	if a != b {
		t.Fatalf("expected normalized identities to match")
	}
	if a == "person@example.com" {
		t.Fatalf("identity must not expose the raw email")
	}
}
