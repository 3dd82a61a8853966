package security

import (
	"errors"
	"testing"
	"time"

	"github.com/Meekdavid/django-jwt-auth-service/internal/core/domain"
)

func newTestCodec(t *testing.T, now time.Time) *TokenCodec {
	t.Helper()

	codec, err := NewTokenCodec("unit-test-secret", "auth-service")
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}
	return codec.WithClock(func() time.Time { return now })
}

func TestTokenCodecIssueAndVerify(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, now)

	signed, issued, err := codec.Issue("account-1", domain.TokenTypeAccess, time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if issued.ID != "" {
		t.Fatalf("access tokens must not carry a jti, got %q", issued.ID)
	}

	claims, err := codec.Verify(signed, domain.TokenTypeAccess)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.AccountID() != "account-1" {
		t.Fatalf("unexpected subject %q", claims.AccountID())
	}
	if got := claims.ExpiresAt.Time; !got.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", got)
	}
}

func TestTokenCodecRefreshTokensCarryUniqueJTI(t *testing.T) {
	codec := newTestCodec(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	_, first, err := codec.Issue("account-1", domain.TokenTypeRefresh, time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	_, second, err := codec.Issue("account-1", domain.TokenTypeRefresh, time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if first.ID == "" || second.ID == "" {
		t.Fatal("refresh tokens must carry a jti")
	}
	if first.ID == second.ID {
		t.Fatal("expected a fresh jti on every issuance")
	}
}

func TestTokenCodecRejectsWrongType(t *testing.T) {
	codec := newTestCodec(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	signed, _, err := codec.Issue("account-1", domain.TokenTypeRefresh, time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := codec.Verify(signed, domain.TokenTypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for type mismatch, got %v", err)
	}
}

func TestTokenCodecRejectsExpiredToken(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, now)

	signed, _, err := codec.Issue("account-1", domain.TokenTypeRefresh, time.Minute)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	codec.WithClock(func() time.Time { return now.Add(2 * time.Minute) })

	if _, err := codec.Verify(signed, domain.TokenTypeRefresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}

	claims, err := codec.Decode(signed, domain.TokenTypeRefresh)
	if err != nil {
		t.Fatalf("Decode should tolerate expiry, got %v", err)
	}
	if claims.AccountID() != "account-1" {
		t.Fatalf("unexpected subject %q", claims.AccountID())
	}
}

func TestTokenCodecRejectsForeignSignature(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, now)

	other, err := NewTokenCodec("a-different-secret", "auth-service")
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}
	signed, _, err := other.WithClock(func() time.Time { return now }).Issue("account-1", domain.TokenTypeAccess, time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := codec.Verify(signed, domain.TokenTypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}
	if _, err := codec.Decode(signed, domain.TokenTypeAccess); err == nil {
		t.Fatal("Decode must still reject a foreign signature")
	}

	codec = newTestCodec(t, now)
	if _, err := codec.Verify("not-a-token", domain.TokenTypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage input, got %v", err)
	}
}

func TestNewTokenCodecValidatesInput(t *testing.T) {
	if _, err := NewTokenCodec("", "auth-service"); err == nil {
		t.Fatal("expected error for missing secret")
	}
	if _, err := NewTokenCodec("secret", "  "); err == nil {
		t.Fatal("expected error for missing issuer")
	}
}
