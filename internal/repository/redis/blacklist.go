package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/Meekdavid/django-jwt-auth-service/internal/core/port"
)

const defaultBlacklistPrefix = "blacklist"

// BlacklistRepository tracks revoked refresh-token JTIs and account-wide
// revocation cut-offs in Redis.
type BlacklistRepository struct {
	client *red.Client
	prefix string
}

// NewBlacklistRepository wires a Redis client into a blacklist repository.
func NewBlacklistRepository(client *red.Client, keyPrefix string) *BlacklistRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultBlacklistPrefix
	}

	return &BlacklistRepository{client: client, prefix: prefix}
}

// Revoke stores the supplied JTI with reason and TTL. Revoking an
// already-revoked JTI overwrites the entry and succeeds.
func (r *BlacklistRepository) Revoke(ctx context.Context, jti string, reason string, ttl time.Duration) error {
	key, err := r.jtiKey(jti)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	if err := r.client.Set(ctx, key, reason, ttl).Err(); err != nil {
		return fmt.Errorf("redis set revoked jti: %w", err)
	}

	return nil
}

// RevokeOnce stores the JTI only when absent and reports whether this call
// created the entry. When the entry already exists the stored reason is
// returned so callers can tell a rotated token apart from a logged-out one.
func (r *BlacklistRepository) RevokeOnce(ctx context.Context, jti string, reason string, ttl time.Duration) (bool, string, error) {
	key, err := r.jtiKey(jti)
	if err != nil {
		return false, "", err
	}
	if ttl <= 0 {
		return false, "", errors.New("ttl must be positive")
	}

	first, err := r.client.SetNX(ctx, key, reason, ttl).Result()
	if err != nil {
		return false, "", fmt.Errorf("redis setnx revoked jti: %w", err)
	}
	if first {
		return true, "", nil
	}

	existing, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			// Entry expired between SETNX and GET; the token is spent
			// either way.
			return false, "", nil
		}
		return false, "", fmt.Errorf("redis get revoked jti: %w", err)
	}

	return false, existing, nil
}

// IsRevoked reports whether the JTI has been revoked. Absent keys are not
// revoked.
func (r *BlacklistRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	key, err := r.jtiKey(jti)
	if err != nil {
		return false, err
	}

	if err := r.client.Get(ctx, key).Err(); err != nil {
		if errors.Is(err, red.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get revoked jti: %w", err)
	}

	return true, nil
}

// RevokeAccount records the cut-off instant for the account. Refresh tokens
// issued at or before it fail verification.
func (r *BlacklistRepository) RevokeAccount(ctx context.Context, accountID string, at time.Time, ttl time.Duration) error {
	key, err := r.accountKey(accountID)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	value := strconv.FormatInt(at.UTC().Unix(), 10)
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set account cutoff: %w", err)
	}

	return nil
}

// AccountRevokedAt returns the stored cut-off for the account when present.
func (r *BlacklistRepository) AccountRevokedAt(ctx context.Context, accountID string) (time.Time, bool, error) {
	key, err := r.accountKey(accountID)
	if err != nil {
		return time.Time{}, false, err
	}

	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("redis get account cutoff: %w", err)
	}

	unix, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse account cutoff: %w", err)
	}

	return time.Unix(unix, 0).UTC(), true, nil
}

func (r *BlacklistRepository) jtiKey(jti string) (string, error) {
	trimmed := strings.TrimSpace(jti)
	if trimmed == "" {
		return "", errors.New("jti must not be empty")
	}
	return fmt.Sprintf("%s:jti:%s", r.prefix, trimmed), nil
}

func (r *BlacklistRepository) accountKey(accountID string) (string, error) {
	trimmed := strings.TrimSpace(accountID)
	if trimmed == "" {
		return "", errors.New("account id must not be empty")
	}
	return fmt.Sprintf("%s:account:%s", r.prefix, trimmed), nil
}

var _ port.TokenBlacklist = (*BlacklistRepository)(nil)
