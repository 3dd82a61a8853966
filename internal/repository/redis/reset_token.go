package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/Meekdavid/django-jwt-auth-service/internal/core/port"
	"github.com/Meekdavid/django-jwt-auth-service/internal/repository"
)

const defaultResetTokenPrefix = "pwdreset"

// ResetTokenRepository stores single-use password-reset records keyed by the
// SHA-256 hash of the opaque token. Expiry is delegated to Redis TTLs and
// consumption is atomic via GETDEL, so a token observed by one reader is gone
// for every other.
type ResetTokenRepository struct {
	client *red.Client
	prefix string
}

// NewResetTokenRepository wires a Redis client into a reset-token repository.
func NewResetTokenRepository(client *red.Client, keyPrefix string) *ResetTokenRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultResetTokenPrefix
	}

	return &ResetTokenRepository{client: client, prefix: prefix}
}

// Save stores the record under the token hash with the supplied TTL.
func (r *ResetTokenRepository) Save(ctx context.Context, tokenHash string, record port.ResetTokenRecord, ttl time.Duration) error {
	key, err := r.key(tokenHash)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal reset record: %w", err)
	}

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set reset token: %w", err)
	}

	return nil
}

// Consume atomically fetches and deletes the record. A missing or expired
// token yields repository.ErrNotFound.
func (r *ResetTokenRepository) Consume(ctx context.Context, tokenHash string) (*port.ResetTokenRecord, error) {
	key, err := r.key(tokenHash)
	if err != nil {
		return nil, err
	}

	payload, err := r.client.GetDel(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis getdel reset token: %w", err)
	}

	var record port.ResetTokenRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("unmarshal reset record: %w", err)
	}

	return &record, nil
}

func (r *ResetTokenRepository) key(tokenHash string) (string, error) {
	trimmed := strings.TrimSpace(tokenHash)
	if trimmed == "" {
		return "", errors.New("token hash must not be empty")
	}
	return fmt.Sprintf("%s:%s", r.prefix, trimmed), nil
}

var _ port.ResetTokenStore = (*ResetTokenRepository)(nil)
