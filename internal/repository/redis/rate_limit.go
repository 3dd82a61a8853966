package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/Meekdavid/django-jwt-auth-service/internal/core/port"
)

const defaultRateLimitPrefix = "ratelimit"

// Counter increment and window start must be a single atomic step, otherwise
// two concurrent first hits could both see count 1 and leave the key without
// an expiry. The script increments, arms PEXPIRE on the first hit only, and
// returns the count together with the remaining window.
var incrementScript = red.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

// RateLimitRepository implements a fixed-window counter per key in Redis.
type RateLimitRepository struct {
	client *red.Client
	prefix string
}

// NewRateLimitRepository wires a Redis client into a rate-limit repository.
func NewRateLimitRepository(client *red.Client, keyPrefix string) *RateLimitRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultRateLimitPrefix
	}

	return &RateLimitRepository{client: client, prefix: prefix}
}

// Increment bumps the window counter for the key and returns the new count
// along with the time left until the window resets.
func (r *RateLimitRepository) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return 0, 0, errors.New("key must not be empty")
	}
	if window <= 0 {
		return 0, 0, errors.New("window must be positive")
	}

	fullKey := fmt.Sprintf("%s:%s", r.prefix, trimmed)

	result, err := incrementScript.Run(ctx, r.client, []string{fullKey}, window.Milliseconds()).Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("redis rate limit script: %w", err)
	}
	if len(result) != 2 {
		return 0, 0, fmt.Errorf("rate limit script returned %d values", len(result))
	}

	count, ok := result[0].(int64)
	if !ok {
		return 0, 0, errors.New("rate limit script returned non-integer count")
	}
	ttlMillis, ok := result[1].(int64)
	if !ok {
		return 0, 0, errors.New("rate limit script returned non-integer ttl")
	}

	remaining := time.Duration(ttlMillis) * time.Millisecond
	if remaining <= 0 {
		remaining = window
	}

	return count, remaining, nil
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)
