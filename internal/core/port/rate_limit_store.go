package port

import (
	"context"
	"time"
)

// RateLimitStore maintains fixed-window attempt counters.
type RateLimitStore interface {
	// Increment atomically bumps the counter for the key, starting a new
	// window of the supplied length on the first hit, and returns the count
	// within the window together with the time remaining until it resets.
	Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}
