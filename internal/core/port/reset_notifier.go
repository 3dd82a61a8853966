package port

import (
	"context"
	"time"
)

// ResetNotifier delivers password-reset instructions to an account holder.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error
}
