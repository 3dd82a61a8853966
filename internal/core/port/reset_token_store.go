package port

import (
	"context"
	"time"
)

// ResetTokenRecord is the payload stored against a password-reset token.
type ResetTokenRecord struct {
	AccountID string    `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ResetTokenStore persists single-use password-reset tokens.
type ResetTokenStore interface {
	// Save stores the record under the hashed token with the supplied TTL.
	Save(ctx context.Context, tokenHash string, record ResetTokenRecord, ttl time.Duration) error
	// Consume atomically returns and deletes the record. Two concurrent calls
	// on the same token yield exactly one success.
	Consume(ctx context.Context, tokenHash string) (*ResetTokenRecord, error)
}
