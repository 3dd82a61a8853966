package port

import (
	"context"
	"time"
)

// TokenBlacklist tracks revoked refresh-token identifiers and account-wide
// revocation cut-offs.
type TokenBlacklist interface {
	// Revoke stores the JTI with reason and TTL. Revoking an already-revoked
	// JTI is a no-op success.
	Revoke(ctx context.Context, jti string, reason string, ttl time.Duration) error
	// RevokeOnce stores the JTI only if it is not present yet and reports
	// whether this call was the first to revoke it, along with the reason
	// already on record when it was not. Rotation relies on the first/loser
	// distinction to detect refresh-token reuse.
	RevokeOnce(ctx context.Context, jti string, reason string, ttl time.Duration) (bool, string, error)
	// IsRevoked reports whether the JTI is blacklisted. Absent keys are not
	// revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// RevokeAccount records a cut-off instant; refresh tokens issued at or
	// before it are rejected during verification.
	RevokeAccount(ctx context.Context, accountID string, at time.Time, ttl time.Duration) error
	// AccountRevokedAt returns the stored cut-off for the account when present.
	AccountRevokedAt(ctx context.Context, accountID string) (time.Time, bool, error)
}
