package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Meekdavid/django-jwt-auth-service/internal/core/port"
	"github.com/Meekdavid/django-jwt-auth-service/internal/infra/config"
	"github.com/Meekdavid/django-jwt-auth-service/internal/infra/security"
	"github.com/Meekdavid/django-jwt-auth-service/internal/repository"
)

const (
	resetTokenBytes   = 32
	passwordResetNote = "password_reset"
)

// ErrResetTokenInvalid indicates the reset token is unknown, expired, or was
// already used. Callers must not distinguish between these cases.
var ErrResetTokenInvalid = errors.New("password reset token invalid")

// ResetRequest describes an issued reset artifact. Token carries the raw
// secret; it exists only in memory and in the dispatched notification.
type ResetRequest struct {
	AccountID string
	Email     string
	Token     string
	ExpiresAt time.Time
}

// ConfirmResetInput carries the payload to finalize a password reset.
type ConfirmResetInput struct {
	Token           string
	Password        string
	PasswordConfirm string
}

// PasswordResetService coordinates reset initiation and completion.
type PasswordResetService struct {
	cfg       *config.AppConfig
	users     port.UserRepository
	store     port.ResetTokenStore
	blacklist port.TokenBlacklist
	notifier  port.ResetNotifier
	validator *security.PasswordValidator
	logger    *zap.Logger
	now       func() time.Time
}

// NewPasswordResetService constructs a PasswordResetService.
func NewPasswordResetService(
	cfg *config.AppConfig,
	users port.UserRepository,
	store port.ResetTokenStore,
	blacklist port.TokenBlacklist,
	notifier port.ResetNotifier,
	validator *security.PasswordValidator,
	log *zap.Logger,
) *PasswordResetService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &PasswordResetService{
		cfg:       cfg,
		users:     users,
		store:     store,
		blacklist: blacklist,
		notifier:  notifier,
		validator: validator,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *PasswordResetService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Request issues a single-use reset token for the account behind the email
// and dispatches it. Unknown and inactive accounts yield a nil request with
// no error so the endpoint responds identically either way.
func (s *PasswordResetService) Request(ctx context.Context, email string) (*ResetRequest, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, nil
	}

	account, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email",
				maskedEmailField(email),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if !account.IsActive {
		return nil, nil
	}

	raw, err := security.GenerateSecureToken(resetTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate reset token: %w", err)
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.cfg.Reset.TokenTTL)
	record := port.ResetTokenRecord{
		AccountID: account.ID,
		ExpiresAt: expiresAt,
	}

	if err := s.store.Save(ctx, security.HashToken(raw), record, s.cfg.Reset.TokenTTL); err != nil {
		return nil, fmt.Errorf("store reset token: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.SendPasswordReset(ctx, account.Email, raw, expiresAt); err != nil {
			s.logger.Warn("password reset notification failed",
				zap.String("account_id", account.ID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("password reset token issued",
		zap.String("account_id", account.ID),
		maskedEmailField(account.Email),
		zap.Time("expires_at", expiresAt),
	)

	return &ResetRequest{
		AccountID: account.ID,
		Email:     account.Email,
		Token:     raw,
		ExpiresAt: expiresAt,
	}, nil
}

// Confirm consumes the token and applies the new password. Any outstanding
// refresh tokens for the account are invalidated afterwards.
func (s *PasswordResetService) Confirm(ctx context.Context, input ConfirmResetInput) error {
	if input.Token == "" {
		return ErrResetTokenInvalid
	}

	// Password policy runs before consumption so a weak password does not
	// burn the single-use token.
	if input.Password != input.PasswordConfirm {
		return ErrPasswordMismatch
	}
	if err := s.validator.Validate(input.Password); err != nil {
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	record, err := s.store.Consume(ctx, security.HashToken(input.Token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	now := s.now().UTC()
	if now.After(record.ExpiresAt) {
		return ErrResetTokenInvalid
	}

	account, err := s.users.GetByID(ctx, record.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, account.ID, hash, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("update password: %w", err)
	}

	// The new password is already persisted at this point. Session
	// revocation must still succeed before the reset may report success:
	// a pre-reset refresh token that keeps rotating would defeat the reset.
	if err := s.blacklist.RevokeAccount(ctx, account.ID, now, s.cfg.JWT.RefreshTokenTTL); err != nil {
		s.logger.Error("revoke sessions after reset failed",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
		return fmt.Errorf("revoke sessions after reset: %w", err)
	}

	s.logger.Info("password reset completed",
		zap.String("account_id", account.ID),
		zap.String("reason", passwordResetNote),
	)

	return nil
}
