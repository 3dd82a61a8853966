package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Meekdavid/django-jwt-auth-service/internal/core/domain"
	"github.com/Meekdavid/django-jwt-auth-service/internal/core/port"
	"github.com/Meekdavid/django-jwt-auth-service/internal/infra/config"
	"github.com/Meekdavid/django-jwt-auth-service/internal/infra/logger"
	"github.com/Meekdavid/django-jwt-auth-service/internal/infra/security"
	"github.com/Meekdavid/django-jwt-auth-service/internal/repository"
)

const (
	rotationReason = "rotation"
	logoutReason   = "logout"

	// Account cut-offs and blacklist entries only need to outlive the longest
	// token they can affect; entries for tokens about to expire keep a small
	// floor so Redis never receives a non-positive TTL.
	minRevocationTTL = time.Second
)

var (
	// ErrInvalidCredentials indicates the email or password is incorrect, or
	// the account cannot log in. Callers present all cases identically.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefreshToken indicates the refresh token is malformed,
	// expired, revoked, or otherwise unusable.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrInvalidAccessToken indicates the access token failed validation.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrTokenReuseDetected indicates a previously rotated refresh token was
	// presented again. The whole account is revoked in response.
	ErrTokenReuseDetected = errors.New("refresh token reuse detected")
)

// AuthService coordinates login, token rotation, and logout.
type AuthService struct {
	cfg       *config.AppConfig
	users     port.UserRepository
	blacklist port.TokenBlacklist
	codec     *security.TokenCodec
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(cfg *config.AppConfig, users port.UserRepository, blacklist port.TokenBlacklist, codec *security.TokenCodec, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}

	return &AuthService{
		cfg:       cfg,
		users:     users,
		blacklist: blacklist,
		codec:     codec,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *AuthService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Login validates credentials and issues a fresh token pair. Unknown email,
// wrong password, and deactivated account all map to ErrInvalidCredentials so
// responses do not leak which accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, *domain.Account, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	account, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("lookup account: %w", err)
	}

	if !account.IsActive {
		return nil, nil, ErrInvalidCredentials
	}

	ok, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.IssuePair(ctx, account.ID)
	if err != nil {
		return nil, nil, err
	}

	sanitized := *account
	sanitized.PasswordHash = ""

	return pair, &sanitized, nil
}

// IssuePair mints an access/refresh pair for the account.
func (s *AuthService) IssuePair(_ context.Context, accountID string) (*domain.TokenPair, error) {
	accessTTL := s.cfg.JWT.AccessTokenTTL
	refreshTTL := s.cfg.JWT.RefreshTokenTTL

	access, _, err := s.codec.Issue(accountID, domain.TokenTypeAccess, accessTTL)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refresh, _, err := s.codec.Issue(accountID, domain.TokenTypeRefresh, refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(accessTTL.Seconds()),
	}, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued. Presenting an already-rotated token revokes every token the
// account holds.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.codec.Verify(refreshToken, domain.TokenTypeRefresh)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	accountID := claims.AccountID()

	cutoff, found, err := s.blacklist.AccountRevokedAt(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("check account revocation: %w", err)
	}
	if found && claims.IssuedAt != nil && !claims.IssuedAt.Time.After(cutoff) {
		return nil, ErrInvalidRefreshToken
	}

	// SET NX decides the rotation race: exactly one caller revokes the JTI
	// and proceeds, every other presenter of the same token is a reuse.
	first, existingReason, err := s.blacklist.RevokeOnce(ctx, claims.ID, rotationReason, s.revocationTTL(claims))
	if err != nil {
		return nil, fmt.Errorf("revoke rotated token: %w", err)
	}
	if !first {
		if existingReason != rotationReason {
			// Revoked by logout or an account-wide sweep, not by a
			// competing rotation.
			return nil, ErrInvalidRefreshToken
		}
		s.logger.Warn("refresh token reuse detected",
			zap.String("account_id", accountID),
			zap.String("jti", claims.ID),
		)
		if err := s.blacklist.RevokeAccount(ctx, accountID, s.now().UTC(), s.cfg.JWT.RefreshTokenTTL); err != nil {
			s.logger.Error("revoke account after reuse failed",
				zap.String("account_id", accountID),
				zap.Error(err),
			)
		}
		return nil, ErrTokenReuseDetected
	}

	return s.IssuePair(ctx, accountID)
}

// Logout revokes the presented refresh token. The token's signature and type
// must check out, but an already-expired token is still accepted so clients
// can always terminate a session. Logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.codec.Decode(refreshToken, domain.TokenTypeRefresh)
	if err != nil {
		return ErrInvalidRefreshToken
	}

	if err := s.blacklist.Revoke(ctx, claims.ID, logoutReason, s.revocationTTL(claims)); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	s.logger.Info("session terminated",
		zap.String("account_id", claims.AccountID()),
	)

	return nil
}

// RevokeAllSessions invalidates every outstanding refresh token for the
// account by recording a revocation cut-off.
func (s *AuthService) RevokeAllSessions(ctx context.Context, accountID string) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return fmt.Errorf("account id is required")
	}

	if err := s.blacklist.RevokeAccount(ctx, accountID, s.now().UTC(), s.cfg.JWT.RefreshTokenTTL); err != nil {
		return fmt.Errorf("revoke account sessions: %w", err)
	}

	return nil
}

// ParseAccessToken validates an access token and returns its claims.
func (s *AuthService) ParseAccessToken(token string) (*security.Claims, error) {
	claims, err := s.codec.Verify(token, domain.TokenTypeAccess)
	if err != nil {
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}

// GetAccount loads the account for an authenticated subject.
func (s *AuthService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.users.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	sanitized := *account
	sanitized.PasswordHash = ""

	return &sanitized, nil
}

func (s *AuthService) revocationTTL(claims *security.Claims) time.Duration {
	ttl := s.cfg.JWT.RefreshTokenTTL
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Time.Sub(s.now().UTC())
	}
	if ttl < minRevocationTTL {
		ttl = minRevocationTTL
	}
	return ttl
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func maskedEmailField(email string) zap.Field {
	return zap.String("email", logger.MaskEmail(email))
}
