package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/Meekdavid/django-jwt-auth-service/internal/core/domain"
)

// ErrInvalidToken covers bad signature, malformed structure, wrong type claim,
// and expiry. Callers must not distinguish between these externally.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the closed claim set carried by both token types. The account id
// travels in the registered subject; refresh tokens additionally carry a jti.
type Claims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// AccountID returns the subject claim.
func (c *Claims) AccountID() string {
	return c.Subject
}

// TokenCodec signs and verifies bearer tokens with an HMAC secret held in
// process-wide configuration.
type TokenCodec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenCodec constructs a codec for the supplied secret and issuer.
func NewTokenCodec(secret, issuer string) (*TokenCodec, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("jwt: signing secret is required")
	}
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return nil, fmt.Errorf("jwt: issuer is required")
	}

	return &TokenCodec{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// WithClock overrides the codec clock, used in tests.
func (c *TokenCodec) WithClock(clock func() time.Time) *TokenCodec {
	if clock != nil {
		c.now = clock
	}
	return c
}

// Issue signs a token of the requested type for the account. Refresh tokens
// receive a freshly generated jti on every issuance, including rotation.
func (c *TokenCodec) Issue(accountID string, tokenType domain.TokenType, ttl time.Duration) (string, *Claims, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", nil, fmt.Errorf("jwt: account id is required")
	}
	if ttl <= 0 {
		return "", nil, fmt.Errorf("jwt: lifetime must be positive")
	}

	now := c.now().UTC()
	claims := &Claims{
		TokenType: string(tokenType),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	if tokenType == domain.TokenTypeRefresh {
		claims.ID = uuid.NewString()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, claims, nil
}

// Verify validates the signature, structure, type claim, and expiry, mapping
// every failure to ErrInvalidToken.
func (c *TokenCodec) Verify(token string, expected domain.TokenType) (*Claims, error) {
	return c.parse(token, expected, false)
}

// Decode validates signature and type but tolerates expiry. Logout uses it so
// an expired refresh token can still be revoked harmlessly.
func (c *TokenCodec) Decode(token string, expected domain.TokenType) (*Claims, error) {
	return c.parse(token, expected, true)
}

func (c *TokenCodec) parse(token string, expected domain.TokenType, allowExpired bool) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithTimeFunc(func() time.Time { return c.now().UTC() }),
	}
	if allowExpired {
		options = []jwt.ParserOption{
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		}
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, options...)
	if err != nil || parsed == nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if allowExpired && claims.Issuer != c.issuer {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != string(expected) {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	if expected == domain.TokenTypeRefresh && strings.TrimSpace(claims.ID) == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
