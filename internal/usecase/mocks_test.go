package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Meekdavid/django-jwt-auth-service/internal/core/domain"
	"github.com/Meekdavid/django-jwt-auth-service/internal/core/port"
	"github.com/Meekdavid/django-jwt-auth-service/internal/infra/config"
	"github.com/Meekdavid/django-jwt-auth-service/internal/repository"
)

type userRepoMock struct {
	byEmail map[string]domain.Account
	byID    map[string]domain.Account

	created     []domain.Account
	createErr   error
	updatedID   string
	updatedHash string
	updatedAt   time.Time
	updateErr   error
}

func newUserRepoMock(accounts ...domain.Account) *userRepoMock {
	m := &userRepoMock{
		byEmail: make(map[string]domain.Account),
		byID:    make(map[string]domain.Account),
	}
	for _, account := range accounts {
		m.byEmail[strings.ToLower(account.Email)] = account
		m.byID[account.ID] = account
	}
	return m
}

func (m *userRepoMock) Create(_ context.Context, account domain.Account) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.byEmail[strings.ToLower(account.Email)]; exists {
		return repository.ErrDuplicate
	}
	m.created = append(m.created, account)
	m.byEmail[strings.ToLower(account.Email)] = account
	m.byID[account.ID] = account
	return nil
}

func (m *userRepoMock) GetByID(_ context.Context, id string) (*domain.Account, error) {
	if account, ok := m.byID[id]; ok {
		a := account
		return &a, nil
	}
	return nil, repository.ErrNotFound
}

func (m *userRepoMock) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	if account, ok := m.byEmail[strings.ToLower(strings.TrimSpace(email))]; ok {
		a := account
		return &a, nil
	}
	return nil, repository.ErrNotFound
}

func (m *userRepoMock) UpdatePassword(_ context.Context, id string, passwordHash string, changedAt time.Time) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	m.updatedID = id
	m.updatedHash = passwordHash
	m.updatedAt = changedAt
	return nil
}

type blacklistMock struct {
	revoked  map[string]string
	cutoffs  map[string]time.Time
	storeErr error
}

func newBlacklistMock() *blacklistMock {
	return &blacklistMock{
		revoked: make(map[string]string),
		cutoffs: make(map[string]time.Time),
	}
}

func (m *blacklistMock) Revoke(_ context.Context, jti string, reason string, _ time.Duration) error {
	if m.storeErr != nil {
		return m.storeErr
	}
	m.revoked[jti] = reason
	return nil
}

func (m *blacklistMock) RevokeOnce(_ context.Context, jti string, reason string, _ time.Duration) (bool, string, error) {
	if m.storeErr != nil {
		return false, "", m.storeErr
	}
	if existing, exists := m.revoked[jti]; exists {
		return false, existing, nil
	}
	m.revoked[jti] = reason
	return true, "", nil
}

func (m *blacklistMock) IsRevoked(_ context.Context, jti string) (bool, error) {
	if m.storeErr != nil {
		return false, m.storeErr
	}
	_, exists := m.revoked[jti]
	return exists, nil
}

func (m *blacklistMock) RevokeAccount(_ context.Context, accountID string, at time.Time, _ time.Duration) error {
	if m.storeErr != nil {
		return m.storeErr
	}
	m.cutoffs[accountID] = at
	return nil
}

func (m *blacklistMock) AccountRevokedAt(_ context.Context, accountID string) (time.Time, bool, error) {
	if m.storeErr != nil {
		return time.Time{}, false, m.storeErr
	}
	cutoff, ok := m.cutoffs[accountID]
	return cutoff, ok, nil
}

type resetStoreMock struct {
	records    map[string]port.ResetTokenRecord
	saveErr    error
	consumeErr error
}

func newResetStoreMock() *resetStoreMock {
	return &resetStoreMock{records: make(map[string]port.ResetTokenRecord)}
}

func (m *resetStoreMock) Save(_ context.Context, tokenHash string, record port.ResetTokenRecord, _ time.Duration) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records[tokenHash] = record
	return nil
}

func (m *resetStoreMock) Consume(_ context.Context, tokenHash string) (*port.ResetTokenRecord, error) {
	if m.consumeErr != nil {
		return nil, m.consumeErr
	}
	record, ok := m.records[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(m.records, tokenHash)
	return &record, nil
}

type notifierMock struct {
	emails []string
	tokens []string
	err    error
}

func (m *notifierMock) SendPasswordReset(_ context.Context, email, token string, _ time.Time) error {
	if m.err != nil {
		return m.err
	}
	m.emails = append(m.emails, email)
	m.tokens = append(m.tokens, token)
	return nil
}

type rateStoreMock struct {
	counts map[string]int64
	err    error
}

func newRateStoreMock() *rateStoreMock {
	return &rateStoreMock{counts: make(map[string]int64)}
}

func (m *rateStoreMock) Increment(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if m.err != nil {
		return 0, 0, m.err
	}
	m.counts[key]++
	return m.counts[key], window, nil
}

var errStoreDown = errors.New("store down")

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		App: config.AppSettings{Name: "auth-service", Env: "test"},
		JWT: config.JWTSettings{
			Secret:          "unit-test-secret",
			Issuer:          "auth-service",
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 168 * time.Hour,
		},
		Reset: config.ResetSettings{TokenTTL: 10 * time.Minute},
		RateLimit: config.RateLimitSettings{
			Register:       config.ScopeLimit{Limit: 10, Window: time.Hour},
			Login:          config.ScopeLimit{Limit: 5, Window: time.Minute},
			ForgotPassword: config.ScopeLimit{Limit: 3, Window: time.Minute},
			ResetPassword:  config.ScopeLimit{Limit: 10, Window: time.Hour},
			Protected:      config.ScopeLimit{Limit: 60, Window: time.Minute},
		},
	}
}
