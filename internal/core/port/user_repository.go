package port

import (
	"context"
	"time"

	"github.com/Meekdavid/django-jwt-auth-service/internal/core/domain"
)

// UserRepository exposes persistence behavior for accounts.
type UserRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error
}
