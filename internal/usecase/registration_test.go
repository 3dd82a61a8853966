package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/Meekdavid/django-jwt-auth-service/internal/infra/security"
)

func newRegistrationFixture(t *testing.T, users *userRepoMock) *RegistrationService {
	t.Helper()
	return NewRegistrationService(users, security.DefaultPasswordValidator(), zaptest.NewLogger(t))
}

func TestRegistrationServiceRegister(t *testing.T) {
	users := newUserRepoMock()
	service := newRegistrationFixture(t, users)

	account, err := service.Register(context.Background(), RegisterInput{
		Email:           " New.Person@Example.COM ",
		FullName:        " New Person ",
		Password:        "Corr3ct-Horse-Battery",
		PasswordConfirm: "Corr3ct-Horse-Battery",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if account.Email != "new.person@example.com" {
		t.Fatalf("expected normalized email, got %s", account.Email)
	}
	if account.FullName != "New Person" {
		t.Fatalf("expected trimmed full name, got %q", account.FullName)
	}
	if !account.IsActive {
		t.Fatalf("expected new account to be active")
	}
	if account.PasswordHash != "" {
		t.Fatalf("expected password hash to be stripped from the result")
	}

	if len(users.created) != 1 {
		t.Fatalf("expected one created account, got %d", len(users.created))
	}
	stored := users.created[0]
	if !strings.HasPrefix(stored.PasswordHash, "$argon2id$") {
		t.Fatalf("expected argon2id hash, got %q", stored.PasswordHash)
	}

	ok, err := security.VerifyPassword("Corr3ct-Horse-Battery", stored.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("expected stored hash to verify, ok=%v err=%v", ok, err)
	}
}

func TestRegistrationServiceDuplicateEmail(t *testing.T) {
	users := newUserRepoMock(activeAccount(t, "Str0ngPass!23"))
	service := newRegistrationFixture(t, users)

	_, err := service.Register(context.Background(), RegisterInput{
		Email:           "PERSON@example.com",
		Password:        "Corr3ct-Horse-Battery",
		PasswordConfirm: "Corr3ct-Horse-Battery",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegistrationServiceValidation(t *testing.T) {
	service := newRegistrationFixture(t, newUserRepoMock())
	ctx := context.Background()

	cases := map[string]struct {
		input RegisterInput
		want  error
	}{
		"empty email": {
			RegisterInput{Password: "Corr3ct-Horse-Battery", PasswordConfirm: "Corr3ct-Horse-Battery"},
			ErrInvalidEmail,
		},
		"malformed email": {
			RegisterInput{Email: "not-an-email", Password: "Corr3ct-Horse-Battery", PasswordConfirm: "Corr3ct-Horse-Battery"},
			ErrInvalidEmail,
		},
		"confirmation mismatch": {
			RegisterInput{Email: "p@example.com", Password: "Corr3ct-Horse-Battery", PasswordConfirm: "different"},
			ErrPasswordMismatch,
		},
		"too short": {
			RegisterInput{Email: "p@example.com", Password: "Ab1", PasswordConfirm: "Ab1"},
			ErrWeakPassword,
		},
		"digits only": {
			RegisterInput{Email: "p@example.com", Password: "12345678901", PasswordConfirm: "12345678901"},
			ErrWeakPassword,
		},
	}

	for name, tc := range cases {
		if _, err := service.Register(ctx, tc.input); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", name, tc.want, err)
		}
	}
}
