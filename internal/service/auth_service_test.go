package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 60, BcryptCost: 4}
}

func TestRegisterCreatesActiveUser(t *testing.T) {
	var created *domain.User
	users := &mockUserRepo{
		CreateFunc: func(_ context.Context, user *domain.User) error {
			user.ID = "user-1"
			created = user
			return nil
		},
	}
	svc := NewAuthService(testAuthConfig(), users)

	user, err := svc.Register(context.Background(), "User One", "User@Example.com ", "hunter22!")
	require.NoError(t, err)

	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Equal(t, domain.UserStatusActive, user.Status)
	assert.Equal(t, "user@example.com", user.Email)
	require.NotNil(t, created)
	assert.NoError(t, auth.ComparePassword(created.PasswordHash, "hunter22!"))
}

func TestRegisterValidation(t *testing.T) {
	svc := NewAuthService(testAuthConfig(), &mockUserRepo{})

	_, err := svc.Register(context.Background(), "", "a@b.com", "longenough")
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))

	_, err = svc.Register(context.Background(), "Name", "not-an-email", "longenough")
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))

	_, err = svc.Register(context.Background(), "Name", "a@b.com", "short")
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := &mockUserRepo{
		CreateFunc: func(_ context.Context, _ *domain.User) error {
			return &pgconn.PgError{Code: "23505"}
		},
	}
	svc := NewAuthService(testAuthConfig(), users)

	_, err := svc.Register(context.Background(), "Name", "a@b.com", "longenough")
	assert.Equal(t, "CONFLICT", apperrors.CodeOf(err))
}

func TestLogin(t *testing.T) {
	hash, err := auth.HashPassword("hunter22!", 4)
	require.NoError(t, err)
	account := &domain.User{
		ID: "user-1", Email: "a@b.com", PasswordHash: hash,
		Role: domain.RoleUser, Status: domain.UserStatusActive,
	}
	users := &mockUserRepo{
		GetByEmailFunc: func(_ context.Context, email string) (*domain.User, error) {
			return account, nil
		},
	}
	svc := NewAuthService(testAuthConfig(), users)

	token, _, user, err := svc.Login(context.Background(), "A@B.com", "hunter22!")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "user-1", user.ID)

	_, _, _, err = svc.Login(context.Background(), "a@b.com", "wrong")
	assert.Equal(t, "UNAUTHORIZED", apperrors.CodeOf(err))

	account.Status = domain.UserStatusSuspended
	_, _, _, err = svc.Login(context.Background(), "a@b.com", "hunter22!")
	assert.Equal(t, "FORBIDDEN", apperrors.CodeOf(err))
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := NewAuthService(testAuthConfig(), &mockUserRepo{})

	_, _, _, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	assert.Equal(t, "UNAUTHORIZED", apperrors.CodeOf(err))
}
