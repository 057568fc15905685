package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edudonor/donation-api/internal/domain"
	"github.com/edudonor/donation-api/internal/repository"
	"github.com/edudonor/donation-api/internal/repository/dao"
)

func TestAuthService(t *testing.T) {
	repo := repository.NewUserRepository(dao.NewUserDAO(newTestDB(t)))
	svc := NewAuthService(repo, func(email string) bool { return email == "admin@edudonor.pk" })
	ctx := context.Background()

	donor, err := svc.Signup(ctx, domain.User{Email: " Donor@X.com ", Password: "secret123", Name: "Donor"})
	require.NoError(t, err)
	assert.Equal(t, "donor@x.com", donor.Email)
	assert.False(t, donor.IsAdmin)
	assert.True(t, strings.HasPrefix(donor.Password, "$2a$"))

	admin, err := svc.Signup(ctx, domain.User{Email: "ADMIN@edudonor.pk", Password: "secret123", Name: "Admin"})
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)

	_, err = svc.Signup(ctx, domain.User{Email: "donor@x.com", Password: "secret123", Name: "Again"})
	assert.ErrorIs(t, err, ErrUserEmailExists)

	tests := []struct {
		name     string
		email    string
		password string
		err      error
	}{
		{name: "valid credentials", email: "DONOR@x.com", password: "secret123"},
		{name: "wrong password", email: "donor@x.com", password: "secret124", err: ErrWrongPassword},
		{name: "unknown email", email: "nobody@x.com", password: "secret123", err: ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Login(ctx, tt.email, tt.password)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, donor.ID, user.ID)
		})
	}
}

func TestUserService(t *testing.T) {
	repo := repository.NewUserRepository(dao.NewUserDAO(newTestDB(t)))
	created, err := NewAuthService(repo, nil).Signup(context.Background(), domain.User{Email: "a@x.com", Password: "secret123", Name: "A"})
	require.NoError(t, err)

	svc := NewUserService(repo)
	got, err := svc.GetUser(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)

	_, err = svc.GetUser(context.Background(), 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
