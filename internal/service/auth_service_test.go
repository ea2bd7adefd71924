package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RegisterAndLogin(t *testing.T) {
	userRepo := newMemUserRepo()
	auth := NewAuthService(userRepo, "test-secret", time.Hour)
	ctx := context.Background()

	user, err := auth.Register(ctx, "Dana", "dana@example.com", "s3cret-password", "Europe/Berlin")
	require.NoError(t, err)
	assert.False(t, user.ID.IsZero())
	assert.Empty(t, user.PasswordHash, "hash must not leak out of the service")
	assert.Equal(t, "Europe/Berlin", user.Timezone)

	token, loggedIn, err := auth.Login(ctx, "dana@example.com", "s3cret-password")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.Empty(t, loggedIn.PasswordHash)
}

func TestAuthService_RegisterRejectsDuplicates(t *testing.T) {
	userRepo := newMemUserRepo()
	auth := NewAuthService(userRepo, "test-secret", time.Hour)
	ctx := context.Background()

	_, err := auth.Register(ctx, "Dana", "dana@example.com", "s3cret-password", "")
	require.NoError(t, err)

	_, err = auth.Register(ctx, "Other", "dana@example.com", "different-pass", "")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestAuthService_RegisterValidatesTimezone(t *testing.T) {
	auth := NewAuthService(newMemUserRepo(), "test-secret", time.Hour)

	_, err := auth.Register(context.Background(), "Dana", "dana@example.com", "s3cret-password", "Mars/Olympus")
	assert.Error(t, err)
}

func TestAuthService_LoginFailures(t *testing.T) {
	userRepo := newMemUserRepo()
	auth := NewAuthService(userRepo, "test-secret", time.Hour)
	ctx := context.Background()

	_, err := auth.Register(ctx, "Dana", "dana@example.com", "s3cret-password", "")
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := auth.Login(ctx, "dana@example.com", "wrong")
		assert.ErrorIs(t, err, ErrAuthenticationFailed)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := auth.Login(ctx, "nobody@example.com", "s3cret-password")
		assert.ErrorIs(t, err, ErrAuthenticationFailed)
	})
}
