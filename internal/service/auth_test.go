package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/Rrens/workspace-access/internal/repository/memory"
	"github.com/Rrens/workspace-access/internal/security"
)

func newAuthService() (*AuthService, *security.JWTManager) {
	jwtManager := security.NewJWTManager("test-secret-key-that-is-long-enough", 15*time.Minute, 24*time.Hour)
	return NewAuthService(memory.NewStore().Users(), jwtManager, clockwork.NewFakeClockAt(epoch)), jwtManager
}

func TestAuthService_Register(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	user, err := svc.Register(ctx, domain.UserCreate{Email: "Dana@Acme.test", DisplayName: "Dana", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "dana@acme.test", user.Email)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)
	assert.Equal(t, epoch, user.CreatedAt)

	_, err = svc.Register(ctx, domain.UserCreate{Email: "dana@acme.test", DisplayName: "Other", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Register(ctx, domain.UserCreate{Email: "eve@acme.test", DisplayName: "Eve", Password: "short"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAuthService_LoginAndRefresh(t *testing.T) {
	svc, jwtManager := newAuthService()
	ctx := context.Background()

	user, err := svc.Register(ctx, domain.UserCreate{Email: "dana@acme.test", DisplayName: "Dana", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, domain.UserLogin{Email: "dana@acme.test", Password: "wrong-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, domain.UserLogin{Email: "nobody@acme.test", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	tokens, err := svc.Login(ctx, domain.UserLogin{Email: "DANA@acme.test", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, int64((15 * time.Minute).Seconds()), tokens.ExpiresIn)

	claims, err := jwtManager.ValidateAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "dana@acme.test", claims.Email)

	refreshed, err := svc.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = svc.Refresh(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, err = svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestAuthService_GetUserByID(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	user, err := svc.Register(ctx, domain.UserCreate{Email: "dana@acme.test", DisplayName: "Dana", Password: "correct-horse"})
	require.NoError(t, err)

	got, err := svc.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	_, err = svc.GetUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
