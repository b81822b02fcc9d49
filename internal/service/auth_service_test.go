package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kuisduel/kuisduel-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newAuthFixture(t *testing.T) (*AuthService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := &config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: 4,
	}
	return NewAuthService(cfg, rdb), mr
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	token, err := svc.GeneratePlayerToken(ctx, 7, "Budi")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, 7, claims.PlayerID)
	require.Equal(t, "Budi", claims.DisplayName)

	require.NoError(t, svc.ValidatePlayerSession(ctx, 7, claims.ID))
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc, _ := newAuthFixture(t)
	other, _ := newAuthFixture(t)
	other.cfg.JWTSecret = "different-secret"

	token, err := other.GeneratePlayerToken(context.Background(), 7, "Budi")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
}

func TestNewLoginInvalidatesOldSession(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	first, err := svc.GeneratePlayerToken(ctx, 7, "Budi")
	require.NoError(t, err)
	firstClaims, err := svc.ValidateToken(first)
	require.NoError(t, err)

	second, err := svc.GeneratePlayerToken(ctx, 7, "Budi")
	require.NoError(t, err)
	secondClaims, err := svc.ValidateToken(second)
	require.NoError(t, err)

	require.ErrorIs(t, svc.ValidatePlayerSession(ctx, 7, firstClaims.ID), ErrSessionInvalidated)
	require.NoError(t, svc.ValidatePlayerSession(ctx, 7, secondClaims.ID))
}

func TestSessionExpiresWithToken(t *testing.T) {
	svc, mr := newAuthFixture(t)
	ctx := context.Background()

	token, err := svc.GeneratePlayerToken(ctx, 7, "Budi")
	require.NoError(t, err)
	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	require.ErrorIs(t, svc.ValidatePlayerSession(ctx, 7, claims.ID), ErrSessionInvalidated)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	token, err := svc.GeneratePlayerToken(ctx, 7, "Budi")
	require.NoError(t, err)
	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, 7))
	require.ErrorIs(t, svc.ValidatePlayerSession(ctx, 7, claims.ID), ErrSessionInvalidated)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	svc, _ := newAuthFixture(t)

	hash, err := svc.HashPassword("rahasia123")
	require.NoError(t, err)

	require.NoError(t, svc.CheckPassword(hash, "rahasia123"))
	require.ErrorIs(t, svc.CheckPassword(hash, "salah"), ErrInvalidCredentials)
}
