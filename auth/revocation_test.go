package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevocationList(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	rl := NewRevocationList(rdb)
	km := hmacManager(t, "test-secret")
	ctx := context.Background()

	t.Run("RevokeValidToken", func(t *testing.T) {
		tokenString := sign(t, km, jwt.MapClaims{
			"userId": "user123",
			"exp":    time.Now().Add(time.Hour).Unix(),
		})

		require.NoError(t, rl.Revoke(ctx, tokenString))

		revoked, err := rl.IsRevoked(ctx, tokenString)
		require.NoError(t, err)
		assert.True(t, revoked)

		ttl := mr.TTL("blacklist:token:" + hashToken(tokenString))
		assert.Greater(t, ttl, 59*time.Minute)
	})

	t.Run("NonRevokedToken", func(t *testing.T) {
		tokenString := sign(t, km, jwt.MapClaims{
			"userId": "user456",
			"exp":    time.Now().Add(time.Hour).Unix(),
		})

		revoked, err := rl.IsRevoked(ctx, tokenString)
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("ExpiredTokenIsNotStored", func(t *testing.T) {
		tokenString := sign(t, km, jwt.MapClaims{
			"userId": "user789",
			"exp":    time.Now().Add(-time.Hour).Unix(),
		})

		require.NoError(t, rl.Revoke(ctx, tokenString))
		revoked, err := rl.IsRevoked(ctx, tokenString)
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("TokenWithoutExpiry", func(t *testing.T) {
		tokenString := sign(t, km, jwt.MapClaims{"userId": "forever"})
		assert.ErrorIs(t, rl.Revoke(ctx, tokenString), ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		assert.ErrorIs(t, rl.Revoke(ctx, "nope"), ErrInvalidToken)
	})
}
