package api

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestFrameRateLimiter_Allow(t *testing.T) {
	_, client := newTestRedis(t)
	limiter := NewFrameRateLimiter(client, 2, 10*time.Second)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := limiter.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = limiter.Allow(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, allowed, "limits are per user")
}

func TestSlidingWindow_RetryAfter(t *testing.T) {
	mr, client := newTestRedis(t)
	sw := &SlidingWindowRateLimiter{RedisClient: client}
	ctx := context.Background()

	allowed, _, err := sw.CheckSlidingWindow(ctx, "rate_limit:user:alice:frames", 1, 30)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, retryAfter, err := sw.CheckSlidingWindow(ctx, "rate_limit:user:alice:frames", 1, 30)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.GreaterOrEqual(t, retryAfter, 1)
	assert.LessOrEqual(t, retryAfter, 30)

	assert.True(t, mr.Exists("rate_limit:user:alice:frames"))
	assert.Greater(t, mr.TTL("rate_limit:user:alice:frames"), 30*time.Second)
}

func TestFrameRateLimiter_RedisUnavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := NewFrameRateLimiter(client, 5, time.Second)
	mr.Close()

	_, err := limiter.Allow(context.Background(), "alice")
	assert.Error(t, err)
}
