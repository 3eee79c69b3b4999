package api

import (
	"context"
	"fmt"
	"time"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/auth/db"
	"github.com/redis/go-redis/v9"
)

// FrameLimiter decides whether a user may send another chat or draw frame
type FrameLimiter interface {
	Allow(ctx context.Context, userID string) (bool, error)
}

// SlidingWindowRateLimiter provides sliding window rate limiting using Redis sorted sets
type SlidingWindowRateLimiter struct {
	RedisClient *redis.Client
}

// CheckSlidingWindow implements sliding window rate limiting using Redis sorted sets.
// Returns allowed (bool), retryAfter (seconds), and error.
func (sw *SlidingWindowRateLimiter) CheckSlidingWindow(ctx context.Context, key string, limit int, windowSeconds int) (bool, int, error) {
	now := time.Now()
	nowUnix := now.Unix()
	windowStart := now.Add(-time.Duration(windowSeconds) * time.Second).UnixNano()

	pipe := sw.RedisClient.Pipeline()

	// Remove old entries outside the window
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("(%d", windowStart))

	countCmd := pipe.ZCard(ctx, key)
	oldestCmd := pipe.ZRangeWithScores(ctx, key, 0, 0)
	pipe.Expire(ctx, key, time.Duration(windowSeconds+60)*time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	if countCmd.Val() >= int64(limit) {
		retryAfter := windowSeconds
		if oldest := oldestCmd.Val(); len(oldest) > 0 {
			oldestUnix := int64(oldest[0].Score) / int64(time.Second)
			retryAfter = int(oldestUnix + int64(windowSeconds) - nowUnix)
			if retryAfter < 1 {
				retryAfter = 1
			}
		}
		return false, retryAfter, nil
	}

	// Add current request only if under limit
	add := sw.RedisClient.TxPipeline()
	add.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d:%d", nowUnix, now.UnixNano()),
	})
	add.Expire(ctx, key, time.Duration(windowSeconds+60)*time.Second)
	if _, err := add.Exec(ctx); err != nil {
		return false, 0, err
	}

	return true, 0, nil
}

// FrameRateLimiter limits chat and draw frames per user
type FrameRateLimiter struct {
	SlidingWindowRateLimiter
	limit         int
	windowSeconds int
	keys          *db.RedisKeyBuilder
}

// NewFrameRateLimiter allows limit frames per user in each window
func NewFrameRateLimiter(client *redis.Client, limit int, window time.Duration) *FrameRateLimiter {
	windowSeconds := max(int(window/time.Second), 1)
	return &FrameRateLimiter{
		SlidingWindowRateLimiter: SlidingWindowRateLimiter{RedisClient: client},
		limit:                    limit,
		windowSeconds:            windowSeconds,
		keys:                     db.NewRedisKeyBuilder(),
	}
}

// Allow implements FrameLimiter
func (l *FrameRateLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	allowed, _, err := l.CheckSlidingWindow(ctx, l.keys.RateLimitUserKey(userID, "frames"), l.limit, l.windowSeconds)
	return allowed, err
}
