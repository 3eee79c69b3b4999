package db

import (
	"fmt"
)

// RedisKeyBuilder provides methods to build Redis keys following the defined patterns
type RedisKeyBuilder struct{}

// NewRedisKeyBuilder creates a new Redis key builder
func NewRedisKeyBuilder() *RedisKeyBuilder {
	return &RedisKeyBuilder{}
}

// BlacklistTokenKey builds a revoked token key from the token hash
func (b *RedisKeyBuilder) BlacklistTokenKey(tokenHash string) string {
	return fmt.Sprintf("blacklist:token:%s", tokenHash)
}

// RateLimitUserKey builds a per-user rate limit key
func (b *RedisKeyBuilder) RateLimitUserKey(userID, action string) string {
	return fmt.Sprintf("rate_limit:user:%s:%s", userID, action)
}
