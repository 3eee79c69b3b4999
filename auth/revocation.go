package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/auth/db"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/slogging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// RevocationList stores revoked tokens in Redis until they would have expired anyway
type RevocationList struct {
	redis *redis.Client
	keys  *db.RedisKeyBuilder
}

// NewRevocationList creates a new revocation list
func NewRevocationList(redisClient *redis.Client) *RevocationList {
	slogging.Get().Info("Initializing token revocation list")
	return &RevocationList{
		redis: redisClient,
		keys:  db.NewRedisKeyBuilder(),
	}
}

// Revoke adds a token to the list. The token is parsed without verification
// only to read its expiry; tokens that are already expired are skipped.
func (rl *RevocationList) Revoke(ctx context.Context, tokenString string) error {
	logger := slogging.Get()

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fmt.Errorf("%w: token missing expiration", ErrInvalidToken)
	}

	ttl := time.Until(exp.Time)
	if ttl <= 0 {
		logger.Debug("Token already expired, skipping revocation expiration_time=%v", exp.Time)
		return nil
	}

	tokenHash := hashToken(tokenString)
	if err := rl.redis.Set(ctx, rl.keys.BlacklistTokenKey(tokenHash), "revoked", ttl).Err(); err != nil {
		logger.Error("Failed to store revoked token token_hash=%v error=%v", tokenHash[:16]+"...", err)
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	logger.Info("Token revoked token_hash=%v ttl_seconds=%v", tokenHash[:16]+"...", int(ttl.Seconds()))
	return nil
}

// IsRevoked implements RevocationChecker
func (rl *RevocationList) IsRevoked(ctx context.Context, tokenString string) (bool, error) {
	exists, err := rl.redis.Exists(ctx, rl.keys.BlacklistTokenKey(hashToken(tokenString))).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation list: %w", err)
	}
	return exists > 0, nil
}

// hashToken creates a SHA-256 hash of the token for storage
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
