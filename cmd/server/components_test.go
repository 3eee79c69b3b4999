package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/auth"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/config"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/slogging"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	slogging.SetGlobal(slogging.NewWriterLogger(slogging.LogLevelError, false, io.Discard))
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func loadTestConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	t.Setenv("JWT_SECRET", "server-secret")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "drawisly.db"))
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func healthOf(t *testing.T, c *components) (int, map[string]any) {
	t.Helper()
	ts := httptest.NewServer(c.server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestBuildComponents_SQLiteOnly(t *testing.T) {
	cfg := loadTestConfig(t, nil)

	c, err := buildComponents(cfg)
	require.NoError(t, err)
	defer c.close()

	assert.Nil(t, c.redisDB)
	require.NoError(t, c.ping(context.Background()))

	status, body := healthOf(t, c)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	deps, ok := body["dependencies"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, deps, "database")
	assert.NotContains(t, deps, "redis")
}

func TestBuildComponents_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := loadTestConfig(t, map[string]string{
		"REDIS_ENABLED":          "true",
		"REDIS_HOST":             mr.Host(),
		"REDIS_PORT":             mr.Port(),
		"CHAT_RATE_LIMIT_FRAMES": "20",
	})

	c, err := buildComponents(cfg)
	require.NoError(t, err)
	defer c.close()
	require.NotNil(t, c.redisDB)

	status, body := healthOf(t, c)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["dependencies"], "redis")

	mr.Close()
	status, body = healthOf(t, c)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "degraded", body["status"])
}

func TestNewVerifier_RotationAndRevocation(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := loadTestConfig(t, map[string]string{
		"REDIS_ENABLED":        "true",
		"REDIS_HOST":           mr.Host(),
		"REDIS_PORT":           mr.Port(),
		"JWT_PREVIOUS_SECRETS": "old-secret",
	})

	redisDB, err := openRedis(cfg)
	require.NoError(t, err)
	defer redisDB.Close()

	verifier, err := newVerifier(cfg, redisDB)
	require.NoError(t, err)

	issue := func(secret string) string {
		keys, err := auth.NewJWTKeyManager(auth.JWTConfig{SigningMethod: "HS256", Secret: secret})
		require.NoError(t, err)
		tok, err := auth.IssueToken(keys, auth.Identity{UserID: "u1", DisplayName: "Una"}, time.Hour)
		require.NoError(t, err)
		return tok
	}

	ctx := context.Background()
	current := issue("server-secret")
	id, err := verifier.Verify(ctx, current)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)

	_, err = verifier.Verify(ctx, issue("old-secret"))
	assert.NoError(t, err)

	_, err = verifier.Verify(ctx, issue("unknown-secret"))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	require.NoError(t, auth.NewRevocationList(redisDB.GetClient()).Revoke(ctx, current))
	_, err = verifier.Verify(ctx, current)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)
}

func TestTransportConfig(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{"LOGGING_LOG_WEBSOCKET_MESSAGES": "true"})
	tc := transportConfig(cfg)
	assert.Equal(t, cfg.WebSocket.PingPeriod, tc.PingPeriod)
	assert.Equal(t, cfg.WebSocket.SendBufferSize, tc.SendBufferSize)
	assert.True(t, tc.LogMessages)
}

func TestOpenDatabase_UnsupportedType(t *testing.T) {
	cfg := loadTestConfig(t, nil)
	cfg.Database.Type = "oracle"
	_, err := openDatabase(cfg)
	assert.Error(t, err)
}
