package slogging

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected LogLevel
	}{
		{"debug lowercase", "debug", LogLevelDebug},
		{"debug uppercase", "DEBUG", LogLevelDebug},
		{"info lowercase", "info", LogLevelInfo},
		{"warn lowercase", "warn", LogLevelWarn},
		{"warning lowercase", "warning", LogLevelWarn},
		{"error uppercase", "ERROR", LogLevelError},
		{"unknown defaults to info", "unknown", LogLevelInfo},
		{"empty defaults to info", "", LogLevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLogLevel(tt.input))
		})
	}
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "ERROR", LogLevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(99).String())
	assert.Equal(t, slog.LevelInfo, LogLevel(99).toSlogLevel())
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(Config{Level: LogLevelDebug, LogDir: dir})
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("room %s opened", "ABC1234")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(filepath.Join(dir, "drawisly.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "room ABC1234 opened")
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(LogLevelWarn, false, &buf)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error %d", 42)

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error 42")
}

func TestLogger_SanitizesMessages(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(LogLevelDebug, false, &buf)

	logger.Info("chat from user\nFAKE ENTRY level=ERROR")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.Len(t, lines, 1)
	assert.Contains(t, buf.String(), "chat from user FAKE ENTRY level=ERROR")
}

func TestLogger_ContextMethods(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(LogLevelDebug, true, &buf)

	logger.InfoCtx(context.Background(), "joined", slog.String("room_id", "R1"))
	assert.Contains(t, buf.String(), "room_id=R1")
	assert.Contains(t, buf.String(), "source=")
}

func TestLogger_WithUser(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(LogLevelDebug, false, &buf)

	logger.WithUser("u-1", "c-1").Warn("send buffer full")
	assert.Contains(t, buf.String(), `"user_id":"u-1"`)
	assert.Contains(t, buf.String(), `"conn_id":"c-1"`)
}

func TestRedaction(t *testing.T) {
	assert.Equal(t, "[REDACTED]", RedactToken("short"))
	assert.Equal(t, "eyJh...sig0", RedactToken("eyJhbGciOiJIUzI1NiJ9.payload.sig0"))

	u, err := url.Parse("ws://localhost:8080/ws?token=eyJhbGciOiJIUzI1NiJ9.payload.sig0&x=1")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws?token=eyJh...sig0&x=1", RedactURL(u))
	assert.Equal(t, "", RedactURL(nil))
}

func TestSanitizeLogMessage(t *testing.T) {
	assert.Equal(t, "a b c", SanitizeLogMessage("a\nb\r\tc"))
	assert.Equal(t, "", SanitizeLogMessage(" \n "))
}
