package slogging

import (
	"encoding/json"
	"log/slog"
)

// WebSocketLoggingConfig holds configuration for frame logging
type WebSocketLoggingConfig struct {
	Enabled        bool
	MaxMessageSize int64 // Max frame size to log (in bytes)
}

// WSMessageDirection indicates the direction of the frame
type WSMessageDirection string

const (
	WSMessageInbound  WSMessageDirection = "INBOUND"
	WSMessageOutbound WSMessageDirection = "OUTBOUND"
)

// LogWebSocketMessage logs a websocket frame at debug level
func LogWebSocketMessage(direction WSMessageDirection, connID, userID string, data []byte, config WebSocketLoggingConfig) {
	if !config.Enabled {
		return
	}

	logger := Get()
	if logger.level > LogLevelDebug {
		return
	}

	attrs := []any{
		slog.String("direction", string(direction)),
		slog.String("user_id", userID),
		slog.String("conn_id", connID),
		slog.Int("size_bytes", len(data)),
	}

	if config.MaxMessageSize > 0 && int64(len(data)) > config.MaxMessageSize {
		logger.slogger.Debug("[wsmsg] frame too large to log", append(attrs, slog.Bool("truncated", true))...)
		return
	}

	var frame any
	if json.Unmarshal(data, &frame) == nil {
		logger.slogger.Debug("[wsmsg] frame", append(attrs, slog.Any("frame", frame))...)
		return
	}
	logger.slogger.Debug("[wsmsg] frame", append(attrs, slog.String("content", SanitizeLogMessage(RedactTokenParams(string(data)))))...)
}
