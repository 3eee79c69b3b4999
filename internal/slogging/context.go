package slogging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// GinContextLike defines a minimal interface for contexts that can be used with the logger
type GinContextLike interface {
	Get(key any) (any, bool)
	GetHeader(key string) string
	ClientIP() string
}

// GetContextLogger retrieves a logger from the context or falls back to the global one
func GetContextLogger(c GinContextLike) SimpleLogger {
	if loggerInterface, exists := c.Get("logger"); exists {
		if logger, ok := loggerInterface.(SimpleLogger); ok {
			return logger
		}
	}
	return Get()
}

// WithContext returns a context-aware logger that includes request information
func (l *Logger) WithContext(c GinContextLike) *ContextLogger {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
		if setter, ok := c.(interface{ Header(string, string) }); ok {
			setter.Header("X-Request-ID", requestID)
		}
	}

	userID, _ := c.Get("userID")

	return &ContextLogger{
		logger: l,
		slogger: l.slogger.With(
			slog.String("request_id", requestID),
			slog.String("client_ip", c.ClientIP()),
			slog.String("user_id", fmt.Sprintf("%v", userID)),
		),
		ctx: context.Background(),
	}
}

// WithUser returns a logger carrying connection-scoped attributes
func (l *Logger) WithUser(userID, connID string) *ContextLogger {
	return &ContextLogger{
		logger:  l,
		slogger: l.slogger.With(slog.String("user_id", userID), slog.String("conn_id", connID)),
		ctx:     context.Background(),
	}
}

// ContextLogger adds request context to log messages
type ContextLogger struct {
	logger  *Logger
	slogger *slog.Logger
	ctx     context.Context
}

func (cl *ContextLogger) logf(min LogLevel, format string, args []any) {
	if cl.logger.level > min {
		return
	}
	message := format
	if len(args) > 0 {
		message = fmt.Sprintf(format, args...)
	}
	message = SanitizeLogMessage(message)
	switch min {
	case LogLevelDebug:
		cl.slogger.Debug(message)
	case LogLevelInfo:
		cl.slogger.Info(message)
	case LogLevelWarn:
		cl.slogger.Warn(message)
	default:
		cl.slogger.Error(message)
	}
}

// Debug logs a debug-level message with context
func (cl *ContextLogger) Debug(format string, args ...any) { cl.logf(LogLevelDebug, format, args) }

// Info logs an info-level message with context
func (cl *ContextLogger) Info(format string, args ...any) { cl.logf(LogLevelInfo, format, args) }

// Warn logs a warning-level message with context
func (cl *ContextLogger) Warn(format string, args ...any) { cl.logf(LogLevelWarn, format, args) }

// Error logs an error-level message with context
func (cl *ContextLogger) Error(format string, args ...any) { cl.logf(LogLevelError, format, args) }

// DebugCtx logs a debug message with additional structured attributes
func (cl *ContextLogger) DebugCtx(msg string, attrs ...slog.Attr) {
	cl.slogger.LogAttrs(cl.ctx, slog.LevelDebug, msg, attrs...)
}

// InfoCtx logs an info message with additional structured attributes
func (cl *ContextLogger) InfoCtx(msg string, attrs ...slog.Attr) {
	cl.slogger.LogAttrs(cl.ctx, slog.LevelInfo, msg, attrs...)
}

// WarnCtx logs a warning message with additional structured attributes
func (cl *ContextLogger) WarnCtx(msg string, attrs ...slog.Attr) {
	cl.slogger.LogAttrs(cl.ctx, slog.LevelWarn, msg, attrs...)
}

// ErrorCtx logs an error message with additional structured attributes
func (cl *ContextLogger) ErrorCtx(msg string, attrs ...slog.Attr) {
	cl.slogger.LogAttrs(cl.ctx, slog.LevelError, msg, attrs...)
}
