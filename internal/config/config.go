package config

import (
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/slogging"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Chat      ChatConfig      `yaml:"chat"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `yaml:"port" env:"SERVER_PORT"`
	Interface    string        `yaml:"interface" env:"SERVER_INTERFACE"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT"`
	// AllowedOrigins restricts websocket upgrades; empty allows all origins
	AllowedOrigins []string `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Type     string         `yaml:"type" env:"DATABASE_TYPE"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
}

// SQLiteConfig holds SQLite configuration
type SQLiteConfig struct {
	Path string `yaml:"path" env:"SQLITE_PATH"`
}

// PostgresConfig holds PostgreSQL configuration
type PostgresConfig struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST"`
	Port     string `yaml:"port" env:"POSTGRES_PORT"`
	User     string `yaml:"user" env:"POSTGRES_USER"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	Database string `yaml:"database" env:"POSTGRES_DATABASE"`
	SSLMode  string `yaml:"sslmode" env:"POSTGRES_SSL_MODE"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" env:"REDIS_ENABLED"`
	Host     string `yaml:"host" env:"REDIS_HOST"`
	Port     string `yaml:"port" env:"REDIS_PORT"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret            string `yaml:"secret" env:"JWT_SECRET"`
	ExpirationSeconds int    `yaml:"expiration_seconds" env:"JWT_EXPIRATION_SECONDS"`
	SigningMethod     string `yaml:"signing_method" env:"JWT_SIGNING_METHOD"`
	PrivateKeyPath    string `yaml:"private_key_path" env:"JWT_PRIVATE_KEY_PATH"`
	PublicKeyPath     string `yaml:"public_key_path" env:"JWT_PUBLIC_KEY_PATH"`
	// PreviousSecrets are still accepted for verification during key rotation
	PreviousSecrets []string `yaml:"previous_secrets" env:"JWT_PREVIOUS_SECRETS"`
}

// WebSocketConfig holds websocket transport configuration
type WebSocketConfig struct {
	ReadLimitBytes     int64         `yaml:"read_limit_bytes" env:"WEBSOCKET_READ_LIMIT_BYTES"`
	PongWait           time.Duration `yaml:"pong_wait" env:"WEBSOCKET_PONG_WAIT"`
	PingPeriod         time.Duration `yaml:"ping_period" env:"WEBSOCKET_PING_PERIOD"`
	WriteWait          time.Duration `yaml:"write_wait" env:"WEBSOCKET_WRITE_WAIT"`
	SendBufferSize     int           `yaml:"send_buffer_size" env:"WEBSOCKET_SEND_BUFFER_SIZE"`
	ReapInterval       time.Duration `yaml:"reap_interval" env:"WEBSOCKET_REAP_INTERVAL"`
	PersistenceTimeout time.Duration `yaml:"persistence_timeout" env:"WEBSOCKET_PERSISTENCE_TIMEOUT"`
	// RejectDuplicates refuses a second connection for a user instead of replacing the first
	RejectDuplicates bool `yaml:"reject_duplicates" env:"WEBSOCKET_REJECT_DUPLICATES"`
}

// ChatConfig holds chat history and rate limit configuration
type ChatConfig struct {
	DefaultPageLimit int `yaml:"default_page_limit" env:"CHAT_DEFAULT_PAGE_LIMIT"`
	MaxPageLimit     int `yaml:"max_page_limit" env:"CHAT_MAX_PAGE_LIMIT"`
	// RateLimitFrames is the number of chat/draw frames a user may send per window; 0 disables
	RateLimitFrames        int `yaml:"rate_limit_frames" env:"CHAT_RATE_LIMIT_FRAMES"`
	RateLimitWindowSeconds int `yaml:"rate_limit_window_seconds" env:"CHAT_RATE_LIMIT_WINDOW_SECONDS"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level                       string `yaml:"level" env:"LOGGING_LEVEL"`
	IsDev                       bool   `yaml:"is_dev" env:"LOGGING_IS_DEV"`
	IsTest                      bool   `yaml:"is_test" env:"LOGGING_IS_TEST"`
	LogDir                      string `yaml:"log_dir" env:"LOGGING_LOG_DIR"`
	MaxAgeDays                  int    `yaml:"max_age_days" env:"LOGGING_MAX_AGE_DAYS"`
	MaxSizeMB                   int    `yaml:"max_size_mb" env:"LOGGING_MAX_SIZE_MB"`
	MaxBackups                  int    `yaml:"max_backups" env:"LOGGING_MAX_BACKUPS"`
	AlsoLogToConsole            bool   `yaml:"also_log_to_console" env:"LOGGING_ALSO_LOG_TO_CONSOLE"`
	LogWebSocketMsg             bool   `yaml:"log_websocket_messages" env:"LOGGING_LOG_WEBSOCKET_MESSAGES"`
	SuppressUnauthenticatedLogs bool   `yaml:"suppress_unauthenticated_logs" env:"LOGGING_SUPPRESS_UNAUTH_LOGS"`
}

// TelemetryConfig holds tracing configuration
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" env:"TELEMETRY_ENABLED"`
	ServiceName string `yaml:"service_name" env:"TELEMETRY_SERVICE_NAME"`
	// StdoutTraces writes spans to stdout
	StdoutTraces    bool    `yaml:"stdout_traces" env:"TELEMETRY_STDOUT_TRACES"`
	TracingEndpoint string  `yaml:"tracing_endpoint" env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`
	SampleRate      float64 `yaml:"sample_rate" env:"TELEMETRY_SAMPLE_RATE"`
	MetricsEnabled  bool    `yaml:"metrics_enabled" env:"TELEMETRY_METRICS_ENABLED"`
}

// Load loads configuration from YAML file with environment variable overrides
func Load(configFile string) (*Config, error) {
	config := getDefaultConfig()

	if configFile != "" {
		if err := loadFromYAML(config, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config from YAML: %w", err)
		}
	}

	if err := overrideWithEnv(config); err != nil {
		return nil, fmt.Errorf("failed to override with environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// getDefaultConfig returns a configuration with default values
func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			Interface:    "0.0.0.0",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			SQLite: SQLiteConfig{
				Path: "drawisly.db",
			},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     "5432",
				User:     "postgres",
				Database: "drawisly",
				SSLMode:  "disable",
			},
			Redis: RedisConfig{
				Enabled: false,
				Host:    "localhost",
				Port:    "6379",
				DB:      0,
			},
		},
		Auth: AuthConfig{
			JWT: JWTConfig{
				ExpirationSeconds: 3600,
				SigningMethod:     "HS256",
			},
		},
		WebSocket: WebSocketConfig{
			ReadLimitBytes:     64 * 1024,
			PongWait:           60 * time.Second,
			PingPeriod:         30 * time.Second,
			WriteWait:          10 * time.Second,
			SendBufferSize:     256,
			ReapInterval:       time.Minute,
			PersistenceTimeout: 10 * time.Second,
		},
		Chat: ChatConfig{
			DefaultPageLimit:       5,
			MaxPageLimit:           100,
			RateLimitFrames:        0,
			RateLimitWindowSeconds: 10,
		},
		Logging: LoggingConfig{
			Level:                       "info",
			IsDev:                       true,
			LogDir:                      "logs",
			MaxAgeDays:                  7,
			MaxSizeMB:                   100,
			MaxBackups:                  10,
			AlsoLogToConsole:            true,
			SuppressUnauthenticatedLogs: false,
		},
		Telemetry: TelemetryConfig{
			Enabled:        false,
			ServiceName:    "drawisly",
			SampleRate:     1.0,
			MetricsEnabled: true,
		},
	}
}

// loadFromYAML loads configuration from a YAML file
func loadFromYAML(config *Config, filename string) error {
	data, err := os.ReadFile(filename) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return nil
}

// overrideWithEnv overrides configuration values with environment variables
func overrideWithEnv(config *Config) error {
	return overrideStructWithEnv(reflect.ValueOf(config).Elem())
}

// overrideStructWithEnv recursively overrides struct fields with environment variables
func overrideStructWithEnv(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			if err := overrideStructWithEnv(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := setFieldFromString(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s from env %s: %w", fieldType.Name, envTag, err)
		}
	}

	return nil
}

// setFieldFromString sets a struct field value from a string based on the field type
func setFieldFromString(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid bool value: %s", value)
		}
		field.SetBool(boolVal)
	case reflect.Int:
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid int value: %s", value)
		}
		field.SetInt(int64(intVal))
	case reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			duration, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration value: %s", value)
			}
			field.SetInt(int64(duration))
		} else {
			intVal, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid int64 value: %s", value)
			}
			field.SetInt(intVal)
		}
	case reflect.Float64:
		floatVal, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float value: %s", value)
		}
		field.SetFloat(floatVal)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		slice := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				slice = append(slice, trimmed)
			}
		}
		field.Set(reflect.ValueOf(slice))
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Database.Type {
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case "postgres":
		if c.Database.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if c.Database.Postgres.Database == "" {
			return fmt.Errorf("postgres database is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if c.Database.Redis.Enabled && (c.Database.Redis.Host == "" || c.Database.Redis.Port == "") {
		return fmt.Errorf("redis host and port are required when redis is enabled")
	}

	switch c.Auth.JWT.SigningMethod {
	case "HS256":
		if c.Auth.JWT.Secret == "" {
			return fmt.Errorf("jwt secret is required")
		}
	case "RS256", "ES256":
		if c.Auth.JWT.PublicKeyPath == "" {
			return fmt.Errorf("jwt public key path is required for %s", c.Auth.JWT.SigningMethod)
		}
	default:
		return fmt.Errorf("unsupported jwt signing method: %s", c.Auth.JWT.SigningMethod)
	}
	if c.Auth.JWT.ExpirationSeconds <= 0 {
		return fmt.Errorf("jwt expiration must be greater than 0")
	}

	if c.WebSocket.SendBufferSize <= 0 {
		return fmt.Errorf("websocket send buffer size must be greater than 0")
	}
	if c.WebSocket.PingPeriod >= c.WebSocket.PongWait {
		return fmt.Errorf("websocket ping period must be shorter than pong wait")
	}
	if c.WebSocket.ReapInterval <= 0 {
		return fmt.Errorf("websocket reap interval must be greater than 0")
	}

	if c.Chat.DefaultPageLimit <= 0 || c.Chat.MaxPageLimit < c.Chat.DefaultPageLimit {
		return fmt.Errorf("chat page limits must satisfy 0 < default <= max")
	}
	if c.Chat.RateLimitFrames > 0 && !c.Database.Redis.Enabled {
		return fmt.Errorf("chat rate limiting requires redis")
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry sample rate must be between 0 and 1")
	}

	return nil
}

// IsTestMode returns true if running in test mode
func (c *Config) IsTestMode() bool {
	return c.Logging.IsTest || isRunningInTest()
}

// isRunningInTest detects if we're running under 'go test'
func isRunningInTest() bool {
	return flag.Lookup("test.v") != nil
}

// GetJWTDuration returns the JWT expiration duration
func (c *Config) GetJWTDuration() time.Duration {
	return time.Duration(c.Auth.JWT.ExpirationSeconds) * time.Second
}

// GetLogLevel returns the parsed log level
func (c *Config) GetLogLevel() slogging.LogLevel {
	return slogging.ParseLogLevel(c.Logging.Level)
}

// GetRateLimitWindow returns the frame rate limit window duration
func (c *Config) GetRateLimitWindow() time.Duration {
	return time.Duration(c.Chat.RateLimitWindowSeconds) * time.Second
}

// ListenAddress returns the interface:port the server binds to
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Interface, c.Server.Port)
}
