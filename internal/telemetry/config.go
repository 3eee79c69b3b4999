package telemetry

import (
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/config"
)

// Config holds configuration options for OpenTelemetry
type Config struct {
	// Service information
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Tracing configuration
	TracingEnabled    bool
	TracingSampleRate float64
	TracingEndpoint   string

	// Metrics configuration
	MetricsEnabled bool

	// Development settings
	IsDevelopment   bool
	ConsoleExporter bool
}

// FromAppConfig derives the telemetry settings from the application configuration
func FromAppConfig(cfg *config.Config, version string) *Config {
	env := "production"
	if cfg.Logging.IsDev {
		env = "development"
	}
	return &Config{
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Environment:       env,
		TracingEnabled:    cfg.Telemetry.Enabled,
		TracingSampleRate: cfg.Telemetry.SampleRate,
		TracingEndpoint:   cfg.Telemetry.TracingEndpoint,
		MetricsEnabled:    cfg.Telemetry.MetricsEnabled,
		IsDevelopment:     cfg.Logging.IsDev,
		ConsoleExporter:   cfg.Telemetry.StdoutTraces,
	}
}

// GetResourceAttributes returns the attributes attached to every span and metric
func (c *Config) GetResourceAttributes() map[string]string {
	return map[string]string{
		"service.name":           c.ServiceName,
		"service.version":        c.ServiceVersion,
		"deployment.environment": c.Environment,
	}
}
