package telemetry

import (
	"context"
	"testing"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestNewService(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "console tracing without metrics",
			config: &Config{
				ServiceName:       "test-service",
				ServiceVersion:    "1.0.0",
				Environment:       "test",
				TracingEnabled:    true,
				TracingSampleRate: 0.5,
				ConsoleExporter:   true,
				IsDevelopment:     true,
			},
		},
		{
			name: "everything disabled",
			config: &Config{
				ServiceName:    "test-service",
				ServiceVersion: "1.0.0",
			},
		},
		{
			name: "tracing without exporters",
			config: &Config{
				ServiceName:    "test-service",
				TracingEnabled: true,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewService(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, service)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, service)
			assert.NotNil(t, service.resource)
			assert.NotNil(t, service.GetTracer())
			assert.NotNil(t, service.GetMeter())
			assert.Equal(t, tt.config.TracingEnabled, service.Health().Details["tracing_enabled"])
			assert.NoError(t, service.Shutdown(context.Background()))
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Logging.IsDev = true
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.ServiceName = "drawisly"
	cfg.Telemetry.SampleRate = 0.25
	cfg.Telemetry.StdoutTraces = true

	tc := FromAppConfig(cfg, "dev")
	assert.Equal(t, "drawisly", tc.ServiceName)
	assert.Equal(t, "development", tc.Environment)
	assert.True(t, tc.TracingEnabled)
	assert.True(t, tc.ConsoleExporter)
	assert.InDelta(t, 0.25, tc.TracingSampleRate, 0.0001)
	assert.Equal(t, "dev", tc.GetResourceAttributes()["service.version"])
}

func TestInstrumentClients(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	require.NoError(t, InstrumentRedis(client))
	require.NoError(t, client.Ping(context.Background()).Err())

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, InstrumentGorm(db))
}
