package telemetry

import (
	"fmt"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
)

// InstrumentRedis adds OpenTelemetry tracing and metrics to a Redis client
func InstrumentRedis(client redis.UniversalClient) error {
	if err := redisotel.InstrumentTracing(client); err != nil {
		return fmt.Errorf("failed to instrument Redis tracing: %w", err)
	}
	if err := redisotel.InstrumentMetrics(client); err != nil {
		return fmt.Errorf("failed to instrument Redis metrics: %w", err)
	}
	return nil
}

// InstrumentGorm registers the OpenTelemetry plugin on a GORM handle
func InstrumentGorm(db *gorm.DB) error {
	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		return fmt.Errorf("failed to instrument GORM: %w", err)
	}
	return nil
}
