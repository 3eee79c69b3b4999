package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/slogging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Service manages OpenTelemetry providers and configuration
type Service struct {
	config *Config

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider

	tracer trace.Tracer
	meter  metric.Meter

	resource *resource.Resource
}

// NewService creates a new telemetry service
func NewService(config *Config) (*Service, error) {
	service := &Service{
		config: config,
	}

	if err := service.initResource(); err != nil {
		return nil, fmt.Errorf("failed to initialize resource: %w", err)
	}

	if config.TracingEnabled {
		if err := service.initTracing(); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if config.MetricsEnabled {
		if err := service.initMetrics(); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	service.initPropagation()

	return service, nil
}

func (s *Service) initResource() error {
	attrs := make([]attribute.KeyValue, 0)
	for key, value := range s.config.GetResourceAttributes() {
		attrs = append(attrs, attribute.String(key, value))
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(resource.Default().SchemaURL(), attrs...))
	if err != nil {
		return fmt.Errorf("failed to merge with default resource: %w", err)
	}

	s.resource = res
	return nil
}

func (s *Service) initTracing() error {
	var exporters []sdktrace.SpanExporter

	if s.config.ConsoleExporter {
		consoleExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create console trace exporter: %w", err)
		}
		exporters = append(exporters, consoleExporter)
	}

	if s.config.TracingEndpoint != "" {
		endpoint := strings.TrimPrefix(strings.TrimPrefix(s.config.TracingEndpoint, "http://"), "https://")
		otlpExporter, err := otlptracegrpc.New(context.Background(),
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		exporters = append(exporters, otlpExporter)
	}

	if len(exporters) == 0 {
		return fmt.Errorf("no trace exporters configured")
	}

	var sampler sdktrace.Sampler
	switch rate := s.config.TracingSampleRate; {
	case rate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case rate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(rate)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(s.resource),
		sdktrace.WithSampler(sampler),
	}
	for _, exporter := range exporters {
		if s.config.IsDevelopment {
			opts = append(opts, sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
		} else {
			opts = append(opts, sdktrace.WithBatcher(exporter))
		}
	}

	s.tracerProvider = sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(s.tracerProvider)
	s.tracer = s.tracerProvider.Tracer(s.config.ServiceName, trace.WithInstrumentationVersion(s.config.ServiceVersion))

	slogging.Get().Debug("Tracing initialized with %d exporters, sample rate: %.2f", len(exporters), s.config.TracingSampleRate)
	return nil
}

// initMetrics registers an OTel meter provider whose readings are served from the
// default Prometheus registry alongside the application collectors.
func (s *Service) initMetrics() error {
	exporter, err := otelprom.New()
	if err != nil {
		return fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	s.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(s.resource),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(s.meterProvider)
	s.meter = s.meterProvider.Meter(s.config.ServiceName, metric.WithInstrumentationVersion(s.config.ServiceVersion))
	return nil
}

func (s *Service) initPropagation() {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// GetTracer returns the service tracer, or the global one when tracing is off
func (s *Service) GetTracer() trace.Tracer {
	if s.tracer == nil {
		return otel.Tracer(s.config.ServiceName)
	}
	return s.tracer
}

// GetMeter returns the service meter, or the global one when metrics are off
func (s *Service) GetMeter() metric.Meter {
	if s.meter == nil {
		return otel.Meter(s.config.ServiceName)
	}
	return s.meter
}

// Shutdown gracefully shuts down all telemetry providers
func (s *Service) Shutdown(ctx context.Context) error {
	var errs []error
	if s.tracerProvider != nil {
		if err := s.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	if s.meterProvider != nil {
		if err := s.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// HealthStatus represents the health status of the telemetry service
type HealthStatus struct {
	Healthy bool           `json:"healthy"`
	Details map[string]any `json:"details"`
}

// Health reports which providers are active
func (s *Service) Health() HealthStatus {
	return HealthStatus{
		Healthy: true,
		Details: map[string]any{
			"tracing_enabled": s.tracerProvider != nil,
			"metrics_enabled": s.meterProvider != nil,
			"service_name":    s.config.ServiceName,
			"service_version": s.config.ServiceVersion,
			"environment":     s.config.Environment,
		},
	}
}
