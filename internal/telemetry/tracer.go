// Package telemetry sets up OpenTelemetry tracing
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "bitwise74/reel-api"

var provider *sdktrace.TracerProvider

// Init installs a global tracer provider exporting to stdout. When tracing
// is disabled the global no-op provider stays in place and Tracer still
// works.
func Init(serviceName string, enabled bool) error {
	if !enabled {
		return nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter, %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource, %w", err)
	}

	provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return nil
}

func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Shutdown flushes pending spans.
func Shutdown(ctx context.Context) {
	if provider == nil {
		return
	}

	if err := provider.Shutdown(ctx); err != nil {
		zap.L().Error("Failed to shut down tracer provider", zap.Error(err))
	}
}
