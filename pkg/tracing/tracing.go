// Package tracing wires the OpenTelemetry SDK behind the tracer API the rest
// of the codebase uses. Without an endpoint configured, spans stay no-ops.
package tracing

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// endpointEnvVar follows the standard OTLP exporter configuration; the
// exporter itself reads the rest of the OTEL_EXPORTER_OTLP_* variables.
const endpointEnvVar = "OTEL_EXPORTER_OTLP_ENDPOINT"

// Setup installs a tracer provider exporting OTLP over gRPC when an endpoint
// is configured, and returns a shutdown function that flushes pending spans.
// When no endpoint is set it returns a no-op shutdown and leaves the default
// (no-op) provider in place.
func Setup(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	if os.Getenv(endpointEnvVar) == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}
