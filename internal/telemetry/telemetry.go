// Package telemetry sets up the OpenTelemetry tracer used across the
// catalog and host bridge, grounded on the teacher's telemetry.SetupOTel and
// sources.InitConnectionSpan helpers.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// NewTracer returns a tracer backed by an in-process, exporter-less SDK
// provider. A host embedding this extension can swap in a real exporter by
// constructing its own trace.Tracer and passing it to the catalog/host
// bridge constructors instead of calling this helper.
func NewTracer(serviceName string) trace.Tracer {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	return tp.Tracer(serviceName)
}

// InitConnectionSpan starts a span around opening a connection to the host
// database, the same shape as the teacher's sources.InitConnectionSpan.
func InitConnectionSpan(ctx context.Context, tracer trace.Tracer, component, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, component+"/connection/init",
		trace.WithAttributes(
			attribute.String("component", component),
			attribute.String("name", name),
		),
	)
}
