// Package telemetry exposes the process-wide OpenTelemetry meter and
// tracer used to instrument the trait resolution engine.
//
// Unlike a network service, the core engine never configures an OTLP
// exporter itself — doing so would mean opening an outbound connection,
// which contradicts the no-network-protocol contract the engine operates
// under (spec §1 Non-goals). Meter and Tracer always read from whatever
// global provider the embedding process registered with
// otel.SetMeterProvider / otel.SetTracerProvider (a no-op provider if the
// embedder registered none), the way akashi's internal/telemetry.Meter
// reads the global provider after Init wired up an exporter.
package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// instrumentationName identifies this module's instrumentation scope to
// whatever meter/tracer provider the embedding process has configured.
const instrumentationName = "github.com/ashita-ai/anamnesis"

// Meter returns the meter for the engine's instrumentation scope.
func Meter() metric.Meter {
	return otel.GetMeterProvider().Meter(instrumentationName)
}

// Tracer returns the tracer for the engine's instrumentation scope.
func Tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(instrumentationName)
}
