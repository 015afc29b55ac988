package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetup(t *testing.T) {
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	exporter := tracetest.NewInMemoryExporter()
	shutdown := Setup("1.0.0", 1, sdktrace.WithSyncer(exporter))

	_, span := StartSpan(context.Background(), "health.check")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "health.check", spans[0].Name)

	var serviceName string
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == "service.name" {
			serviceName = kv.Value.AsString()
		}
	}
	assert.Equal(t, "weather-service", serviceName)
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")

	require.NoError(t, shutdown(context.Background()))
}

func TestSetup_ZeroRatioDropsRootSpans(t *testing.T) {
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	exporter := tracetest.NewInMemoryExporter()
	shutdown := Setup("1.0.0", 0, sdktrace.WithSyncer(exporter))
	defer func() { _ = shutdown(context.Background()) }()

	_, span := StartSpan(context.Background(), "dropped")
	span.End()

	assert.Empty(t, exporter.GetSpans())
}
