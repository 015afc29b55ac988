// Package tracing provides the OpenTelemetry integration of the weather service.
//
// Spans are created through the global tracer provider. Without an installed
// provider they are no-ops, so instrumentation is always safe to call.
//
//   - Middleware traces every monitoring HTTP request and returns X-Trace-Id
//   - StartSpan wraps internal work such as a single health probe run
//
// Example usage:
//
//	handler := tracing.Middleware(mux)
//
//	ctx, span := tracing.StartSpan(ctx, "health.probe", attribute.String("health.probe", name))
//	defer span.End()
package tracing
