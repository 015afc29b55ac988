// Package observability groups the monitoring side of the weather service.
//
// Subpackages:
//   - logging: slog loggers and context propagation
//   - metrics: the in-process metrics registry and its text exposition
//   - health: probes, the orchestrator running them and status aggregation
//   - health/probes: weather API, cache and system resource probes
//   - telemetry: periodic collection of breaker, cache, process and health gauges
//   - slo: availability objectives over breaker traffic
//   - tracing: OpenTelemetry provider setup, HTTP middleware and spans
//
// Example usage:
//
//	import (
//	    "weather-service/internal/observability/health"
//	    "weather-service/internal/observability/metrics"
//	    "weather-service/internal/observability/telemetry"
//	)
//
//	func main() {
//	    reg := metrics.NewRegistry()
//	    orch := health.NewOrchestrator()
//	    sched := telemetry.NewScheduler(reg, orch, nil, nil)
//	    sched.Start()
//	    defer sched.Stop(context.Background())
//	}
package observability
