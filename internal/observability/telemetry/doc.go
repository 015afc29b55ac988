// Package telemetry runs the periodic collection jobs that copy circuit breaker,
// cache, process and health signals into the metrics registry.
//
// Two jobs run on independent schedules:
//
//   - collect (default every 15s): breaker stats, cache accessibility, process gauges
//   - health (default every 30s): a full health orchestrator run, written as gauges
//
// Both run once immediately on Start. Metrics forces a synchronous collect pass before
// rendering so callers never wait for the next tick.
package telemetry
