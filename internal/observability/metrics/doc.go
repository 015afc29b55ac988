// Package metrics provides the in-process metrics registry of the weather service.
//
// The Registry accumulates three kinds of metrics keyed by name plus label set:
//   - counters: monotonic, non-negative increments
//   - gauges: last written value
//   - histograms: count, sum, min and max of observations (no buckets)
//
// Render produces a deterministic text exposition that backs the /metrics endpoint.
// NewCollector bridges the same registry into client_golang for /metrics/prometheus.
//
// Example usage:
//
//	reg := metrics.NewRegistry()
//	_ = reg.Inc("weather_requests_total", "endpoint", "current")
//	_ = reg.SetGauge("weather_cache_count", 3)
//	_ = reg.RecordTimer("weather_api_call", time.Since(start), "operation", "current")
//	fmt.Print(reg.Render())
package metrics
