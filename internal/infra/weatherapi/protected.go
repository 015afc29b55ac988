package weatherapi

import (
	"context"
	"errors"
	"time"

	"weather-service/internal/observability/metrics"
	"weather-service/internal/resilience/circuitbreaker"
	"weather-service/internal/weather"
)

// ProtectedClient routes every call to the wrapped client through a circuit breaker
// and records call timings in the metrics registry.
type ProtectedClient struct {
	inner   weather.Client
	breaker *circuitbreaker.CircuitBreaker
	metrics *metrics.Registry
}

// NewProtectedClient wraps inner with breaker. reg may be nil.
func NewProtectedClient(inner weather.Client, breaker *circuitbreaker.CircuitBreaker, reg *metrics.Registry) *ProtectedClient {
	return &ProtectedClient{inner: inner, breaker: breaker, metrics: reg}
}

// Breaker returns the circuit breaker guarding the client.
func (p *ProtectedClient) Breaker() *circuitbreaker.CircuitBreaker { return p.breaker }

// CurrentConditions implements weather.Client.
func (p *ProtectedClient) CurrentConditions(ctx context.Context, loc weather.Location) (weather.Conditions, error) {
	start := time.Now()
	c, err := circuitbreaker.Do(p.breaker, func() (weather.Conditions, error) {
		return p.inner.CurrentConditions(ctx, loc)
	})
	p.record("current", start, err)
	return c, err
}

// Forecast implements weather.Client.
func (p *ProtectedClient) Forecast(ctx context.Context, loc weather.Location, days int) ([]weather.Conditions, error) {
	start := time.Now()
	f, err := circuitbreaker.Do(p.breaker, func() ([]weather.Conditions, error) {
		return p.inner.Forecast(ctx, loc, days)
	})
	p.record("forecast", start, err)
	return f, err
}

func (p *ProtectedClient) record(endpoint string, start time.Time, err error) {
	if p.metrics == nil {
		return
	}
	outcome := "success"
	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	}
	if outcome != "rejected" {
		_ = p.metrics.RecordTimer("weather_api_call", time.Since(start), "endpoint", endpoint)
	}
	_ = p.metrics.Inc("weather_api_requests_total", "endpoint", endpoint, "outcome", outcome)
}
