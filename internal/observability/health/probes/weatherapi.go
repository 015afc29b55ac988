package probes

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"weather-service/internal/observability/health"
	"weather-service/internal/weather"
)

const (
	// WeatherAPIName is the aggregation key of the upstream API probe.
	WeatherAPIName = "weather-api"

	// WeatherAPISlowThreshold is the latency above which the upstream is DEGRADED.
	WeatherAPISlowThreshold = 5 * time.Second

	weatherAPITimeout = 10 * time.Second
)

// WeatherAPIProbe issues one real current-conditions call for a reference location.
type WeatherAPIProbe struct {
	client   weather.Client
	location weather.Location
	logger   *slog.Logger
	now      func() time.Time
}

// NewWeatherAPIProbe returns a probe calling client for weather.ReferenceLocation.
// client should be the unprotected upstream: behind an open circuit breaker every
// check would be rejected and a recovery would go unnoticed.
func NewWeatherAPIProbe(client weather.Client, logger *slog.Logger) *WeatherAPIProbe {
	if logger == nil {
		logger = slog.Default()
	}
	return &WeatherAPIProbe{
		client:   client,
		location: weather.ReferenceLocation,
		logger:   logger,
		now:      time.Now,
	}
}

// Name implements health.Probe.
func (p *WeatherAPIProbe) Name() string { return WeatherAPIName }

// Timeout implements health.TimeoutProvider.
func (p *WeatherAPIProbe) Timeout() time.Duration { return weatherAPITimeout }

// Check implements health.Probe.
func (p *WeatherAPIProbe) Check(ctx context.Context) (st health.Status) {
	start := p.now()
	defer recoverInto(&st, WeatherAPIName, start, p.now)

	_, err := p.client.CurrentConditions(ctx, p.location)
	elapsed := p.now().Sub(start)

	if err != nil {
		p.logger.Error("weather api health check failed",
			slog.String("location", p.location.FullName()),
			slog.Any("error", err))
		return health.Down(WeatherAPIName, err.Error()).
			WithResponseTime(elapsed).
			WithDetails(map[string]any{
				"error":            err.Error(),
				"error_type":       errorType(err),
				"response_time_ms": elapsed.Milliseconds(),
			})
	}

	details := map[string]any{
		"test_location":    p.location.FullName(),
		"response_time_ms": elapsed.Milliseconds(),
	}
	if elapsed > WeatherAPISlowThreshold {
		return health.Degraded(WeatherAPIName, fmt.Sprintf("API responding slowly: %dms", elapsed.Milliseconds())).
			WithResponseTime(elapsed).
			WithDetails(details)
	}
	return health.Up(WeatherAPIName, "").WithResponseTime(elapsed).WithDetails(details)
}

// errorType names the concrete type of err, e.g. "*url.Error".
func errorType(err error) string {
	return reflect.TypeOf(err).String()
}

// recoverInto converts a panic in a probe into a DOWN status.
func recoverInto(st *health.Status, name string, start time.Time, now func() time.Time) {
	if r := recover(); r != nil {
		elapsed := now().Sub(start)
		*st = health.Down(name, fmt.Sprintf("%s check failed: %v", name, r)).
			WithResponseTime(elapsed).
			WithDetails(map[string]any{
				"error":            fmt.Sprint(r),
				"response_time_ms": elapsed.Milliseconds(),
			})
	}
}
