package weatherapi

import (
	"context"
	"log/slog"
	"strconv"

	"weather-service/internal/infra/cache"
	"weather-service/internal/weather"
)

// CachedClient serves current conditions from the weather-current cache and
// forecasts from the weather-forecast cache, falling through to the wrapped client on a miss.
// Cache errors are logged and never fail the call.
type CachedClient struct {
	inner    weather.Client
	current  *cache.Cache
	forecast *cache.Cache
	logger   *slog.Logger
}

// NewCachedClient wraps inner with the caches found in reg. Missing caches disable
// caching for that call type.
func NewCachedClient(inner weather.Client, reg *cache.Registry, logger *slog.Logger) *CachedClient {
	if logger == nil {
		logger = slog.Default()
	}
	c := &CachedClient{inner: inner, logger: logger}
	if reg != nil {
		c.current, _ = reg.Cache(cache.CurrentWeather)
		c.forecast, _ = reg.Cache(cache.Forecast)
	}
	return c
}

// CurrentConditions implements weather.Client.
func (c *CachedClient) CurrentConditions(ctx context.Context, loc weather.Location) (weather.Conditions, error) {
	return readThrough(ctx, c, c.current, loc.Key(), func() (weather.Conditions, error) {
		return c.inner.CurrentConditions(ctx, loc)
	})
}

// Forecast implements weather.Client.
func (c *CachedClient) Forecast(ctx context.Context, loc weather.Location, days int) ([]weather.Conditions, error) {
	key := loc.Key() + ":" + strconv.Itoa(days)
	return readThrough(ctx, c, c.forecast, key, func() ([]weather.Conditions, error) {
		return c.inner.Forecast(ctx, loc, days)
	})
}

func readThrough[T any](ctx context.Context, c *CachedClient, store *cache.Cache, key string, load func() (T, error)) (T, error) {
	if store == nil {
		return load()
	}

	var cached T
	hit, err := store.Get(ctx, key, &cached)
	if err != nil {
		c.logger.Warn("weather cache read failed",
			slog.String("cache", store.Name()),
			slog.String("key", key),
			slog.Any("error", err))
	}
	if hit {
		return cached, nil
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if err := store.Set(ctx, key, v); err != nil {
		c.logger.Warn("weather cache write failed",
			slog.String("cache", store.Name()),
			slog.String("key", key),
			slog.Any("error", err))
	}
	return v, nil
}
