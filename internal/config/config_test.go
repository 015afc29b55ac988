package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-service/internal/infra/cache"
	pkgconfig "weather-service/internal/pkg/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 15*time.Second, cfg.Telemetry.CollectInterval)
	assert.Equal(t, 30*time.Second, cfg.Telemetry.HealthInterval)
	assert.Equal(t, 10*time.Second, cfg.Health.Ceiling)
	assert.Equal(t, cache.DefaultNames, cfg.Caches)
	assert.True(t, cfg.UsesMockWeather())

	b, ok := cfg.Breaker("weather-api")
	require.True(t, ok)
	assert.Equal(t, 5, b.FailureThreshold)
	assert.Equal(t, 3, b.SuccessThreshold)
	assert.Equal(t, time.Minute, b.OpenTimeout)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTP.Port = 0
	cfg.Telemetry.CollectInterval = 500 * time.Millisecond
	cfg.Redis.Addr = "no-port"
	cfg.Caches = nil

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http.port")
	assert.Contains(t, err.Error(), "telemetry.collect_interval")
	assert.Contains(t, err.Error(), "redis.addr")
	assert.Contains(t, err.Error(), "caches")
}

func TestValidate_RequiresWeatherBreaker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Breakers[0].Name = "other"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"weather-api" breaker is required`)
}

func TestValidate_DuplicateBreaker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Breakers = append(cfg.Breakers, cfg.Breakers[0])

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate name")
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("MONITOR_HTTP_PORT", "9090")
	t.Setenv("MONITOR_COLLECT_INTERVAL", "5s")
	t.Setenv("WEATHER_API_KEY", "secret")
	t.Setenv("WEATHER_CB_FAILURE_THRESHOLD", "2")
	t.Setenv("WEATHER_CB_OPEN_TIMEOUT", "0s")
	t.Setenv("CACHE_NAMES", "a, b")

	cfg := DefaultConfig()
	LoadConfigFromEnv(&cfg, discardLogger(), nil)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 5*time.Second, cfg.Telemetry.CollectInterval)
	assert.False(t, cfg.UsesMockWeather())
	assert.Equal(t, []string{"a", "b"}, cfg.Caches)
	assert.False(t, cfg.FallbackApplied)

	b, _ := cfg.Breaker("weather-api")
	assert.Equal(t, 2, b.FailureThreshold)
	assert.Equal(t, time.Duration(0), b.OpenTimeout)
}

func TestLoadConfigFromEnv_FallsBackOnInvalidValues(t *testing.T) {
	t.Setenv("MONITOR_HTTP_PORT", "70000")
	t.Setenv("MONITOR_HEALTH_INTERVAL", "100ms")
	t.Setenv("REDIS_ADDR", "not an address")
	t.Setenv("TRACE_SAMPLE_RATIO", "1.5")

	metrics := pkgconfig.NewConfigMetrics(nil, "monitor")
	cfg := DefaultConfig()
	LoadConfigFromEnv(&cfg, discardLogger(), metrics)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.Telemetry.HealthInterval)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
	assert.True(t, cfg.FallbackApplied)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("http_port")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("redis_addr")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbackActive))
	assert.Greater(t, testutil.ToFloat64(metrics.LoadTimestamp), 0.0)
}

func TestLoadConfigFromEnv_AddsMissingBreaker(t *testing.T) {
	t.Setenv("WEATHER_CB_SUCCESS_THRESHOLD", "1")

	cfg := DefaultConfig()
	cfg.Breakers = nil
	LoadConfigFromEnv(&cfg, discardLogger(), nil)

	b, ok := cfg.Breaker("weather-api")
	require.True(t, ok)
	assert.Equal(t, 1, b.SuccessThreshold)
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
http:
  port: 9000
telemetry:
  collect_interval: 20s
weather_api:
  base_url: https://weather.internal/v2
circuit_breakers:
  - name: weather-api
    failure_threshold: 7
    success_threshold: 2
    open_timeout: 30s
redis:
  addr: redis:6379
`)
	t.Setenv(FileEnvKey, path)
	t.Setenv("MONITOR_HTTP_PORT", "9100")

	cfg, err := Load(discardLogger(), nil)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.HTTP.Port)
	assert.Equal(t, 20*time.Second, cfg.Telemetry.CollectInterval)
	assert.Equal(t, 30*time.Second, cfg.Telemetry.HealthInterval)
	assert.Equal(t, "https://weather.internal/v2", cfg.WeatherAPI.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.WeatherAPI.Timeout)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)

	b, ok := cfg.Breaker("weather-api")
	require.True(t, ok)
	assert.Equal(t, 7, b.FailureThreshold)
	assert.Equal(t, 30*time.Second, b.OpenTimeout)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv(FileEnvKey, filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load(discardLogger(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestLoad_MalformedFile(t *testing.T) {
	t.Setenv(FileEnvKey, writeFile(t, "http: [unclosed"))

	_, err := Load(discardLogger(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoad_InvalidFileValues(t *testing.T) {
	t.Setenv(FileEnvKey, writeFile(t, "health:\n  ceiling: 0s\n"))

	_, err := Load(discardLogger(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "health.ceiling")
}
