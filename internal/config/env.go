package config

import (
	"log/slog"
	"time"

	"weather-service/internal/observability/slo"
	pkgconfig "weather-service/internal/pkg/config"
	"weather-service/internal/resilience/circuitbreaker"
)

// envLoader applies environment overrides and tracks fallbacks.
type envLoader struct {
	logger   *slog.Logger
	metrics  *pkgconfig.ConfigMetrics
	fallback bool
}

// apply stores r.Value in dst and reports a fallback if one happened.
func apply[T any](l *envLoader, field string, r pkgconfig.LoadResult[T], dst *T) {
	*dst = r.Value
	if !r.FallbackApplied {
		return
	}
	l.fallback = true
	if l.metrics != nil {
		l.metrics.RecordFallback(field)
	}
	l.logger.Warn("configuration fallback applied",
		slog.String("field", field),
		slog.String("warning", r.Warning))
}

// LoadConfigFromEnv overrides cfg with environment variables. It never fails:
// each invalid value keeps the value already in cfg and is logged and counted.
//
// Variables:
//
//	MONITOR_HTTP_PORT, MONITOR_COLLECT_INTERVAL, MONITOR_HEALTH_INTERVAL,
//	MONITOR_STOP_TIMEOUT, MONITOR_HEALTH_CEILING, TRACE_SAMPLE_RATIO, WEATHER_SLO_AVAILABILITY_TARGET,
//	WEATHER_API_BASE_URL, WEATHER_API_KEY, WEATHER_API_TIMEOUT, WEATHER_API_RATE_LIMIT,
//	WEATHER_CB_FAILURE_THRESHOLD, WEATHER_CB_SUCCESS_THRESHOLD, WEATHER_CB_OPEN_TIMEOUT,
//	REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, CACHE_TTL, CACHE_NAMES
func LoadConfigFromEnv(cfg *Config, logger *slog.Logger, metrics *pkgconfig.ConfigMetrics) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &envLoader{logger: logger, metrics: metrics}

	apply(l, "http_port", pkgconfig.LoadEnvInt("MONITOR_HTTP_PORT", cfg.HTTP.Port, pkgconfig.ValidatePort), &cfg.HTTP.Port)
	apply(l, "collect_interval", pkgconfig.LoadEnvDuration("MONITOR_COLLECT_INTERVAL", cfg.Telemetry.CollectInterval, pkgconfig.ValidateInterval), &cfg.Telemetry.CollectInterval)
	apply(l, "health_interval", pkgconfig.LoadEnvDuration("MONITOR_HEALTH_INTERVAL", cfg.Telemetry.HealthInterval, pkgconfig.ValidateInterval), &cfg.Telemetry.HealthInterval)
	apply(l, "stop_timeout", pkgconfig.LoadEnvDuration("MONITOR_STOP_TIMEOUT", cfg.Telemetry.StopTimeout, func(d time.Duration) error {
		return pkgconfig.ValidateDuration(d, time.Second, 5*time.Minute)
	}), &cfg.Telemetry.StopTimeout)
	apply(l, "availability_target", pkgconfig.LoadEnvFloat("WEATHER_SLO_AVAILABILITY_TARGET", cfg.Telemetry.AvailabilityTarget, slo.ValidateTarget), &cfg.Telemetry.AvailabilityTarget)
	apply(l, "health_ceiling", pkgconfig.LoadEnvDuration("MONITOR_HEALTH_CEILING", cfg.Health.Ceiling, func(d time.Duration) error {
		return pkgconfig.ValidateDuration(d, 100*time.Millisecond, 5*time.Minute)
	}), &cfg.Health.Ceiling)

	apply(l, "trace_sample_ratio", pkgconfig.LoadEnvFloat("TRACE_SAMPLE_RATIO", cfg.Tracing.SampleRatio, validateRatio), &cfg.Tracing.SampleRatio)

	apply(l, "weather_api_base_url", pkgconfig.LoadEnvString("WEATHER_API_BASE_URL", cfg.WeatherAPI.BaseURL, pkgconfig.ValidateHTTPURL), &cfg.WeatherAPI.BaseURL)
	apply(l, "weather_api_key", pkgconfig.LoadEnvString("WEATHER_API_KEY", cfg.WeatherAPI.APIKey, nil), &cfg.WeatherAPI.APIKey)
	apply(l, "weather_api_timeout", pkgconfig.LoadEnvDuration("WEATHER_API_TIMEOUT", cfg.WeatherAPI.Timeout, pkgconfig.ValidatePositiveDuration), &cfg.WeatherAPI.Timeout)
	apply(l, "weather_api_rate_limit", pkgconfig.LoadEnvFloat("WEATHER_API_RATE_LIMIT", cfg.WeatherAPI.RateLimit, pkgconfig.ValidateNonNegativeFloat), &cfg.WeatherAPI.RateLimit)

	loadBreakerEnv(l, cfg)

	apply(l, "redis_addr", pkgconfig.LoadEnvString("REDIS_ADDR", cfg.Redis.Addr, pkgconfig.ValidateHostPort), &cfg.Redis.Addr)
	apply(l, "redis_password", pkgconfig.LoadEnvString("REDIS_PASSWORD", cfg.Redis.Password, nil), &cfg.Redis.Password)
	apply(l, "redis_db", pkgconfig.LoadEnvInt("REDIS_DB", cfg.Redis.DB, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 0, 15)
	}), &cfg.Redis.DB)
	apply(l, "cache_ttl", pkgconfig.LoadEnvDuration("CACHE_TTL", cfg.Redis.TTL, pkgconfig.ValidatePositiveDuration), &cfg.Redis.TTL)
	apply(l, "cache_names", pkgconfig.LoadEnvStringList("CACHE_NAMES", cfg.Caches, nil), &cfg.Caches)

	cfg.FallbackApplied = cfg.FallbackApplied || l.fallback
	if metrics != nil {
		metrics.SetFallbackActive(cfg.FallbackApplied)
		metrics.RecordLoad()
	}
}

// loadBreakerEnv overrides the weather API breaker, adding it when the file omitted it.
func loadBreakerEnv(l *envLoader, cfg *Config) {
	name := circuitbreaker.WeatherAPIConfig().Name
	idx := -1
	for i := range cfg.Breakers {
		if cfg.Breakers[i].Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		cfg.Breakers = append(cfg.Breakers, circuitbreaker.WeatherAPIConfig())
		idx = len(cfg.Breakers) - 1
	}
	b := &cfg.Breakers[idx]

	positive := func(v int) error { return pkgconfig.ValidateIntRange(v, 1, 1000) }
	apply(l, "cb_failure_threshold", pkgconfig.LoadEnvInt("WEATHER_CB_FAILURE_THRESHOLD", b.FailureThreshold, positive), &b.FailureThreshold)
	apply(l, "cb_success_threshold", pkgconfig.LoadEnvInt("WEATHER_CB_SUCCESS_THRESHOLD", b.SuccessThreshold, positive), &b.SuccessThreshold)
	apply(l, "cb_open_timeout", pkgconfig.LoadEnvDuration("WEATHER_CB_OPEN_TIMEOUT", b.OpenTimeout, pkgconfig.ValidateNonNegativeDuration), &b.OpenTimeout)
}
