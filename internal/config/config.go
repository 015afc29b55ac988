// Package config assembles the monitor configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"weather-service/internal/infra/cache"
	"weather-service/internal/infra/weatherapi"
	"weather-service/internal/observability/slo"
	pkgconfig "weather-service/internal/pkg/config"
	"weather-service/internal/resilience/circuitbreaker"
)

// FileEnvKey names the environment variable pointing at the optional YAML file.
const FileEnvKey = "MONITOR_CONFIG_FILE"

// HTTPConfig configures the monitoring HTTP server.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// TelemetryConfig configures the periodic collection jobs.
type TelemetryConfig struct {
	CollectInterval time.Duration `yaml:"collect_interval"`
	HealthInterval  time.Duration `yaml:"health_interval"`
	StopTimeout     time.Duration `yaml:"stop_timeout"`

	// AvailabilityTarget is the objective circuit breaker traffic is evaluated against
	AvailabilityTarget float64 `yaml:"availability_target"`
}

// HealthConfig configures the health orchestrator.
type HealthConfig struct {
	// Ceiling bounds a full CheckAll run regardless of per-probe timeouts
	Ceiling time.Duration `yaml:"ceiling"`
}

// TracingConfig configures span sampling.
type TracingConfig struct {
	SampleRatio float64 `yaml:"sample_ratio"`
}

// RedisConfig configures the Redis connection behind the named caches.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// Config is the complete monitor configuration.
type Config struct {
	HTTP       HTTPConfig              `yaml:"http"`
	Telemetry  TelemetryConfig         `yaml:"telemetry"`
	Health     HealthConfig            `yaml:"health"`
	Tracing    TracingConfig           `yaml:"tracing"`
	WeatherAPI weatherapi.Config       `yaml:"weather_api"`
	Breakers   []circuitbreaker.Config `yaml:"circuit_breakers"`
	Redis      RedisConfig             `yaml:"redis"`
	Caches     []string                `yaml:"caches"`

	// FallbackApplied is set when any environment value was replaced by its default.
	FallbackApplied bool `yaml:"-"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8080},
		Telemetry: TelemetryConfig{
			CollectInterval:    15 * time.Second,
			HealthInterval:     30 * time.Second,
			StopTimeout:        10 * time.Second,
			AvailabilityTarget: slo.DefaultAvailabilityTarget,
		},
		Health:     HealthConfig{Ceiling: 10 * time.Second},
		Tracing:    TracingConfig{SampleRatio: 1},
		WeatherAPI: weatherapi.DefaultConfig(),
		Breakers:   []circuitbreaker.Config{circuitbreaker.WeatherAPIConfig()},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "weather:",
			TTL:    10 * time.Minute,
		},
		Caches: append([]string(nil), cache.DefaultNames...),
	}
}

// Breaker returns the breaker configuration called name.
func (c *Config) Breaker(name string) (circuitbreaker.Config, bool) {
	for _, b := range c.Breakers {
		if b.Name == name {
			return b, true
		}
	}
	return circuitbreaker.Config{}, false
}

// UsesMockWeather reports whether no upstream API key is configured, in which case
// the in-memory mock client serves weather data.
func (c *Config) UsesMockWeather() bool {
	return c.WeatherAPI.APIKey == ""
}

// CacheNamesOrDefault returns the configured cache names, or the defaults when none are set.
func (c *Config) CacheNamesOrDefault() []string {
	if len(c.Caches) == 0 {
		return cache.DefaultNames
	}
	return c.Caches
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if err := pkgconfig.ValidatePort(c.HTTP.Port); err != nil {
		errs = append(errs, fmt.Errorf("http.port: %w", err))
	}
	if err := pkgconfig.ValidateInterval(c.Telemetry.CollectInterval); err != nil {
		errs = append(errs, fmt.Errorf("telemetry.collect_interval: %w", err))
	}
	if err := pkgconfig.ValidateInterval(c.Telemetry.HealthInterval); err != nil {
		errs = append(errs, fmt.Errorf("telemetry.health_interval: %w", err))
	}
	if err := pkgconfig.ValidatePositiveDuration(c.Telemetry.StopTimeout); err != nil {
		errs = append(errs, fmt.Errorf("telemetry.stop_timeout: %w", err))
	}
	if err := slo.ValidateTarget(c.Telemetry.AvailabilityTarget); err != nil {
		errs = append(errs, fmt.Errorf("telemetry.availability_target: %w", err))
	}
	if err := pkgconfig.ValidatePositiveDuration(c.Health.Ceiling); err != nil {
		errs = append(errs, fmt.Errorf("health.ceiling: %w", err))
	}
	if err := validateRatio(c.Tracing.SampleRatio); err != nil {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio: %w", err))
	}
	if err := c.WeatherAPI.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("weather_api: %w", err))
	}

	seen := make(map[string]bool, len(c.Breakers))
	for _, b := range c.Breakers {
		if err := b.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("circuit_breakers: %w", err))
		}
		if seen[b.Name] {
			errs = append(errs, fmt.Errorf("circuit_breakers: duplicate name %q", b.Name))
		}
		seen[b.Name] = true
	}
	if !seen[circuitbreaker.WeatherAPIConfig().Name] {
		errs = append(errs, fmt.Errorf("circuit_breakers: %q breaker is required", circuitbreaker.WeatherAPIConfig().Name))
	}

	if err := pkgconfig.ValidateHostPort(c.Redis.Addr); err != nil {
		errs = append(errs, fmt.Errorf("redis.addr: %w", err))
	}
	if err := pkgconfig.ValidatePositiveDuration(c.Redis.TTL); err != nil {
		errs = append(errs, fmt.Errorf("redis.ttl: %w", err))
	}
	if len(c.Caches) == 0 {
		errs = append(errs, errors.New("caches: at least one cache is required"))
	}
	return errors.Join(errs...)
}

func validateRatio(v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("ratio must be within [0, 1], got %v", v)
	}
	return nil
}

// LoadFile overlays the YAML file at path onto cfg. Fields missing from the
// file keep their current values.
func LoadFile(path string, cfg *Config) error {
	// #nosec G304 -- path comes from the operator environment
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Load builds the configuration: defaults, then the file named by MONITOR_CONFIG_FILE,
// then environment variables. Invalid environment values fall back to the value
// they would have replaced. A missing or malformed file, or an invalid result, is an error.
// metrics may be nil.
func Load(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := DefaultConfig()

	if path := os.Getenv(FileEnvKey); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return nil, err
		}
		logger.Info("configuration file loaded", slog.String("path", path))
	}

	LoadConfigFromEnv(&cfg, logger, metrics)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
