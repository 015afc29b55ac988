// Command monitor runs the weather service resilience and observability core:
// circuit breakers around the upstream weather API, health probes, telemetry
// collection and the monitoring HTTP surface.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"weather-service/internal/config"
	hhttp "weather-service/internal/handler/http"
	"weather-service/internal/infra/cache"
	"weather-service/internal/infra/weatherapi"
	"weather-service/internal/observability/health"
	"weather-service/internal/observability/health/probes"
	"weather-service/internal/observability/logging"
	"weather-service/internal/observability/metrics"
	"weather-service/internal/observability/telemetry"
	"weather-service/internal/observability/tracing"
	pkgconfig "weather-service/internal/pkg/config"
	"weather-service/internal/resilience/circuitbreaker"
	"weather-service/internal/weather"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("monitor exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	startedAt := time.Now()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Load configuration (fail-open for environment values)
	cfg, err := config.Load(logger, pkgconfig.NewConfigMetrics(promReg, "monitor"))
	if err != nil {
		return err
	}
	logger.Info("monitor configuration loaded",
		slog.Int("http_port", cfg.HTTP.Port),
		slog.Duration("collect_interval", cfg.Telemetry.CollectInterval),
		slog.Duration("health_interval", cfg.Telemetry.HealthInterval),
		slog.Duration("health_ceiling", cfg.Health.Ceiling),
		slog.Bool("fallback_applied", cfg.FallbackApplied))

	shutdownTracing := tracing.Setup(version, cfg.Tracing.SampleRatio)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("failed to shut down tracer provider", slog.Any("error", err))
		}
	}()

	reg := metrics.NewRegistry()
	promReg.MustRegister(metrics.NewCollector(reg))

	breakers, err := setupBreakers(cfg, reg, logger)
	if err != nil {
		return err
	}

	caches, err := setupCaches(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := caches.Close(); err != nil {
			logger.Error("failed to close redis client", slog.Any("error", err))
		}
	}()

	upstream, protected, err := setupWeatherClient(cfg, breakers, reg, logger)
	if err != nil {
		return err
	}
	cached := weatherapi.NewCachedClient(protected, caches, logging.WithComponent(logger, "weather-cache"))

	orchestrator := health.NewOrchestrator(
		health.WithLogger(logging.WithComponent(logger, "health")),
		health.WithCeiling(cfg.Health.Ceiling),
	)
	// Health checks call the upstream directly so they can see it recover while the circuit is open.
	orchestrator.Register(probes.NewWeatherAPIProbe(upstream, logger))
	orchestrator.Register(probes.NewCacheProbe(caches, logger))
	orchestrator.Register(probes.NewSystemProbe())

	scheduler := telemetry.NewScheduler(reg, orchestrator, breakers, caches,
		telemetry.WithLogger(logging.WithComponent(logger, "telemetry")),
		telemetry.WithCollectInterval(cfg.Telemetry.CollectInterval),
		telemetry.WithHealthInterval(cfg.Telemetry.HealthInterval),
		telemetry.WithStopTimeout(cfg.Telemetry.StopTimeout),
		telemetry.WithAvailabilityTarget(cfg.Telemetry.AvailabilityTarget),
	)
	scheduler.Start()

	var accepting atomic.Bool
	router := hhttp.NewRouter(hhttp.Dependencies{
		Metrics:     scheduler,
		Health:      orchestrator,
		Gatherer:    promReg,
		HTTPMetrics: hhttp.NewHTTPMetrics(promReg),
		Weather:     cached,
		Accepting:   &accepting,
		Logger:      logger,
		Version:     version,
		StartedAt:   startedAt,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	server := hhttp.NewServer(addr, router, &accepting, logger)
	logger.Info("monitor started", slog.String("addr", addr), slog.String("version", version))

	serveErr := server.Start(ctx)
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}
	stop()

	logger.Info("shutting down telemetry scheduler")
	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Telemetry.StopTimeout)
	defer cancel()
	if err := scheduler.Stop(stopCtx); err != nil {
		logger.Warn("telemetry scheduler did not stop cleanly", slog.Any("error", err))
	}

	logger.Info("monitor stopped")
	return serveErr
}

// setupBreakers creates one breaker per configured entry. Transitions are counted
// in weather_circuit_breaker_transitions_total.
func setupBreakers(cfg *config.Config, reg *metrics.Registry, logger *slog.Logger) (*circuitbreaker.Manager, error) {
	manager := circuitbreaker.NewManager()
	onChange := func(name string, from, to circuitbreaker.State) {
		if err := reg.Inc("weather_circuit_breaker_transitions_total",
			"name", name, "from", from.String(), "to", to.String()); err != nil {
			logger.Error("failed to record breaker transition", slog.Any("error", err))
		}
	}

	for _, bc := range cfg.Breakers {
		cb, err := circuitbreaker.New(bc,
			circuitbreaker.WithLogger(logging.WithComponent(logger, "circuitbreaker")),
			circuitbreaker.WithStateChangeHook(onChange))
		if err != nil {
			return nil, fmt.Errorf("create circuit breaker: %w", err)
		}
		if err := manager.Register(cb); err != nil {
			return nil, err
		}
	}
	return manager, nil
}

// setupCaches connects the named caches. Redis is not pinged here: an unreachable
// server shows up as a DOWN cache probe rather than a failed start.
func setupCaches(cfg *config.Config, logger *slog.Logger) (*cache.Registry, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	caches, err := cache.NewRegistry(client, cfg.CacheNamesOrDefault(),
		cache.WithPrefix(cfg.Redis.Prefix),
		cache.WithTTL(cfg.Redis.TTL),
		cache.WithLogger(logging.WithComponent(logger, "cache")))
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("create cache registry: %w", err)
	}
	logger.Info("caches initialized",
		slog.String("redis_addr", cfg.Redis.Addr),
		slog.Any("names", caches.Names()))
	return caches, nil
}

// setupWeatherClient builds the upstream client and the same client wrapped in the
// weather API breaker. Without an API key the in-memory mock serves requests.
func setupWeatherClient(cfg *config.Config, breakers *circuitbreaker.Manager, reg *metrics.Registry, logger *slog.Logger) (weather.Client, *weatherapi.ProtectedClient, error) {
	var upstream weather.Client
	if cfg.UsesMockWeather() {
		logger.Warn("WEATHER_API_KEY not set, using mock weather client")
		upstream = weather.NewMockClient()
	} else {
		client, err := weatherapi.NewHTTPClient(cfg.WeatherAPI,
			weatherapi.WithLogger(logging.WithComponent(logger, "weatherapi")))
		if err != nil {
			return nil, nil, fmt.Errorf("create weather api client: %w", err)
		}
		upstream = client
		logger.Info("weather api client initialized",
			slog.String("base_url", cfg.WeatherAPI.BaseURL),
			slog.Float64("rate_limit", cfg.WeatherAPI.RateLimit))
	}

	cb, ok := breakers.Get(circuitbreaker.WeatherAPIConfig().Name)
	if !ok {
		return nil, nil, fmt.Errorf("circuit breaker %q is not configured", circuitbreaker.WeatherAPIConfig().Name)
	}
	return upstream, weatherapi.NewProtectedClient(upstream, cb, reg), nil
}
