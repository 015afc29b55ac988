package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"weather-service/internal/observability/health"
	"weather-service/internal/observability/metrics"
	"weather-service/internal/observability/slo"
	"weather-service/internal/resilience/circuitbreaker"
)

// Defaults match the collection cadence of the monitoring dashboard.
const (
	DefaultCollectInterval = 15 * time.Second
	DefaultHealthInterval  = 30 * time.Second
	DefaultStopTimeout     = 10 * time.Second

	cachePingTimeout = 2 * time.Second
)

// Task names used in logs and in the collection error counter.
const (
	TaskCollect = "collect"
	TaskHealth  = "health"
)

// ErrStopTimeout is returned by Stop when in-flight jobs did not finish within the drain bound.
var ErrStopTimeout = errors.New("telemetry: stop timed out waiting for running jobs")

// BreakerSource lists the circuit breakers to export.
type BreakerSource interface {
	All() []*circuitbreaker.CircuitBreaker
}

// CacheSource lists the caches to export and checks their accessibility.
type CacheSource interface {
	Names() []string
	Ping(ctx context.Context, name string) error
}

// HealthSource runs every registered health probe.
type HealthSource interface {
	CheckAll(ctx context.Context) health.AggregatedStatus
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCollectInterval sets how often breaker, cache and process gauges are collected.
func WithCollectInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.collectInterval = d
		}
	}
}

// WithHealthInterval sets how often the health orchestrator runs.
func WithHealthInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.healthInterval = d
		}
	}
}

// WithStopTimeout bounds how long Stop waits for running jobs.
func WithStopTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.stopTimeout = d
		}
	}
}

// WithClock overrides the clock used for the uptime gauge.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAvailabilityTarget sets the objective breakers are evaluated against.
// Targets outside (0, 1] are ignored.
func WithAvailabilityTarget(target float64) Option {
	return func(s *Scheduler) {
		if slo.ValidateTarget(target) == nil {
			s.availabilityTarget = target
		}
	}
}

// Scheduler owns the periodic telemetry jobs.
type Scheduler struct {
	registry *metrics.Registry
	health   HealthSource
	breakers BreakerSource
	caches   CacheSource

	logger             *slog.Logger
	collectInterval    time.Duration
	healthInterval     time.Duration
	stopTimeout        time.Duration
	availabilityTarget float64
	now                func() time.Time
	started            time.Time

	collectJob cron.Job
	healthJob  cron.Job

	mu       sync.Mutex
	cron     *cron.Cron
	jobCtx   context.Context
	cancel   context.CancelFunc
	inflight *sync.WaitGroup
}

// NewScheduler creates a stopped scheduler. healthSrc, breakers and caches may be nil,
// in which case the matching gauges are not written.
func NewScheduler(reg *metrics.Registry, healthSrc HealthSource, breakers BreakerSource, caches CacheSource, opts ...Option) *Scheduler {
	s := &Scheduler{
		registry:           reg,
		health:             healthSrc,
		breakers:           breakers,
		caches:             caches,
		logger:             slog.Default(),
		collectInterval:    DefaultCollectInterval,
		healthInterval:     DefaultHealthInterval,
		stopTimeout:        DefaultStopTimeout,
		availabilityTarget: slo.DefaultAvailabilityTarget,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.now()

	// One chain per job so SkipIfStillRunning serializes each job independently,
	// including the immediate run triggered by Start.
	cl := cronLogger{logger: s.logger}
	s.collectJob = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).
		Then(cron.FuncJob(func() { s.runTask(TaskCollect, s.collect) }))
	s.healthJob = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).
		Then(cron.FuncJob(func() { s.runTask(TaskHealth, s.collectHealth) }))

	return s
}

// Start schedules both jobs and triggers one immediate run of each.
// Calling Start on a running scheduler has no effect.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return
	}

	s.jobCtx, s.cancel = context.WithCancel(context.Background())
	s.inflight = &sync.WaitGroup{}
	s.cron = cron.New(cron.WithLogger(cronLogger{logger: s.logger}))
	s.cron.Schedule(cron.Every(s.collectInterval), s.collectJob)
	s.cron.Schedule(cron.Every(s.healthInterval), s.healthJob)
	s.cron.Start()

	inflight := s.inflight
	for _, job := range []cron.Job{s.collectJob, s.healthJob} {
		inflight.Add(1)
		go func(job cron.Job) {
			defer inflight.Done()
			job.Run()
		}(job)
	}

	s.logger.Info("telemetry scheduler started",
		slog.Duration("collect_interval", s.collectInterval),
		slog.Duration("health_interval", s.healthInterval))
}

// Stop halts scheduling and waits for running jobs. If they do not finish within the
// drain bound, or ctx ends first, their context is cancelled and ErrStopTimeout is returned.
// Stopping a stopped scheduler returns nil.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel, inflight := s.cron, s.cancel, s.inflight
	s.cron, s.cancel, s.inflight = nil, nil, nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}

	cronDone := c.Stop()
	drained := make(chan struct{})
	go func() {
		<-cronDone.Done()
		inflight.Wait()
		close(drained)
	}()

	timer := time.NewTimer(s.stopTimeout)
	defer timer.Stop()

	select {
	case <-drained:
		cancel()
		s.logger.Info("telemetry scheduler stopped")
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}

	cancel()
	s.logger.Warn("telemetry scheduler stop timed out, running jobs cancelled",
		slog.Duration("stop_timeout", s.stopTimeout))
	return ErrStopTimeout
}

// Running reports whether the scheduler has been started and not stopped.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// Metrics runs one collect pass synchronously and renders the registry.
func (s *Scheduler) Metrics(ctx context.Context) string {
	s.runTask(TaskCollect, func(context.Context) error { return s.collect(ctx) })
	return s.registry.Render()
}

// CollectNow runs both jobs synchronously with ctx.
func (s *Scheduler) CollectNow(ctx context.Context) {
	s.runTask(TaskCollect, func(context.Context) error { return s.collect(ctx) })
	s.runTask(TaskHealth, func(context.Context) error { return s.collectHealth(ctx) })
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.jobCtx == nil {
		return context.Background()
	}
	return s.jobCtx
}

// runTask executes one job pass. Errors and panics are logged and counted; they never stop the job.
func (s *Scheduler) runTask(task string, fn func(ctx context.Context) error) {
	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn(s.context())
	}()

	if err != nil {
		_ = s.registry.Inc("weather_telemetry_collection_errors_total", "task", task)
		s.logger.Error("telemetry collection failed",
			slog.String("task", task),
			slog.Any("error", err))
		if task == TaskHealth {
			_ = s.registry.SetGauge("weather_health_status", 0)
		}
		return
	}

	s.logger.Debug("telemetry collection completed",
		slog.String("task", task),
		slog.Duration("duration", time.Since(start)))
}

// collect writes breaker, cache and process gauges. Every source is attempted;
// the returned error joins all failures.
func (s *Scheduler) collect(ctx context.Context) error {
	return errors.Join(
		s.collectBreakers(),
		s.collectCaches(ctx),
		s.collectProcess(),
	)
}

func (s *Scheduler) collectBreakers() error {
	if s.breakers == nil {
		return nil
	}

	var errs []error
	for _, cb := range s.breakers.All() {
		stats := cb.Stats()
		name := stats.Name
		errs = append(errs,
			s.registry.SetGauge("weather_circuit_breaker_state", stats.State.Numeric(), "name", name),
			s.registry.SetGauge("weather_circuit_breaker_failure_count", float64(stats.FailureCount), "name", name),
			s.registry.SetGauge("weather_circuit_breaker_success_count", float64(stats.SuccessCount), "name", name),
			s.registry.SetGauge("weather_circuit_breaker_failure_rate", stats.FailureRate, "name", name),
			s.registry.SetGauge("weather_circuit_breaker_total_requests", float64(stats.TotalRequests), "name", name),
		)

		res := slo.Evaluate(stats.TotalRequests, stats.TotalFailures, s.availabilityTarget)
		errs = append(errs,
			s.registry.SetGauge("weather_slo_availability_ratio", res.Availability, "name", name),
			s.registry.SetGauge("weather_slo_error_budget_remaining", res.ErrorBudgetRemaining, "name", name),
			s.registry.SetGauge("weather_slo_met", boolGauge(res.Met), "name", name),
		)
	}
	return errors.Join(errs...)
}

func (s *Scheduler) collectCaches(ctx context.Context) error {
	if s.caches == nil {
		return nil
	}

	names := s.caches.Names()
	accessible := 0
	for _, name := range names {
		pingCtx, cancel := context.WithTimeout(ctx, cachePingTimeout)
		err := s.caches.Ping(pingCtx, name)
		cancel()
		if err != nil {
			s.logger.Debug("cache not accessible",
				slog.String("cache", name),
				slog.Any("error", err))
			continue
		}
		accessible++
	}

	return errors.Join(
		s.registry.SetGauge("weather_cache_count", float64(len(names))),
		s.registry.SetGauge("weather_cache_accessible_count", float64(accessible)),
	)
}

func (s *Scheduler) collectProcess() error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return errors.Join(
		s.registry.SetGauge("process_memory_heap_bytes", float64(m.HeapAlloc)),
		s.registry.SetGauge("process_memory_sys_bytes", float64(m.Sys)),
		s.registry.SetGauge("process_goroutines", float64(runtime.NumGoroutine())),
		s.registry.SetGauge("weather_app_uptime_seconds", s.now().Sub(s.started).Seconds()),
	)
}

func (s *Scheduler) collectHealth(ctx context.Context) error {
	if s.health == nil {
		return nil
	}

	agg := s.health.CheckAll(ctx)
	errs := []error{
		s.registry.SetGauge("weather_health_status", boolGauge(agg.Healthy)),
		s.registry.SetGauge("weather_health_response_time_ms", float64(agg.TotalResponseTime.Milliseconds())),
	}
	for name, st := range agg.Results {
		errs = append(errs,
			s.registry.SetGauge("weather_health_check_status", boolGauge(st.Healthy), "check", name),
			s.registry.SetGauge("weather_health_check_response_time_ms", float64(st.ResponseTimeMillis()), "check", name),
		)
	}
	return errors.Join(errs...)
}

func boolGauge(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}
