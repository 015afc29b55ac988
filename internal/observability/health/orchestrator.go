package health

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"weather-service/internal/observability/tracing"
)

// DefaultCeiling bounds a whole CheckAll run.
const DefaultCeiling = 10 * time.Second

// TimeoutMessage is the message of the DOWN status produced when a probe overruns its timeout.
const TimeoutMessage = "timeout"

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCeiling sets the overall bound of one CheckAll run.
func WithCeiling(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.ceiling = d
		}
	}
}

// WithClock replaces time.Now for timestamps and response times.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// Orchestrator runs registered probes concurrently and keeps their last results.
type Orchestrator struct {
	logger  *slog.Logger
	ceiling time.Duration
	now     func() time.Time

	mu        sync.RWMutex
	probes    map[string]Probe
	last      map[string]Status
	lastAgg   AggregatedStatus
	hasLatest bool
}

// NewOrchestrator creates an orchestrator with no probes.
func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:  slog.Default(),
		ceiling: DefaultCeiling,
		now:     time.Now,
		probes:  make(map[string]Probe),
		last:    make(map[string]Status),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Register adds p, replacing any probe registered under the same name.
func (o *Orchestrator) Register(p Probe) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.probes[p.Name()] = p
	o.logger.Info("health probe registered",
		slog.String("probe", p.Name()),
		slog.Duration("timeout", ProbeTimeout(p)))
}

// Unregister removes the probe called name and forgets its last status.
func (o *Orchestrator) Unregister(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.probes, name)
	delete(o.last, name)
	o.logger.Info("health probe unregistered", slog.String("probe", name))
}

// Names returns the registered probe names in sorted order.
func (o *Orchestrator) Names() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := make([]string, 0, len(o.probes))
	for name := range o.probes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LastStatus returns the most recent result of the probe called name.
// It reports false if the probe never ran or was unregistered.
func (o *Orchestrator) LastStatus(name string) (Status, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	st, ok := o.last[name]
	return st, ok
}

// LastAggregate returns the result of the most recent CheckAll run.
func (o *Orchestrator) LastAggregate() (AggregatedStatus, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastAgg, o.hasLatest
}

// CheckAll runs every registered probe concurrently, each under its own timeout,
// and returns the aggregated result. The whole run never outlasts the ceiling.
//
// A probe that overruns is reported DOWN with TimeoutMessage. Its goroutine keeps
// running until Check returns, since Go cannot preempt it; the late result is dropped.
func (o *Orchestrator) CheckAll(ctx context.Context) AggregatedStatus {
	o.mu.RLock()
	probes := make([]Probe, 0, len(o.probes))
	for _, p := range o.probes {
		probes = append(probes, p)
	}
	o.mu.RUnlock()

	runID := uuid.NewString()
	logger := o.logger.With(slog.String("run_id", runID))

	ctx, cancel := context.WithTimeout(ctx, o.ceiling)
	defer cancel()

	statuses := make([]Status, len(probes))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range probes {
		i, p := i, p
		g.Go(func() error {
			statuses[i] = o.runProbe(gctx, runID, p)
			return nil
		})
	}
	_ = g.Wait()

	results := make(map[string]Status, len(probes))
	for i, p := range probes {
		results[p.Name()] = statuses[i]
	}

	agg := Aggregate(results, o.now())
	agg.RunID = runID

	o.mu.Lock()
	for i, p := range probes {
		// A probe unregistered during the run must not reappear in the cache.
		if _, ok := o.probes[p.Name()]; ok {
			o.last[p.Name()] = statuses[i]
		}
	}
	o.lastAgg = agg
	o.hasLatest = true
	o.mu.Unlock()

	if agg.Healthy {
		logger.Debug("health check completed",
			slog.String("status", string(agg.Status)),
			slog.Int("checks", len(results)),
			slog.Duration("total_response_time", agg.TotalResponseTime))
	} else {
		logger.Warn("health check failed",
			slog.String("status", string(agg.Status)),
			slog.Any("failed_checks", agg.FailedChecks()))
	}

	return agg
}

// runProbe executes one probe under its timeout. It always returns a status.
func (o *Orchestrator) runProbe(ctx context.Context, runID string, p Probe) Status {
	name := p.Name()
	timeout := ProbeTimeout(p)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := tracing.StartSpan(ctx, "health.probe",
		attribute.String("health.probe", name),
		attribute.String("health.run_id", runID),
		attribute.Int64("health.timeout_ms", timeout.Milliseconds()))
	defer span.End()

	start := o.now()
	done := make(chan Status, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Down(name, fmt.Sprintf("probe panicked: %v", r))
			}
		}()
		done <- p.Check(ctx)
	}()

	var st Status
	select {
	case st = <-done:
	case <-ctx.Done():
		st = Down(name, TimeoutMessage).WithDetail("timeout_ms", timeout.Milliseconds())
		o.logger.Warn("health probe timed out",
			slog.String("run_id", runID),
			slog.String("probe", name),
			slog.Duration("timeout", timeout))
	}

	elapsed := o.now().Sub(start)
	if st.Service == "" {
		st.Service = name
	}
	if st.ResponseTime == 0 {
		st = st.WithResponseTime(elapsed)
	}
	if st.Timestamp.IsZero() {
		st = st.WithTimestamp(o.now())
	}

	span.SetAttributes(
		attribute.String("health.status", string(st.State)),
		attribute.Bool("health.healthy", st.Healthy))
	if !st.Healthy {
		span.SetStatus(codes.Error, st.Message)
	}
	return st
}
