package probes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-service/internal/infra/cache"
	"weather-service/internal/infra/weatherapi"
	"weather-service/internal/observability/health"
	"weather-service/internal/resilience/circuitbreaker"
	"weather-service/internal/weather"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// steppingClock advances by step on every call.
func steppingClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(step)
		return now
	}
}

func TestWeatherAPIProbe_Up(t *testing.T) {
	client := weather.NewMockClient()
	p := NewWeatherAPIProbe(client, quietLogger())

	st := p.Check(context.Background())

	assert.Equal(t, health.StatusUp, st.State)
	assert.True(t, st.Healthy)
	assert.Equal(t, "London, GB", st.Details["test_location"])
	assert.Equal(t, 1, client.Calls())
	assert.Equal(t, 10*time.Second, health.ProbeTimeout(p))
	assert.Equal(t, WeatherAPIName, p.Name())
}

func TestWeatherAPIProbe_DegradedWhenSlow(t *testing.T) {
	p := NewWeatherAPIProbe(weather.NewMockClient(), quietLogger())
	p.now = steppingClock(6 * time.Second)

	st := p.Check(context.Background())

	assert.Equal(t, health.StatusDegraded, st.State)
	assert.True(t, st.Healthy)
	assert.Equal(t, "API responding slowly: 6000ms", st.Message)
	assert.Equal(t, 6*time.Second, st.ResponseTime)
}

func TestWeatherAPIProbe_DownOnError(t *testing.T) {
	client := weather.NewMockClient()
	client.SetError(errors.New("simulated network error"))
	p := NewWeatherAPIProbe(client, quietLogger())

	st := p.Check(context.Background())

	assert.Equal(t, health.StatusDown, st.State)
	assert.False(t, st.Healthy)
	assert.Equal(t, "simulated network error", st.Message)
	assert.Equal(t, "simulated network error", st.Details["error"])
	assert.Equal(t, "*errors.errorString", st.Details["error_type"])
}

func TestWeatherAPIHealth_RecoversWhileCircuitOpen(t *testing.T) {
	upstream := weather.NewMockClient()
	upstream.SetError(errors.New("upstream down"))

	cb := circuitbreaker.MustNew(circuitbreaker.Config{
		Name:             "weather-api",
		FailureThreshold: 2,
		SuccessThreshold: 1,
		OpenTimeout:      time.Hour,
	}, circuitbreaker.WithLogger(quietLogger()))
	protected := weatherapi.NewProtectedClient(upstream, cb, nil)

	orch := health.NewOrchestrator(health.WithLogger(quietLogger()))
	orch.Register(NewWeatherAPIProbe(upstream, quietLogger()))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := protected.CurrentConditions(ctx, weather.ReferenceLocation)
		require.Error(t, err)
	}
	require.Equal(t, circuitbreaker.StateOpen, cb.State())
	before := cb.Stats()

	orch.CheckAll(ctx)
	st, ok := orch.LastStatus(WeatherAPIName)
	require.True(t, ok)
	assert.Equal(t, health.StatusDown, st.State)

	upstream.SetError(nil)
	orch.CheckAll(ctx)
	st, ok = orch.LastStatus(WeatherAPIName)
	require.True(t, ok)
	assert.Equal(t, health.StatusUp, st.State, "health check must reach the upstream while the circuit is open")

	after := cb.Stats()
	assert.Equal(t, circuitbreaker.StateOpen, after.State)
	assert.Equal(t, before.TotalRequests, after.TotalRequests, "health checks must not go through the breaker")
	assert.Equal(t, before.TotalFailures, after.TotalFailures)

	_, err := protected.CurrentConditions(ctx, weather.ReferenceLocation)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
}

type panickyClient struct{ weather.Client }

func (panickyClient) CurrentConditions(context.Context, weather.Location) (weather.Conditions, error) {
	panic("nil pointer in decoder")
}

func TestWeatherAPIProbe_PanicBecomesDown(t *testing.T) {
	p := NewWeatherAPIProbe(panickyClient{}, quietLogger())

	st := p.Check(context.Background())

	assert.Equal(t, health.StatusDown, st.State)
	assert.Contains(t, st.Message, "nil pointer in decoder")
}

func newCacheRegistry(t *testing.T) (*cache.Registry, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	reg, err := cache.NewRegistry(client, cache.DefaultNames, cache.WithLogger(quietLogger()))
	require.NoError(t, err)
	return reg, mr
}

func TestCacheProbe_Up(t *testing.T) {
	reg, _ := newCacheRegistry(t)
	p := NewCacheProbe(reg, quietLogger())

	st := p.Check(context.Background())

	assert.Equal(t, health.StatusUp, st.State)
	assert.Equal(t, 3, st.Details["cache_count"])
	assert.Equal(t, true, st.Details["caches_accessible"])
	assert.Equal(t, reg.Names(), st.Details["cache_names"])
}

func TestCacheProbe_DownWhenUnreachable(t *testing.T) {
	reg, mr := newCacheRegistry(t)
	mr.SetError("READONLY You can't write against a read only replica.")
	p := NewCacheProbe(reg, quietLogger())

	st := p.Check(context.Background())

	assert.Equal(t, health.StatusDown, st.State)
	assert.Equal(t, "One or more caches are not accessible", st.Message)
	assert.Equal(t, false, st.Details["caches_accessible"])
	assert.Equal(t, 0, st.Details["accessible_count"])
}

type fakeCaches struct {
	names  []string
	failed map[string]bool
}

func (f fakeCaches) Names() []string { return f.names }

func (f fakeCaches) Ping(_ context.Context, name string) error {
	if f.failed[name] {
		return errors.New("unreachable")
	}
	return nil
}

func TestCacheProbe_PartialFailure(t *testing.T) {
	p := NewCacheProbe(fakeCaches{
		names:  []string{"a", "b", "c"},
		failed: map[string]bool{"b": true},
	}, quietLogger())

	st := p.Check(context.Background())

	assert.False(t, st.Healthy)
	assert.Equal(t, 2, st.Details["accessible_count"])
	assert.Equal(t, []string{"b"}, st.Details["unreachable"])
}

func newSystemProbe(mem MemoryUsage, disk DiskUsage, goroutines int) *SystemProbe {
	p := NewSystemProbe()
	p.memory = func() (MemoryUsage, error) { return mem, nil }
	p.disk = func() (DiskUsage, error) { return disk, nil }
	p.goroutines = func() int { return goroutines }
	return p
}

func TestSystemProbe_Thresholds(t *testing.T) {
	okMem := MemoryUsage{Used: 50, Limit: 100}
	okDisk := DiskUsage{Path: "/tmp", Total: 100, Free: 50}

	tests := []struct {
		name        string
		mem         MemoryUsage
		disk        DiskUsage
		goroutines  int
		wantState   health.State
		wantMessage string
	}{
		{name: "all fine", mem: okMem, disk: okDisk, goroutines: 10, wantState: health.StatusUp},
		{name: "memory at threshold", mem: MemoryUsage{Used: 90, Limit: 100}, disk: okDisk, goroutines: 10, wantState: health.StatusUp},
		{name: "memory over", mem: MemoryUsage{Used: 91, Limit: 100}, disk: okDisk, goroutines: 10, wantState: health.StatusDown, wantMessage: "High memory usage: 91.0%"},
		{name: "disk over", mem: okMem, disk: DiskUsage{Total: 100, Free: 4}, goroutines: 10, wantState: health.StatusDown, wantMessage: "High disk usage: 96.0%"},
		{name: "goroutines warn", mem: okMem, disk: okDisk, goroutines: 1500, wantState: health.StatusUp, wantMessage: "High goroutine count: 1500"},
		{name: "goroutines down", mem: okMem, disk: okDisk, goroutines: 2500, wantState: health.StatusDown, wantMessage: "High goroutine count: 2500"},
		{
			name:        "several issues",
			mem:         MemoryUsage{Used: 95, Limit: 100},
			disk:        DiskUsage{Total: 100, Free: 1},
			goroutines:  10,
			wantState:   health.StatusDown,
			wantMessage: "High memory usage: 95.0%; High disk usage: 99.0%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newSystemProbe(tt.mem, tt.disk, tt.goroutines).Check(context.Background())
			assert.Equal(t, tt.wantState, st.State)
			assert.Equal(t, tt.wantMessage, st.Message)
			assert.Equal(t, tt.goroutines, st.Details["goroutine_count"])
		})
	}
}

func TestSystemProbe_ReadFailure(t *testing.T) {
	p := NewSystemProbe()
	p.disk = func() (DiskUsage, error) { return DiskUsage{Path: "/nope"}, errors.New("no such file") }

	st := p.Check(context.Background())

	assert.Equal(t, health.StatusDown, st.State)
	assert.Contains(t, st.Message, "System check failed")
	assert.Contains(t, st.Message, "/nope")
}

func TestSystemProbe_RealReaders(t *testing.T) {
	st := NewSystemProbe().Check(context.Background())

	assert.Contains(t, st.Details, "memory_usage_ratio")
	assert.Contains(t, st.Details, "disk_total_bytes")
	assert.Greater(t, st.Details["goroutine_count"], 0)
}

func TestProbes_WithOrchestrator(t *testing.T) {
	reg, _ := newCacheRegistry(t)

	o := health.NewOrchestrator(health.WithLogger(quietLogger()))
	o.Register(NewWeatherAPIProbe(weather.NewMockClient(), quietLogger()))
	o.Register(NewCacheProbe(reg, quietLogger()))
	o.Register(newSystemProbe(MemoryUsage{Used: 1, Limit: 10}, DiskUsage{Total: 10, Free: 9}, 5))

	agg := o.CheckAll(context.Background())

	assert.True(t, agg.Healthy)
	assert.Equal(t, health.StatusUp, agg.Status)
	assert.Len(t, agg.Results, 3)
}
