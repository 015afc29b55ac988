package weather

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// MockClient is an in-memory Client used when no upstream API key is configured
// and in tests. Responses are deterministic.
type MockClient struct {
	mu        sync.RWMutex
	responses map[string]Conditions
	err       error
	latency   time.Duration
	calls     int
}

// NewMockClient returns a mock preloaded with a few reference cities.
func NewMockClient() *MockClient {
	m := &MockClient{responses: make(map[string]Conditions)}
	m.Reset()
	return m
}

// Reset restores the preloaded responses and clears simulated failures.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = nil
	m.latency = 0
	m.responses = map[string]Conditions{
		"Milan_IT":    {Temperature: 22.5, Condition: "Partly Cloudy", Humidity: 65, WindSpeed: 10.5},
		"Rome_IT":     {Temperature: 25.0, Condition: "Sunny", Humidity: 55, WindSpeed: 8.0},
		"London_GB":   {Temperature: 15.0, Condition: "Cloudy", Humidity: 80, WindSpeed: 15.0},
		"New York_US": {Temperature: 20.0, Condition: "Clear", Humidity: 60, WindSpeed: 12.0},
	}
}

// SetResponse fixes the conditions returned for loc.
func (m *MockClient) SetResponse(loc Location, c Conditions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[loc.Key()] = c
}

// SetError makes every call fail with err until cleared with nil.
func (m *MockClient) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetLatency delays every call by d, honouring context cancellation.
func (m *MockClient) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

// Calls returns how many calls reached the mock.
func (m *MockClient) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// CurrentConditions implements Client.
func (m *MockClient) CurrentConditions(ctx context.Context, loc Location) (Conditions, error) {
	m.mu.Lock()
	m.calls++
	err, latency := m.err, m.latency
	c, ok := m.responses[loc.Key()]
	m.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return Conditions{}, ctx.Err()
		}
	}
	if err != nil {
		return Conditions{}, err
	}
	if !ok {
		c = synthesize(loc)
	}
	c.Location = loc
	c.ObservedAt = time.Now().UTC()
	return c, nil
}

// Forecast implements Client. Each day drifts slightly from the current conditions.
func (m *MockClient) Forecast(ctx context.Context, loc Location, days int) ([]Conditions, error) {
	if days < 1 {
		return nil, fmt.Errorf("forecast days must be >= 1, got %d", days)
	}
	current, err := m.CurrentConditions(ctx, loc)
	if err != nil {
		return nil, err
	}

	forecast := make([]Conditions, days)
	for i := range forecast {
		day := current
		day.Temperature = current.Temperature + float64(i%3) - 1
		day.ObservedAt = current.ObservedAt.AddDate(0, 0, i)
		forecast[i] = day
	}
	return forecast, nil
}

// synthesize derives plausible conditions from latitude alone.
func synthesize(loc Location) Conditions {
	lat := math.Abs(loc.Latitude)
	c := Conditions{Condition: "Clear", Humidity: 60, WindSpeed: 10}
	switch {
	case lat < 23.5:
		c.Temperature = 28
	case lat < 66.5:
		c.Temperature = 15
	default:
		c.Temperature = -5
		c.Condition = "Snow"
	}
	return c
}
