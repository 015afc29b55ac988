// Package circuitbreaker provides the circuit breaker guarding calls to the upstream weather API.
// It wraps github.com/sony/gobreaker: a breaker fails fast while its dependency is unhealthy,
// lets one trial call at a time through once the open timeout has elapsed, and closes again
// after enough consecutive successes.
package circuitbreaker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Config holds the configuration for a circuit breaker.
type Config struct {
	// Name is the circuit breaker name for logging and metrics
	Name string `yaml:"name"`

	// FailureThreshold is the number of consecutive failures that opens a closed circuit
	FailureThreshold int `yaml:"failure_threshold"`

	// SuccessThreshold is the number of consecutive half-open successes that closes the circuit
	SuccessThreshold int `yaml:"success_threshold"`

	// OpenTimeout is how long the circuit stays open after the last failure before a trial call
	// is let through. Zero allows the trial on the very next call.
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// DefaultConfig returns a default configuration for circuit breakers.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 3,
		OpenTimeout:      time.Minute,
	}
}

// WeatherAPIConfig returns configuration for the upstream weather API.
func WeatherAPIConfig() Config {
	return DefaultConfig("weather-api")
}

// Validate checks that thresholds are positive and the timeout is not negative.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("circuit breaker name must not be empty")
	}
	if c.FailureThreshold < 1 {
		return fmt.Errorf("circuit breaker %q: failure threshold must be >= 1, got %d", c.Name, c.FailureThreshold)
	}
	if c.SuccessThreshold < 1 {
		return fmt.Errorf("circuit breaker %q: success threshold must be >= 1, got %d", c.Name, c.SuccessThreshold)
	}
	if c.OpenTimeout < 0 {
		return fmt.Errorf("circuit breaker %q: open timeout must not be negative, got %v", c.Name, c.OpenTimeout)
	}
	return nil
}

// Option configures optional circuit breaker behaviour.
type Option func(*CircuitBreaker)

// WithLogger sets the logger used for state transitions and rejections.
func WithLogger(logger *slog.Logger) Option {
	return func(cb *CircuitBreaker) {
		if logger != nil {
			cb.logger = logger
		}
	}
}

// WithStateChangeHook registers a callback invoked after every state transition.
// The callback runs while the breaker lock is held and must not call back into the breaker.
func WithStateChangeHook(fn func(name string, from, to State)) Option {
	return func(cb *CircuitBreaker) {
		cb.onStateChange = fn
	}
}

// CircuitBreaker wraps gobreaker.TwoStepCircuitBreaker with lifetime counters and
// serialized half-open trials. Every call into the gobreaker instance happens under mu,
// so state, windowed counts and lifetime counters are always read consistently.
type CircuitBreaker struct {
	cfg           Config
	logger        *slog.Logger
	onStateChange func(name string, from, to State)

	mu             sync.Mutex
	breaker        *gobreaker.TwoStepCircuitBreaker
	trialInFlight  bool
	lastFailure    time.Time
	totalRequests  uint64
	totalFailures  uint64
	totalSuccesses uint64
}

// New creates a new circuit breaker with the given configuration.
func New(cfg Config, opts ...Option) (*CircuitBreaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cb := &CircuitBreaker{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(cb)
	}
	cb.breaker = gobreaker.NewTwoStepCircuitBreaker(cb.settings())

	cb.logger.Info("circuit breaker initialized",
		slog.String("circuit", cfg.Name),
		slog.Int("failure_threshold", cfg.FailureThreshold),
		slog.Int("success_threshold", cfg.SuccessThreshold),
		slog.Duration("open_timeout", cfg.OpenTimeout))

	return cb, nil
}

// MustNew is like New but panics on an invalid configuration.
func MustNew(cfg Config, opts ...Option) *CircuitBreaker {
	cb, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return cb
}

func (cb *CircuitBreaker) settings() gobreaker.Settings {
	threshold := uint32(cb.cfg.FailureThreshold)

	// gobreaker treats a zero timeout as 60s
	timeout := cb.cfg.OpenTimeout
	if timeout == 0 {
		timeout = time.Nanosecond
	}

	return gobreaker.Settings{
		Name:        cb.cfg.Name,
		MaxRequests: uint32(cb.cfg.SuccessThreshold),
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: cb.stateChanged,
	}
}

// stateChanged runs with the gobreaker lock held.
func (cb *CircuitBreaker) stateChanged(name string, from, to gobreaker.State) {
	f, t := fromGobreaker(from), fromGobreaker(to)

	level := slog.LevelInfo
	if t == StateOpen {
		level = slog.LevelWarn
	}
	cb.logger.Log(context.Background(), level, "circuit breaker state changed",
		slog.String("circuit", name),
		slog.String("from", f.String()),
		slog.String("to", t.String()))

	if cb.onStateChange != nil {
		cb.onStateChange(name, f, t)
	}
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// Execute runs fn through the circuit breaker.
//
// The error returned by fn is passed back unchanged. While the circuit is open, or while
// a half-open trial is already in flight, the call is rejected without invoking fn and an
// *OpenError matching ErrCircuitOpen is returned. A panic inside fn is recorded as a
// failure and re-raised.
func (cb *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	done, trial, err := cb.allow()
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			cb.finish(done, trial, false)
			panic(r)
		}
	}()

	result, err := fn()
	cb.finish(done, trial, err == nil)
	return result, err
}

// Do runs fn through cb and returns its typed result.
func Do[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	result, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	typed, _ := result.(T)
	return typed, nil
}

// allow counts the request and asks gobreaker for admission. It reports whether
// the admitted request is the half-open trial.
func (cb *CircuitBreaker) allow() (func(bool), bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalRequests++

	// State moves an expired open circuit to half-open.
	state := fromGobreaker(cb.breaker.State())
	if state == StateOpen || (state == StateHalfOpen && cb.trialInFlight) {
		return nil, false, cb.reject(state)
	}

	done, err := cb.breaker.Allow()
	if err != nil {
		// ErrOpenState or ErrTooManyRequests
		return nil, false, cb.reject(fromGobreaker(cb.breaker.State()))
	}

	trial := state == StateHalfOpen
	if trial {
		cb.trialInFlight = true
	}
	return done, trial, nil
}

// reject records a rejected call. Callers must hold cb.mu.
func (cb *CircuitBreaker) reject(state State) error {
	cb.totalFailures++
	cb.logger.Debug("circuit breaker rejected request",
		slog.String("circuit", cb.cfg.Name),
		slog.String("state", state.String()))
	return &OpenError{Name: cb.cfg.Name, State: state}
}

// finish reports the outcome to gobreaker, which ignores results from an earlier generation.
func (cb *CircuitBreaker) finish(done func(bool), trial, success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if trial {
		cb.trialInFlight = false
	}
	if success {
		cb.totalSuccesses++
	} else {
		cb.totalFailures++
		cb.lastFailure = time.Now()
	}
	done(success)
}

// State returns the current state. An open circuit whose timeout has elapsed
// reports HALF_OPEN.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return fromGobreaker(cb.breaker.State())
}

// Name returns the name of the circuit breaker.
func (cb *CircuitBreaker) Name() string {
	return cb.cfg.Name
}

// Config returns the configuration the breaker was created with.
func (cb *CircuitBreaker) Config() Config {
	return cb.cfg
}

// IsOpen returns true if the circuit breaker is in the open state.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.State() == StateOpen
}

// Reset replaces the state machine with a fresh closed one. Lifetime counters are kept.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	from := fromGobreaker(cb.breaker.State())
	cb.breaker = gobreaker.NewTwoStepCircuitBreaker(cb.settings())
	cb.trialInFlight = false

	cb.logger.Info("circuit breaker reset",
		slog.String("circuit", cb.cfg.Name),
		slog.String("from", from.String()))
	if from != StateClosed && cb.onStateChange != nil {
		cb.onStateChange(cb.cfg.Name, from, StateClosed)
	}
}

// Stats returns a consistent snapshot of the breaker counters.
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state := fromGobreaker(cb.breaker.State())
	counts := cb.breaker.Counts()

	stats := Stats{
		Name:           cb.cfg.Name,
		State:          state,
		FailureCount:   int(counts.ConsecutiveFailures),
		SuccessCount:   int(counts.ConsecutiveSuccesses),
		TotalRequests:  cb.totalRequests,
		TotalFailures:  cb.totalFailures,
		TotalSuccesses: cb.totalSuccesses,
		LastFailure:    cb.lastFailure,
	}
	if cb.totalRequests > 0 {
		stats.FailureRate = float64(cb.totalFailures) / float64(cb.totalRequests)
	}
	return stats
}
