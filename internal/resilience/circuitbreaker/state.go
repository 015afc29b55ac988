package circuitbreaker

import "time"

// State is the position of a circuit breaker in its state machine.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the open timeout elapses.
	StateOpen
	// StateHalfOpen lets trial calls through one at a time.
	StateHalfOpen
)

// String returns the state name as exposed on the health and metrics surfaces.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Numeric returns the gauge value for the state: 0 closed, 1 open, 0.5 half-open.
func (s State) Numeric() float64 {
	switch s {
	case StateOpen:
		return 1.0
	case StateHalfOpen:
		return 0.5
	default:
		return 0.0
	}
}

// MarshalText encodes the state as its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Stats is a point-in-time snapshot of a circuit breaker.
//
// FailureCount and SuccessCount are the windowed counts driving transitions.
// The Total fields are lifetime counters; rejected calls count as failures.
type Stats struct {
	Name           string    `json:"name"`
	State          State     `json:"state"`
	FailureCount   int       `json:"failure_count"`
	SuccessCount   int       `json:"success_count"`
	TotalRequests  uint64    `json:"total_requests"`
	TotalFailures  uint64    `json:"total_failures"`
	TotalSuccesses uint64    `json:"total_successes"`
	FailureRate    float64   `json:"failure_rate"`
	LastFailure    time.Time `json:"last_failure,omitempty"`
}
