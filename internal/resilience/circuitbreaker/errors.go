package circuitbreaker

import (
	"errors"
	"fmt"
)

// ErrCircuitOpen is matched by every rejection caused by an open circuit.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// OpenError is returned when a call is rejected without invoking the protected operation.
type OpenError struct {
	Name  string
	State State
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is %s: request rejected", e.Name, e.State)
}

// Unwrap makes errors.Is(err, ErrCircuitOpen) succeed.
func (e *OpenError) Unwrap() error {
	return ErrCircuitOpen
}

// IsOpenError reports whether err is a rejection by an open circuit.
func IsOpenError(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}
