// Package slo evaluates availability objectives of protected dependencies
// from their lifetime request counters.
package slo

import "fmt"

// DefaultAvailabilityTarget is the availability objective of the upstream weather API
// (99.5%, about 3.6 hours of failed calls per month).
const DefaultAvailabilityTarget = 0.995

// Result is the evaluation of one objective.
type Result struct {
	// Availability is the share of successful requests, 1 when there were none.
	Availability float64

	// ErrorBudgetRemaining is the unspent share of the allowed failures, clamped to [0, 1].
	ErrorBudgetRemaining float64

	// Met reports whether Availability reaches the target.
	Met bool
}

// ValidateTarget checks that target lies in (0, 1].
func ValidateTarget(target float64) error {
	if target <= 0 || target > 1 {
		return fmt.Errorf("availability target must be within (0, 1], got %v", target)
	}
	return nil
}

// Evaluate measures total requests with the given failures against target.
func Evaluate(total, failures uint64, target float64) Result {
	if total == 0 {
		return Result{Availability: 1, ErrorBudgetRemaining: 1, Met: true}
	}
	if failures > total {
		failures = total
	}

	availability := 1 - float64(failures)/float64(total)
	allowed := (1 - target) * float64(total)

	var remaining float64
	switch {
	case failures == 0:
		remaining = 1
	case allowed > 0:
		remaining = 1 - float64(failures)/allowed
	}
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Availability:         availability,
		ErrorBudgetRemaining: remaining,
		Met:                  availability >= target,
	}
}
