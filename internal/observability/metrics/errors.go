package metrics

import (
	"errors"
	"fmt"
)

// ErrInvalidMetric is wrapped by every usage error returned from the Registry.
var ErrInvalidMetric = errors.New("invalid metric")

var (
	// ErrNegativeIncrement is returned when a counter is asked to decrease.
	ErrNegativeIncrement = fmt.Errorf("%w: counter increment must not be negative", ErrInvalidMetric)

	// ErrNonFiniteValue is returned for NaN or infinite counter increments.
	ErrNonFiniteValue = fmt.Errorf("%w: value must be finite", ErrInvalidMetric)

	// ErrOddLabels is returned when labels are not given as key/value pairs.
	ErrOddLabels = fmt.Errorf("%w: labels must be key/value pairs", ErrInvalidMetric)

	// ErrEmptyName is returned when the metric name is empty.
	ErrEmptyName = fmt.Errorf("%w: metric name must not be empty", ErrInvalidMetric)

	// ErrInvalidName is returned when the metric name is not a valid exposition name.
	ErrInvalidName = fmt.Errorf("%w: metric name must match [a-zA-Z_:][a-zA-Z0-9_:]*", ErrInvalidMetric)

	// ErrEmptyLabelKey is returned when a label key is empty.
	ErrEmptyLabelKey = fmt.Errorf("%w: label key must not be empty", ErrInvalidMetric)

	// ErrInvalidLabelKey is returned when a label key is not a valid exposition label name.
	ErrInvalidLabelKey = fmt.Errorf("%w: label key must match [a-zA-Z_][a-zA-Z0-9_]*", ErrInvalidMetric)

	// ErrDuplicateLabelKey is returned when a label key appears more than once.
	ErrDuplicateLabelKey = fmt.Errorf("%w: label key must not repeat", ErrInvalidMetric)

	// ErrKindMismatch is returned when a name is reused for a different metric kind.
	ErrKindMismatch = fmt.Errorf("%w: metric name already used by another kind", ErrInvalidMetric)
)
