package slo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		total      uint64
		failures   uint64
		target     float64
		wantAvail  float64
		wantBudget float64
		wantMet    bool
	}{
		{"no traffic", 0, 0, 0.99, 1, 1, true},
		{"no failures", 100, 0, 0.99, 1, 1, true},
		{"half budget spent", 1000, 5, 0.99, 0.995, 0.5, true},
		{"budget exactly spent", 100, 1, 0.99, 0.99, 0, true},
		{"budget exceeded", 100, 5, 0.99, 0.95, 0, false},
		{"perfect target with failure", 100, 1, 1, 0.99, 0, false},
		{"failures capped at total", 10, 20, 0.9, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.total, tt.failures, tt.target)
			assert.InDelta(t, tt.wantAvail, got.Availability, 1e-9)
			assert.InDelta(t, tt.wantBudget, got.ErrorBudgetRemaining, 1e-9)
			assert.Equal(t, tt.wantMet, got.Met)
		})
	}
}

func TestValidateTarget(t *testing.T) {
	assert.NoError(t, ValidateTarget(DefaultAvailabilityTarget))
	assert.NoError(t, ValidateTarget(1))
	assert.Error(t, ValidateTarget(0))
	assert.Error(t, ValidateTarget(1.01))
}
