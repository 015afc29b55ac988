package config

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConfigMetrics(reg, "monitor")

	m.RecordLoad()
	m.RecordFallback("http_port")
	m.RecordFallback("http_port")
	m.SetFallbackActive(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("http_port")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbackActive))
	assert.Greater(t, testutil.ToFloat64(m.LoadTimestamp), 0.0)

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP monitor_config_fallback_active 1 if any monitor configuration value fell back to its default
# TYPE monitor_config_fallback_active gauge
monitor_config_fallback_active 1
`), "monitor_config_fallback_active")
	require.NoError(t, err)

	m.SetFallbackActive(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FallbackActive))
}

func TestConfigMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewConfigMetrics(reg, "monitor")
	assert.Panics(t, func() { NewConfigMetrics(reg, "monitor") })
}

func TestConfigMetrics_NilRegisterer(t *testing.T) {
	assert.NotPanics(t, func() {
		m := NewConfigMetrics(nil, "monitor")
		m.RecordFallback("x")
		m.RecordFallback("x")
	})
}
