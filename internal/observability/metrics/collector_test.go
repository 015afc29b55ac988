package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_ExportsRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.IncrementCounter("weather_requests_total", 4, "endpoint", "current"))
	require.NoError(t, r.SetGauge("weather_cache_count", 3))

	promReg := prometheus.NewRegistry()
	require.NoError(t, promReg.Register(NewCollector(r)))

	expected := `
# HELP weather_cache_count Gauge weather_cache_count from the weather-service registry.
# TYPE weather_cache_count gauge
weather_cache_count 3
# HELP weather_requests_total Counter weather_requests_total from the weather-service registry.
# TYPE weather_requests_total counter
weather_requests_total{endpoint="current"} 4
`
	err := testutil.GatherAndCompare(promReg, strings.NewReader(expected),
		"weather_cache_count", "weather_requests_total")
	assert.NoError(t, err)
}

func TestCollector_Histogram(t *testing.T) {
	r := NewRegistry()
	for _, v := range []float64{10, 20, 30} {
		require.NoError(t, r.RecordHistogram("probe_ms", v, "check", "cache"))
	}

	promReg := prometheus.NewRegistry()
	require.NoError(t, promReg.Register(NewCollector(r)))

	families, err := promReg.Gather()
	require.NoError(t, err)

	byName := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetSummary() != nil:
				byName[mf.GetName()+"_count"] = float64(m.GetSummary().GetSampleCount())
				byName[mf.GetName()+"_sum"] = m.GetSummary().GetSampleSum()
			case m.GetGauge() != nil:
				byName[mf.GetName()] = m.GetGauge().GetValue()
			}
		}
	}

	assert.Equal(t, 3.0, byName["probe_ms_count"])
	assert.Equal(t, 60.0, byName["probe_ms_sum"])
	assert.Equal(t, 10.0, byName["probe_ms_min"])
	assert.Equal(t, 30.0, byName["probe_ms_max"])
}

func TestCollector_EmptyRegistry(t *testing.T) {
	promReg := prometheus.NewRegistry()
	require.NoError(t, promReg.Register(NewCollector(NewRegistry())))

	families, err := promReg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}
