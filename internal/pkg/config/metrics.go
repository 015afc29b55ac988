package config

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConfigMetrics tracks configuration loading of one component:
//
//   - {component}_config_load_timestamp_seconds
//   - {component}_config_fallbacks_total{field}
//   - {component}_config_fallback_active
type ConfigMetrics struct {
	LoadTimestamp  prometheus.Gauge
	FallbacksTotal *prometheus.CounterVec
	FallbackActive prometheus.Gauge
}

// NewConfigMetrics registers the configuration metrics of component with reg.
// A nil reg creates unregistered collectors, which is convenient in tests.
func NewConfigMetrics(reg prometheus.Registerer, component string) *ConfigMetrics {
	factory := promauto.With(reg)
	return &ConfigMetrics{
		LoadTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: component + "_config_load_timestamp_seconds",
			Help: "Unix timestamp of the last " + component + " configuration load",
		}),
		FallbacksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: component + "_config_fallbacks_total",
			Help: "Number of " + component + " configuration values replaced by their default",
		}, []string{"field"}),
		FallbackActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: component + "_config_fallback_active",
			Help: "1 if any " + component + " configuration value fell back to its default",
		}),
	}
}

// RecordLoad stamps the load time.
func (m *ConfigMetrics) RecordLoad() {
	m.LoadTimestamp.SetToCurrentTime()
}

// RecordFallback counts a fallback applied to field.
func (m *ConfigMetrics) RecordFallback(field string) {
	m.FallbacksTotal.WithLabelValues(field).Inc()
}

// SetFallbackActive records whether any field currently uses its fallback.
func (m *ConfigMetrics) SetFallbackActive(active bool) {
	if active {
		m.FallbackActive.Set(1)
		return
	}
	m.FallbackActive.Set(0)
}
