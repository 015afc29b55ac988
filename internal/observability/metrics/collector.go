package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes a Registry through client_golang so the same data can be
// scraped from a promhttp handler.
//
// Counters and gauges map one to one. Histograms have no buckets, so they are
// exported as a summary without quantiles plus <name>_min and <name>_max gauges.
// The set of metrics changes at runtime, so the collector is unchecked.
type Collector struct {
	registry *Registry
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector reading from registry.
func NewCollector(registry *Registry) *Collector {
	return &Collector{registry: registry}
}

// Describe sends nothing, which registers the collector as unchecked.
func (c *Collector) Describe(chan<- *prometheus.Desc) {}

// Collect converts the current registry snapshot to constant metrics.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, p := range c.registry.Snapshot() {
		keys, values := splitLabels(p.Labels)

		switch p.Kind {
		case KindCounter:
			desc := prometheus.NewDesc(p.Name, "Counter "+p.Name+" from the weather-service registry.", keys, nil)
			ch <- constMetric(desc, prometheus.CounterValue, p.Value, values)
		case KindGauge:
			desc := prometheus.NewDesc(p.Name, "Gauge "+p.Name+" from the weather-service registry.", keys, nil)
			ch <- constMetric(desc, prometheus.GaugeValue, p.Value, values)
		case KindHistogram:
			h := p.Histogram
			desc := prometheus.NewDesc(p.Name, "Observations of "+p.Name+" from the weather-service registry.", keys, nil)
			m, err := prometheus.NewConstSummary(desc, h.Count, h.Sum, nil, values...)
			if err != nil {
				m = prometheus.NewInvalidMetric(desc, err)
			}
			ch <- m

			if h.Count == 0 {
				continue
			}
			minDesc := prometheus.NewDesc(p.Name+"_min", "Smallest observation of "+p.Name+".", keys, nil)
			maxDesc := prometheus.NewDesc(p.Name+"_max", "Largest observation of "+p.Name+".", keys, nil)
			ch <- constMetric(minDesc, prometheus.GaugeValue, h.Min, values)
			ch <- constMetric(maxDesc, prometheus.GaugeValue, h.Max, values)
		}
	}
}

func constMetric(desc *prometheus.Desc, vt prometheus.ValueType, v float64, labelValues []string) prometheus.Metric {
	m, err := prometheus.NewConstMetric(desc, vt, v, labelValues...)
	if err != nil {
		return prometheus.NewInvalidMetric(desc, err)
	}
	return m
}

func splitLabels(labels Labels) ([]string, []string) {
	if len(labels) == 0 {
		return nil, nil
	}
	keys := make([]string, len(labels))
	values := make([]string, len(labels))
	for i, l := range labels {
		keys[i] = l.Key
		values[i] = l.Value
	}
	return keys, values
}
