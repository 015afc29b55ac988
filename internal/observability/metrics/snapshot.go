package metrics

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// HistogramValue is the summary of a histogram at one point in time.
type HistogramValue struct {
	Count uint64
	Sum   float64
	Min   float64
	Max   float64
}

// Avg returns Sum/Count, or 0 when nothing was recorded.
func (h HistogramValue) Avg() float64 {
	if h.Count == 0 {
		return 0
	}
	return h.Sum / float64(h.Count)
}

// Point is one metric identity with its current value.
// Value is set for counters and gauges, Histogram for histograms.
type Point struct {
	Kind      Kind
	Name      string
	Labels    Labels
	Value     float64
	Histogram HistogramValue
}

// Snapshot copies every metric, ordered counters first, then gauges, then histograms.
// Within a kind points are sorted by name and then by label string.
func (r *Registry) Snapshot() []Point {
	r.mu.RLock()
	points := make([]Point, 0, len(r.counters)+len(r.gauges)+len(r.histograms))
	for _, c := range r.counters {
		points = append(points, Point{Kind: KindCounter, Name: c.name, Labels: c.labels, Value: c.value.Load()})
	}
	for _, g := range r.gauges {
		points = append(points, Point{Kind: KindGauge, Name: g.name, Labels: g.labels, Value: g.value.Load()})
	}
	for _, h := range r.histograms {
		points = append(points, Point{Kind: KindHistogram, Name: h.name, Labels: h.labels, Histogram: h.snapshot()})
	}
	r.mu.RUnlock()

	sort.Slice(points, func(i, j int) bool {
		a, b := points[i], points[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Labels.String() < b.Labels.String()
	})
	return points
}

// Render writes the registry in text exposition form. Each identity gets a
// "# TYPE" line followed by its samples; histograms expand to _count and _sum,
// plus _min, _max and _avg once they hold at least one observation.
func (r *Registry) Render() string {
	var sb strings.Builder
	for _, p := range r.Snapshot() {
		writePoint(&sb, p)
	}
	return sb.String()
}

func writePoint(sb *strings.Builder, p Point) {
	sb.WriteString("# TYPE ")
	sb.WriteString(p.Name)
	sb.WriteByte(' ')
	sb.WriteString(p.Kind.String())
	sb.WriteByte('\n')

	labels := p.Labels.String()
	if p.Kind != KindHistogram {
		writeSample(sb, p.Name, labels, p.Value)
		return
	}

	h := p.Histogram
	writeSample(sb, p.Name+"_count", labels, float64(h.Count))
	writeSample(sb, p.Name+"_sum", labels, h.Sum)
	if h.Count > 0 {
		writeSample(sb, p.Name+"_min", labels, h.Min)
		writeSample(sb, p.Name+"_max", labels, h.Max)
		writeSample(sb, p.Name+"_avg", labels, h.Avg())
	}
}

func writeSample(sb *strings.Builder, name, labels string, v float64) {
	sb.WriteString(name)
	sb.WriteString(labels)
	sb.WriteByte(' ')
	sb.WriteString(formatValue(v))
	sb.WriteByte('\n')
}

func formatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	case v == math.Trunc(v) && math.Abs(v) < 1e15:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}
