package metrics

import (
	"fmt"
	"math"
	"regexp"
	"sync"
	"sync/atomic"
	"time"
)

// Kind is the type of a metric.
type Kind int

const (
	// KindCounter is a monotonic non-negative accumulator.
	KindCounter Kind = iota
	// KindGauge holds the last value written.
	KindGauge
	// KindHistogram tracks count, sum, min and max of observations.
	KindHistogram
)

func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	case KindHistogram:
		return "histogram"
	default:
		return "untyped"
	}
}

var metricNameRE = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)

// atomicFloat is a float64 stored as its bit pattern.
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

func (f *atomicFloat) Store(v float64) {
	f.bits.Store(math.Float64bits(v))
}

func (f *atomicFloat) Add(delta float64) {
	for {
		old := f.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if f.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

type counter struct {
	name   string
	labels Labels
	value  atomicFloat
}

type gauge struct {
	name   string
	labels Labels
	value  atomicFloat
}

type histogram struct {
	name   string
	labels Labels

	mu    sync.Mutex
	count uint64
	sum   float64
	min   float64
	max   float64
}

func (h *histogram) observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 || v < h.min {
		h.min = v
	}
	if h.count == 0 || v > h.max {
		h.max = v
	}
	h.count++
	h.sum += v
}

func (h *histogram) snapshot() HistogramValue {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HistogramValue{Count: h.count, Sum: h.sum, Min: h.min, Max: h.max}
}

// Registry accumulates counters, gauges and histograms keyed by name and label set.
//
// Label order never matters: the same pairs in any order address the same metric.
// All methods are safe for concurrent use. Reads never create or modify metrics.
type Registry struct {
	mu         sync.RWMutex
	kinds      map[string]Kind
	counters   map[string]*counter
	gauges     map[string]*gauge
	histograms map[string]*histogram
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.reset()
	return r
}

func (r *Registry) reset() {
	r.kinds = make(map[string]Kind)
	r.counters = make(map[string]*counter)
	r.gauges = make(map[string]*gauge)
	r.histograms = make(map[string]*histogram)
}

// Inc adds one to the counter identified by name and labels.
func (r *Registry) Inc(name string, labels ...string) error {
	return r.IncrementCounter(name, 1, labels...)
}

// IncrementCounter adds amount to a counter. Negative and non-finite amounts are rejected.
func (r *Registry) IncrementCounter(name string, amount float64, labels ...string) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("counter %q: %w", name, ErrNonFiniteValue)
	}
	if amount < 0 {
		return fmt.Errorf("counter %q: %w", name, ErrNegativeIncrement)
	}
	ls, err := validate(name, labels)
	if err != nil {
		return err
	}
	key := identityKey(name, ls)

	r.mu.RLock()
	if c, ok := r.counters[key]; ok {
		c.value.Add(amount)
		r.mu.RUnlock()
		return nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counters[key]
	if !ok {
		if err := r.claim(name, KindCounter); err != nil {
			return err
		}
		c = &counter{name: name, labels: ls}
		r.counters[key] = c
	}
	c.value.Add(amount)
	return nil
}

// SetGauge stores value as the current value of a gauge.
func (r *Registry) SetGauge(name string, value float64, labels ...string) error {
	ls, err := validate(name, labels)
	if err != nil {
		return err
	}
	key := identityKey(name, ls)

	r.mu.RLock()
	if g, ok := r.gauges[key]; ok {
		g.value.Store(value)
		r.mu.RUnlock()
		return nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gauges[key]
	if !ok {
		if err := r.claim(name, KindGauge); err != nil {
			return err
		}
		g = &gauge{name: name, labels: ls}
		r.gauges[key] = g
	}
	g.value.Store(value)
	return nil
}

// RecordHistogram adds one observation to a histogram.
func (r *Registry) RecordHistogram(name string, value float64, labels ...string) error {
	ls, err := validate(name, labels)
	if err != nil {
		return err
	}
	key := identityKey(name, ls)

	r.mu.RLock()
	if h, ok := r.histograms[key]; ok {
		h.observe(value)
		r.mu.RUnlock()
		return nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.histograms[key]
	if !ok {
		if err := r.claim(name, KindHistogram); err != nil {
			return err
		}
		h = &histogram{name: name, labels: ls}
		r.histograms[key] = h
	}
	h.observe(value)
	return nil
}

// RecordTimer records d in milliseconds to the <name>_duration_ms histogram
// and counts the call in <name>_total.
func (r *Registry) RecordTimer(name string, d time.Duration, labels ...string) error {
	ms := float64(d) / float64(time.Millisecond)
	if err := r.RecordHistogram(name+"_duration_ms", ms, labels...); err != nil {
		return err
	}
	return r.Inc(name+"_total", labels...)
}

// Clear drops every metric. Later writes start from scratch.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
}

// claim binds name to kind. Callers must hold the write lock.
func (r *Registry) claim(name string, kind Kind) error {
	existing, ok := r.kinds[name]
	if ok && existing != kind {
		return fmt.Errorf("%s %q registered as %s: %w", kind, name, existing, ErrKindMismatch)
	}
	r.kinds[name] = kind
	return nil
}

func validate(name string, labels []string) (Labels, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if !metricNameRE.MatchString(name) {
		return nil, fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	ls, err := parseLabels(labels)
	if err != nil {
		return nil, fmt.Errorf("metric %q: %w", name, err)
	}
	return ls, nil
}
