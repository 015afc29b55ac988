package health

import (
	"sort"
	"time"
)

// AggregatedStatus combines the results of one CheckAll run.
type AggregatedStatus struct {
	RunID             string            `json:"run_id"`
	Healthy           bool              `json:"healthy"`
	Status            State             `json:"status"`
	TotalResponseTime time.Duration     `json:"-"`
	Results           map[string]Status `json:"checks"`
	Timestamp         time.Time         `json:"timestamp"`
}

// Aggregate folds probe results into one status: DOWN if any probe is unhealthy,
// otherwise DEGRADED if any probe is degraded, otherwise UP. The response time
// is the sum of the individual response times. No results means UP.
func Aggregate(results map[string]Status, now time.Time) AggregatedStatus {
	agg := AggregatedStatus{
		Healthy:   true,
		Status:    StatusUp,
		Results:   make(map[string]Status, len(results)),
		Timestamp: now,
	}

	degraded := false
	for name, st := range results {
		agg.Results[name] = st
		agg.TotalResponseTime += st.ResponseTime
		if !st.Healthy || st.State == StatusDown {
			agg.Healthy = false
		}
		if st.State == StatusDegraded {
			degraded = true
		}
	}

	switch {
	case !agg.Healthy:
		agg.Status = StatusDown
	case degraded:
		agg.Status = StatusDegraded
	}
	return agg
}

// FailedChecks returns the sorted names of unhealthy probes.
func (a AggregatedStatus) FailedChecks() []string {
	return a.names(func(s Status) bool { return !s.Healthy })
}

// DegradedChecks returns the sorted names of healthy but degraded probes.
func (a AggregatedStatus) DegradedChecks() []string {
	return a.names(func(s Status) bool { return s.Healthy && s.State == StatusDegraded })
}

// Ready reports whether the service can take traffic (UP or DEGRADED).
func (a AggregatedStatus) Ready() bool {
	return a.Status == StatusUp || a.Status == StatusDegraded
}

func (a AggregatedStatus) names(match func(Status) bool) []string {
	var names []string
	for name, st := range a.Results {
		if match(st) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
