// Package health runs the health probes of the weather service and aggregates their results.
package health

import (
	"maps"
	"time"
)

// State is the health verdict of a probe or of the whole service.
type State string

const (
	// StatusUp means the component works normally.
	StatusUp State = "UP"
	// StatusDegraded means the component works but slower or with reduced capacity.
	// A degraded component still counts as healthy.
	StatusDegraded State = "DEGRADED"
	// StatusDown means the component is not usable.
	StatusDown State = "DOWN"
)

// Status is the result of one probe invocation. Values are never modified after
// construction; the With helpers return copies.
type Status struct {
	Service      string         `json:"service"`
	Healthy      bool           `json:"healthy"`
	State        State          `json:"status"`
	Timestamp    time.Time      `json:"timestamp"`
	ResponseTime time.Duration  `json:"-"`
	Message      string         `json:"message,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

// Up returns a healthy status.
func Up(service, message string) Status {
	return Status{Service: service, Healthy: true, State: StatusUp, Timestamp: time.Now(), Message: message}
}

// Degraded returns a healthy but degraded status.
func Degraded(service, message string) Status {
	return Status{Service: service, Healthy: true, State: StatusDegraded, Timestamp: time.Now(), Message: message}
}

// Down returns an unhealthy status.
func Down(service, message string) Status {
	return Status{Service: service, Healthy: false, State: StatusDown, Timestamp: time.Now(), Message: message}
}

// WithResponseTime returns a copy of s carrying d as its response time.
func (s Status) WithResponseTime(d time.Duration) Status {
	s.ResponseTime = d
	return s
}

// WithTimestamp returns a copy of s stamped with t.
func (s Status) WithTimestamp(t time.Time) Status {
	s.Timestamp = t
	return s
}

// WithDetails returns a copy of s whose details are its own details merged with details.
func (s Status) WithDetails(details map[string]any) Status {
	merged := make(map[string]any, len(s.Details)+len(details))
	maps.Copy(merged, s.Details)
	maps.Copy(merged, details)
	s.Details = merged
	return s
}

// WithDetail returns a copy of s with one extra detail.
func (s Status) WithDetail(key string, value any) Status {
	return s.WithDetails(map[string]any{key: value})
}

// ResponseTimeMillis returns the response time in milliseconds.
func (s Status) ResponseTimeMillis() int64 {
	return s.ResponseTime.Milliseconds()
}
