// Package http serves the monitoring surface of the weather service: metrics in the
// text exposition and Prometheus formats, aggregated health, and the readiness,
// liveness and info endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"weather-service/internal/handler/http/respond"
	"weather-service/internal/observability/health"
	"weather-service/internal/observability/logging"
)

// HealthChecker runs every registered probe.
type HealthChecker interface {
	CheckAll(ctx context.Context) health.AggregatedStatus
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	RunID          string                 `json:"run_id,omitempty"`
	Status         health.State           `json:"status"`
	Healthy        bool                   `json:"healthy"`
	Timestamp      time.Time              `json:"timestamp"`
	ResponseTimeMS int64                  `json:"response_time_ms"`
	Checks         map[string]CheckResult `json:"checks"`
	FailedChecks   []string               `json:"failed_checks,omitempty"`
	DegradedChecks []string               `json:"degraded_checks,omitempty"`
}

// CheckResult is the per-probe entry of HealthResponse.
type CheckResult struct {
	Status         health.State   `json:"status"`
	Healthy        bool           `json:"healthy"`
	ResponseTimeMS int64          `json:"response_time_ms"`
	Message        string         `json:"message,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
}

// StatusResponse is the body of the readiness and liveness endpoints.
type StatusResponse struct {
	Status string `json:"status"`
}

// Readiness and liveness statuses.
const (
	StatusReady    = "READY"
	StatusNotReady = "NOT_READY"
	StatusAlive    = "ALIVE"
)

// NewHealthResponse converts an aggregated status to its JSON form.
func NewHealthResponse(agg health.AggregatedStatus) HealthResponse {
	resp := HealthResponse{
		RunID:          agg.RunID,
		Status:         agg.Status,
		Healthy:        agg.Healthy,
		Timestamp:      agg.Timestamp,
		ResponseTimeMS: agg.TotalResponseTime.Milliseconds(),
		Checks:         make(map[string]CheckResult, len(agg.Results)),
		FailedChecks:   agg.FailedChecks(),
		DegradedChecks: agg.DegradedChecks(),
	}
	for name, st := range agg.Results {
		resp.Checks[name] = CheckResult{
			Status:         st.State,
			Healthy:        st.Healthy,
			ResponseTimeMS: st.ResponseTimeMillis(),
			Message:        st.Message,
			Details:        st.Details,
		}
	}
	return resp
}

// HealthHandler runs all probes and reports 200 when the aggregate is healthy, 503 otherwise.
type HealthHandler struct {
	Checker HealthChecker
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	agg := h.Checker.CheckAll(r.Context())

	code := http.StatusOK
	if !agg.Healthy {
		code = http.StatusServiceUnavailable
	}

	logging.FromContext(r.Context()).Debug("served health endpoint",
		slog.String("status", string(agg.Status)),
		slog.String("run_id", agg.RunID))
	respond.JSON(w, code, NewHealthResponse(agg))
}

// ReadyHandler reports READY while the aggregate is UP or DEGRADED.
// While Accepting is false (the server is draining) it reports NOT_READY without running probes.
type ReadyHandler struct {
	Checker   HealthChecker
	Accepting *atomic.Bool
}

func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Accepting != nil && !h.Accepting.Load() {
		respond.JSON(w, http.StatusServiceUnavailable, StatusResponse{Status: StatusNotReady})
		return
	}

	if !h.Checker.CheckAll(r.Context()).Ready() {
		respond.JSON(w, http.StatusServiceUnavailable, StatusResponse{Status: StatusNotReady})
		return
	}
	respond.JSON(w, http.StatusOK, StatusResponse{Status: StatusReady})
}

// LiveHandler always reports ALIVE. It performs no checks.
func LiveHandler(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, StatusResponse{Status: StatusAlive})
}
