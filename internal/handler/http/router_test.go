package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-service/internal/handler/http/requestid"
	"weather-service/internal/observability/health"
	"weather-service/internal/observability/metrics"
	"weather-service/internal/observability/tracing"
	"weather-service/internal/weather"
)

type registrySource struct {
	reg *metrics.Registry
}

func (s registrySource) Metrics(context.Context) string { return s.reg.Render() }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T) (http.Handler, *metrics.Registry, *prometheus.Registry) {
	t.Helper()
	reg := metrics.NewRegistry()
	require.NoError(t, reg.Inc("weather_requests_total", "endpoint", "current"))

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(metrics.NewCollector(reg))

	router := NewRouter(Dependencies{
		Metrics:     registrySource{reg: reg},
		Health:      checker(map[string]health.State{"cache": health.StatusUp}),
		Gatherer:    promReg,
		HTTPMetrics: NewHTTPMetrics(promReg),
		Weather:     weather.NewMockClient(),
		Logger:      discardLogger(),
		Version:     "1.2.3",
		StartedAt:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	return router, reg, promReg
}

func TestRouter_Endpoints(t *testing.T) {
	router, _, _ := newTestRouter(t)

	tests := []struct {
		path        string
		wantCode    int
		contentType string
		contains    string
	}{
		{path: PathMetrics, wantCode: http.StatusOK, contentType: "text/plain; version=0.0.4; charset=utf-8", contains: `weather_requests_total{endpoint="current"} 1`},
		{path: PathPrometheusMetrics, wantCode: http.StatusOK, contentType: "text/plain", contains: `weather_requests_total{endpoint="current"} 1`},
		{path: PathHealth, wantCode: http.StatusOK, contentType: "application/json", contains: `"status":"UP"`},
		{path: PathReady, wantCode: http.StatusOK, contentType: "application/json", contains: `"READY"`},
		{path: PathLive, wantCode: http.StatusOK, contentType: "application/json", contains: `"ALIVE"`},
		{path: PathInfo, wantCode: http.StatusOK, contentType: "application/json", contains: `"weather-service"`},
		{path: "/nope", wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.contentType != "" {
				assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), tt.contentType),
					"content type %q", rec.Header().Get("Content-Type"))
			}
			assert.Contains(t, rec.Body.String(), tt.contains)
			assert.NotEmpty(t, rec.Header().Get(requestid.Header))
			assert.NotEmpty(t, rec.Header().Get(tracing.TraceIDHeader))
		})
	}
}

func TestRouter_RejectsNonGet(t *testing.T) {
	router, _, _ := newTestRouter(t)

	paths := []string{PathMetrics, PathPrometheusMetrics, PathHealth, PathReady, PathLive, PathInfo}
	methods := []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodHead}
	for _, path := range paths {
		for _, method := range methods {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "%s %s", method, path)
			assert.Equal(t, http.MethodGet, rec.Header().Get("Allow"), "%s %s", method, path)
		}
	}
}

func TestRouter_Info(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathInfo, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var info Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "weather-service", info.Application)
	assert.Equal(t, "1.2.3", info.Version)
	assert.Len(t, info.Endpoints, len(routes))
	for path := range routes {
		assert.Contains(t, info.Endpoints, path)
	}
}

func TestRouter_WithoutGatherer(t *testing.T) {
	router := NewRouter(Dependencies{
		Metrics: registrySource{reg: metrics.NewRegistry()},
		Health:  checker(nil),
		Logger:  discardLogger(),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathPrometheusMetrics, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathInfo, nil))
	assert.NotContains(t, rec.Body.String(), PathPrometheusMetrics)
}

func TestRouter_RecordsHTTPMetrics(t *testing.T) {
	router, _, promReg := newTestRouter(t)

	for _, path := range []string{PathLive, PathLive, "/unknown/42"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	families, err := promReg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "monitor_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			counts[labels["path"]+" "+labels["status"]] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 2.0, counts["/live 200"])
	assert.Equal(t, 1.0, counts["other 404"])
}
