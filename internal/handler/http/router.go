package http

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"weather-service/internal/handler/http/requestid"
	"weather-service/internal/handler/http/respond"
	"weather-service/internal/observability/tracing"
	"weather-service/internal/weather"
)

// Endpoint paths of the monitoring surface.
const (
	PathMetrics           = "/metrics"
	PathPrometheusMetrics = "/metrics/prometheus"
	PathHealth            = "/health"
	PathReady             = "/ready"
	PathLive              = "/live"
	PathInfo              = "/info"
	PathWeather           = "/weather"
)

// routes maps every served path to the description published by /info.
var routes = map[string]string{
	PathMetrics:           "Metrics in text exposition format",
	PathPrometheusMetrics: "Metrics in Prometheus client format",
	PathHealth:            "Detailed health status",
	PathReady:             "Readiness probe",
	PathLive:              "Liveness probe",
	PathInfo:              "Service information",
	PathWeather:           "Current conditions at the reference location",
}

// Info is the body of GET /info.
type Info struct {
	Application string            `json:"application"`
	Version     string            `json:"version"`
	StartedAt   time.Time         `json:"started_at"`
	Endpoints   map[string]string `json:"endpoints"`
}

// Dependencies are the collaborators of the monitoring router.
type Dependencies struct {
	// Metrics renders the text exposition; required
	Metrics MetricsSource

	// Health runs the health probes; required
	Health HealthChecker

	// Gatherer backs /metrics/prometheus; the endpoint is omitted when nil
	Gatherer prometheus.Gatherer

	// HTTPMetrics records request metrics when set
	HTTPMetrics *HTTPMetrics

	// Weather backs /weather; the endpoint is omitted when nil
	Weather WeatherSource

	// Accepting gates /ready; nil means always accepting
	Accepting *atomic.Bool

	Logger    *slog.Logger
	Version   string
	StartedAt time.Time
}

// NewRouter builds the monitoring handler with its middleware chain.
// Every endpoint answers GET only.
func NewRouter(d Dependencies) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	info := Info{
		Application: "weather-service",
		Version:     d.Version,
		StartedAt:   d.StartedAt.UTC(),
		Endpoints:   make(map[string]string, len(routes)),
	}

	mux := http.NewServeMux()
	handle := func(path string, h http.Handler) {
		mux.Handle(path, GetOnly(h))
		info.Endpoints[path] = routes[path]
	}

	handle(PathMetrics, &MetricsHandler{Source: d.Metrics})
	if d.Gatherer != nil {
		handle(PathPrometheusMetrics, PrometheusHandler(d.Gatherer, logger))
	}
	handle(PathHealth, &HealthHandler{Checker: d.Health})
	handle(PathReady, &ReadyHandler{Checker: d.Health, Accepting: d.Accepting})
	handle(PathLive, http.HandlerFunc(LiveHandler))
	if d.Weather != nil {
		handle(PathWeather, &WeatherHandler{Source: d.Weather, Location: weather.ReferenceLocation})
	}
	handle(PathInfo, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, info)
	}))

	mws := []Middleware{
		Recover(logger),
		requestid.Middleware,
		tracing.Middleware,
		Logging(logger),
	}
	if d.HTTPMetrics != nil {
		mws = append(mws, d.HTTPMetrics.Middleware)
	}
	return Chain(mux, mws...)
}
