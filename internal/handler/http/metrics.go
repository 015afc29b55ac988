package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"weather-service/internal/handler/http/respond"
	"weather-service/internal/handler/http/responsewriter"
)

// MetricsSource renders the metrics registry after a fresh collection pass.
type MetricsSource interface {
	Metrics(ctx context.Context) string
}

// MetricsHandler serves GET /metrics in the text exposition format.
// It always answers 200 with the best available snapshot.
type MetricsHandler struct {
	Source MetricsSource
}

func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	respond.Text(w, http.StatusOK, h.Source.Metrics(r.Context()))
}

// PrometheusHandler serves the client_golang exposition of g. Collection errors are
// logged and the remaining metrics are still served.
func PrometheusHandler(g prometheus.Gatherer, logger *slog.Logger) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{
		ErrorLog:      promLogger{logger: logger},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// promLogger adapts slog to promhttp.Logger.
type promLogger struct {
	logger *slog.Logger
}

func (l promLogger) Println(v ...interface{}) {
	l.logger.Error("prometheus exposition error", slog.String("error", fmt.Sprint(v...)))
}

// HTTPMetrics records request counts, latencies and in-flight requests of the
// monitoring surface.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	size     *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP collectors with reg.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	factory := promauto.With(reg)
	return &HTTPMetrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_http_requests_total",
				Help: "Total number of monitoring HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		// Probe endpoints answer in milliseconds; /health may take up to the orchestrator ceiling.
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "monitor_http_request_duration_seconds",
				Help:    "Monitoring HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "monitor_http_requests_in_flight",
				Help: "Current number of monitoring HTTP requests being served",
			},
		),
		size: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "monitor_http_response_size_bytes",
				Help:    "Monitoring HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(64, 4, 8),
			},
			[]string{"path"},
		),
	}
}

// Middleware records one observation per request. Paths outside the known
// endpoints are folded into "other" to bound label cardinality.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		path := routeLabel(r.URL.Path)
		rec := responsewriter.Wrap(w)

		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start).Seconds()

		m.requests.WithLabelValues(r.Method, path, strconv.Itoa(rec.Status())).Inc()
		m.duration.WithLabelValues(r.Method, path).Observe(elapsed)
		m.size.WithLabelValues(path).Observe(float64(rec.Size()))
	})
}

func routeLabel(path string) string {
	if _, ok := routes[path]; ok {
		return path
	}
	return "other"
}
