package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prevProp := otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(sdktrace.NewTracerProvider())
		otel.SetTextMapPropagator(prevProp)
	})
	return exporter
}

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[a.Key] = a.Value
	}
	return m
}

func serve(h http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMiddleware_CreatesServerSpan(t *testing.T) {
	exporter := installRecorder(t)

	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := serve(h, http.MethodGet, "/health", nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP GET /health", spans[0].Name)

	attrs := attrMap(spans[0].Attributes)
	assert.Equal(t, "GET", attrs["http.method"].AsString())
	assert.Equal(t, "/health", attrs["http.path"].AsString())
	assert.Equal(t, int64(200), attrs["http.status_code"].AsInt64())

	assert.Len(t, rr.Header().Get(TraceIDHeader), 32)
	assert.Equal(t, spans[0].SpanContext.TraceID().String(), rr.Header().Get(TraceIDHeader))
}

func TestMiddleware_ContinuesIncomingTrace(t *testing.T) {
	exporter := installRecorder(t)

	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	header := http.Header{}
	header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	serve(h, http.MethodGet, "/live", header)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext.TraceID().String())
}

func TestMiddleware_StatusHandling(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantError bool
	}{
		{name: "ok", status: http.StatusOK},
		{name: "not found", status: http.StatusNotFound},
		{name: "method not allowed", status: http.StatusMethodNotAllowed},
		{name: "unavailable", status: http.StatusServiceUnavailable, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter := installRecorder(t)

			h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			serve(h, http.MethodGet, "/health", nil)

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			if tt.wantError {
				assert.Equal(t, codes.Error, spans[0].Status.Code)
			} else {
				assert.NotEqual(t, codes.Error, spans[0].Status.Code)
			}
		})
	}
}

func TestStartSpan_RecordsAttributes(t *testing.T) {
	exporter := installRecorder(t)

	_, span := StartSpan(context.Background(), "health.probe", attribute.String("health.probe", "cache"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "health.probe", spans[0].Name)
	assert.Equal(t, "cache", attrMap(spans[0].Attributes)["health.probe"].AsString())
}
