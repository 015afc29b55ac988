package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"weather-service/internal/handler/http/respond"
	"weather-service/internal/observability/logging"
	"weather-service/internal/resilience/circuitbreaker"
	"weather-service/internal/weather"
)

// WeatherSource serves current conditions, usually through the breaker and cache decorators.
type WeatherSource interface {
	CurrentConditions(ctx context.Context, loc weather.Location) (weather.Conditions, error)
}

// WeatherHandler answers GET /weather with the current conditions at Location.
type WeatherHandler struct {
	Source   WeatherSource
	Location weather.Location
}

func (h *WeatherHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := h.Source.CurrentConditions(r.Context(), h.Location)
	if err != nil {
		code := weatherErrorStatus(err)
		logging.FromContext(r.Context()).Warn("weather lookup failed",
			slog.String("location", h.Location.FullName()),
			slog.Int("status_code", code),
			slog.Any("error", err))
		respond.Error(w, code, http.StatusText(code))
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

// weatherErrorStatus maps lookup errors to status codes. Upstream details are not exposed.
func weatherErrorStatus(err error) int {
	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
