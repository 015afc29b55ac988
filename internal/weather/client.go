package weather

import (
	"context"
	"errors"
	"time"
)

// ErrUpstream is wrapped by errors returned from the upstream weather API.
var ErrUpstream = errors.New("weather upstream error")

// Conditions are the observed weather at a location.
type Conditions struct {
	Location    Location  `json:"location"`
	Temperature float64   `json:"temperature_c"`
	Condition   string    `json:"condition"`
	Humidity    int       `json:"humidity"`
	WindSpeed   float64   `json:"wind_speed_kmh"`
	ObservedAt  time.Time `json:"observed_at"`
}

// Client fetches weather data from an upstream provider.
type Client interface {
	CurrentConditions(ctx context.Context, loc Location) (Conditions, error)
	Forecast(ctx context.Context, loc Location, days int) ([]Conditions, error)
}
