// Package weatherapi talks to the upstream weather provider over HTTP.
//
// HTTPClient is the raw transport. ProtectedClient puts a circuit breaker in front of any
// weather.Client and CachedClient serves current conditions from the Redis cache.
// A typical chain is CachedClient -> ProtectedClient -> HTTPClient.
package weatherapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"weather-service/internal/weather"
)

const maxBodySize = 1 << 20

// Config holds the upstream API settings.
type Config struct {
	// BaseURL is the API root, e.g. https://api.weather.example/v1
	BaseURL string `yaml:"base_url"`

	// APIKey is sent as the "key" query parameter
	APIKey string `yaml:"api_key"`

	// Timeout bounds a single HTTP request
	Timeout time.Duration `yaml:"timeout"`

	// RateLimit is the sustained request rate in requests per second
	RateLimit float64 `yaml:"rate_limit"`

	// Burst is the number of requests allowed above the sustained rate
	Burst int `yaml:"burst"`
}

// DefaultConfig returns the upstream defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:   "https://api.weatherapi.example/v1",
		Timeout:   10 * time.Second,
		RateLimit: 5,
		Burst:     5,
	}
}

// Validate checks the upstream configuration.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("weather api base url must be an absolute http(s) url, got %q", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("weather api timeout must be positive, got %v", c.Timeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("weather api rate limit must not be negative, got %v", c.RateLimit)
	}
	return nil
}

// StatusError reports a non-2xx response from the upstream API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("weather api: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("weather api: HTTP %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets callers match upstream failures with errors.Is(err, weather.ErrUpstream).
func (e *StatusError) Unwrap() error { return weather.ErrUpstream }

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		if c != nil {
			h.client = c
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *HTTPClient) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// HTTPClient implements weather.Client against the upstream JSON API.
// Failures are returned once; there is no retry.
type HTTPClient struct {
	cfg     Config
	client  *http.Client
	limiter *RateLimiter
	logger  *slog.Logger
}

// NewHTTPClient creates a rate limited upstream client.
func NewHTTPClient(cfg Config, opts ...Option) (*HTTPClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &HTTPClient{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: NewRateLimiter(cfg.RateLimit, cfg.Burst),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

type conditionsPayload struct {
	TempC      float64   `json:"temp_c"`
	Condition  string    `json:"condition"`
	Humidity   int       `json:"humidity"`
	WindKPH    float64   `json:"wind_kph"`
	ObservedAt time.Time `json:"observed_at"`
}

func (p conditionsPayload) toConditions(loc weather.Location) weather.Conditions {
	return weather.Conditions{
		Location:    loc,
		Temperature: p.TempC,
		Condition:   p.Condition,
		Humidity:    p.Humidity,
		WindSpeed:   p.WindKPH,
		ObservedAt:  p.ObservedAt,
	}
}

type forecastPayload struct {
	Days []conditionsPayload `json:"days"`
}

// CurrentConditions implements weather.Client.
func (h *HTTPClient) CurrentConditions(ctx context.Context, loc weather.Location) (weather.Conditions, error) {
	var payload conditionsPayload
	if err := h.get(ctx, "current", loc, nil, &payload); err != nil {
		return weather.Conditions{}, err
	}
	return payload.toConditions(loc), nil
}

// Forecast implements weather.Client.
func (h *HTTPClient) Forecast(ctx context.Context, loc weather.Location, days int) ([]weather.Conditions, error) {
	if days < 1 {
		return nil, fmt.Errorf("weather api: forecast days must be >= 1, got %d", days)
	}
	var payload forecastPayload
	extra := url.Values{"days": {strconv.Itoa(days)}}
	if err := h.get(ctx, "forecast", loc, extra, &payload); err != nil {
		return nil, err
	}
	out := make([]weather.Conditions, 0, len(payload.Days))
	for _, d := range payload.Days {
		out = append(out, d.toConditions(loc))
	}
	return out, nil
}

func (h *HTTPClient) get(ctx context.Context, endpoint string, loc weather.Location, extra url.Values, dest any) error {
	if err := h.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("weather api: rate limit wait: %w", err)
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	if h.cfg.APIKey != "" {
		q.Set("key", h.cfg.APIKey)
	}
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	endpointURL := h.cfg.BaseURL + "/" + endpoint + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, nil)
	if err != nil {
		return fmt.Errorf("weather api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "weather-service/1.0")

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("weather api: %s: %w", endpoint, ctxErr)
		}
		return fmt.Errorf("%w: %s request failed: %v", weather.ErrUpstream, endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: read %s response: %v", weather.ErrUpstream, endpoint, err)
	}

	h.logger.Debug("weather api call",
		slog.String("endpoint", endpoint),
		slog.String("location", loc.FullName()),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", weather.ErrUpstream, endpoint, err)
	}
	return nil
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
