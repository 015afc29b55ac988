package weatherapi

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter spaces out calls to the upstream weather API with a token bucket.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows requestsPerSecond sustained calls with bursts of up to burst calls.
// A non-positive rate disables limiting.
//
// Example:
//
//	limiter := NewRateLimiter(5, 10) // 5 req/s, burst of 10
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
