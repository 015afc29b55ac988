package probes

import (
	"context"
	"log/slog"
	"time"

	"weather-service/internal/observability/health"
)

// CacheName is the aggregation key of the cache probe.
const CacheName = "cache"

// CacheLister is the view of the cache registry the probe needs.
type CacheLister interface {
	Names() []string
	Ping(ctx context.Context, name string) error
}

// CacheProbe verifies that every registered cache is reachable.
type CacheProbe struct {
	caches CacheLister
	logger *slog.Logger
	now    func() time.Time
}

// NewCacheProbe returns a probe over caches.
func NewCacheProbe(caches CacheLister, logger *slog.Logger) *CacheProbe {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheProbe{caches: caches, logger: logger, now: time.Now}
}

// Name implements health.Probe.
func (p *CacheProbe) Name() string { return CacheName }

// Check implements health.Probe.
func (p *CacheProbe) Check(ctx context.Context) (st health.Status) {
	start := p.now()
	defer recoverInto(&st, CacheName, start, p.now)

	names := p.caches.Names()
	accessible := 0
	var unreachable []string
	for _, name := range names {
		if err := p.caches.Ping(ctx, name); err != nil {
			p.logger.Warn("cache not accessible",
				slog.String("cache", name),
				slog.Any("error", err))
			unreachable = append(unreachable, name)
			continue
		}
		accessible++
	}
	elapsed := p.now().Sub(start)

	details := map[string]any{
		"cache_count":       len(names),
		"caches_accessible": len(unreachable) == 0,
		"accessible_count":  accessible,
		"cache_names":       names,
		"response_time_ms":  elapsed.Milliseconds(),
	}
	if len(unreachable) > 0 {
		details["unreachable"] = unreachable
		return health.Down(CacheName, "One or more caches are not accessible").
			WithResponseTime(elapsed).
			WithDetails(details)
	}
	return health.Up(CacheName, "").WithResponseTime(elapsed).WithDetails(details)
}
