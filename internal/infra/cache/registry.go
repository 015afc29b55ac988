// Package cache provides the named Redis caches of the weather service.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Names of the caches used by the weather service.
const (
	CurrentWeather = "weather-current"
	Forecast       = "weather-forecast"
	Alerts         = "weather-alerts"
)

// DefaultNames lists the caches created when none are configured.
var DefaultNames = []string{CurrentWeather, Forecast, Alerts}

// ErrUnknownCache is returned when a cache name is not registered.
var ErrUnknownCache = errors.New("unknown cache")

const healthKey = "__health__"

// Cache is one named keyspace in Redis. Values are stored as JSON.
type Cache struct {
	name   string
	prefix string
	ttl    time.Duration
	client goredis.UniversalClient
}

// Name returns the cache name.
func (c *Cache) Name() string { return c.name }

func (c *Cache) key(k string) string {
	return c.prefix + c.name + ":" + k
}

// Get decodes the value stored under key into dest. It reports false on a miss.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache %s: get %q: %w", c.name, key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("cache %s: decode %q: %w", c.name, key, err)
	}
	return true, nil
}

// Set stores value under key with the cache TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache %s: encode %q: %w", c.name, key, err)
	}
	if err := c.client.Set(ctx, c.key(key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache %s: set %q: %w", c.name, key, err)
	}
	return nil
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("cache %s: delete %q: %w", c.name, key, err)
	}
	return nil
}

// ping writes and reads back a short-lived marker key.
func (c *Cache) ping(ctx context.Context) error {
	key := c.key(healthKey)
	marker := time.Now().UTC().Format(time.RFC3339Nano)
	if err := c.client.Set(ctx, key, marker, 10*time.Second).Err(); err != nil {
		return fmt.Errorf("cache %s: write check: %w", c.name, err)
	}
	got, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("cache %s: read check: %w", c.name, err)
	}
	if got != marker {
		return fmt.Errorf("cache %s: read check returned stale value", c.name)
	}
	return nil
}

// Option configures a Registry.
type Option func(*Registry)

// WithTTL sets the TTL applied to every cached value.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithPrefix sets the key prefix shared by all caches.
func WithPrefix(prefix string) Option {
	return func(r *Registry) { r.prefix = prefix }
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Registry holds the named caches. The set of names is fixed at construction.
type Registry struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
	caches map[string]*Cache
}

// NewRegistry creates a cache for each name on top of client.
func NewRegistry(client goredis.UniversalClient, names []string, opts ...Option) (*Registry, error) {
	if client == nil {
		return nil, errors.New("cache registry: nil redis client")
	}

	r := &Registry{
		client: client,
		prefix: "weather:",
		ttl:    10 * time.Minute,
		logger: slog.Default(),
		caches: make(map[string]*Cache, len(names)),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, name := range names {
		if name == "" {
			return nil, errors.New("cache registry: empty cache name")
		}
		if _, dup := r.caches[name]; dup {
			return nil, fmt.Errorf("cache registry: duplicate cache %q", name)
		}
		r.caches[name] = &Cache{name: name, prefix: r.prefix, ttl: r.ttl, client: client}
	}

	r.logger.Info("cache registry initialized",
		slog.Any("caches", r.Names()),
		slog.Duration("ttl", r.ttl))
	return r, nil
}

// Names returns the registered cache names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.caches))
	for name := range r.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cache returns the cache called name.
func (r *Registry) Cache(name string) (*Cache, bool) {
	c, ok := r.caches[name]
	return c, ok
}

// Ping verifies that the cache called name can be written and read.
func (r *Registry) Ping(ctx context.Context, name string) error {
	c, ok := r.caches[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCache, name)
	}
	return c.ping(ctx)
}

// Close closes the underlying Redis client.
func (r *Registry) Close() error {
	return r.client.Close()
}
