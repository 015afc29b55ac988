// Package config provides fail-open environment loaders shared by the monitor configuration.
//
// Every loader returns a usable value: an unset variable yields the default silently,
// while an unparsable or invalid value yields the default together with a warning.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadResult is the outcome of loading one configuration value.
//
// Example:
//
//	r := LoadEnvDuration("MONITOR_COLLECT_INTERVAL", 15*time.Second, ValidatePositiveDuration)
//	if r.FallbackApplied {
//	    logger.Warn("configuration fallback", slog.String("warning", r.Warning))
//	}
//	interval := r.Value
type LoadResult[T any] struct {
	Value           T
	Warning         string
	FallbackApplied bool
}

// load reads envKey, parses it and validates it, falling back to def on any failure.
func load[T any](envKey string, def T, parse func(string) (T, error), validate func(T) error) LoadResult[T] {
	raw := strings.TrimSpace(os.Getenv(envKey))
	if raw == "" {
		return LoadResult[T]{Value: def}
	}

	v, err := parse(raw)
	if err == nil && validate != nil {
		err = validate(v)
	}
	if err != nil {
		return LoadResult[T]{
			Value:           def,
			Warning:         fmt.Sprintf("invalid %s=%q: %v, falling back to default %v", envKey, raw, err, def),
			FallbackApplied: true,
		}
	}
	return LoadResult[T]{Value: v}
}

// LoadEnvString loads a string; validate may be nil.
func LoadEnvString(envKey, def string, validate func(string) error) LoadResult[string] {
	return load(envKey, def, func(s string) (string, error) { return s, nil }, validate)
}

// LoadEnvDuration loads a Go duration string such as "15s" or "1m30s".
func LoadEnvDuration(envKey string, def time.Duration, validate func(time.Duration) error) LoadResult[time.Duration] {
	return load(envKey, def, time.ParseDuration, validate)
}

// LoadEnvInt loads a base-10 integer.
func LoadEnvInt(envKey string, def int, validate func(int) error) LoadResult[int] {
	return load(envKey, def, strconv.Atoi, validate)
}

// LoadEnvFloat loads a float64.
func LoadEnvFloat(envKey string, def float64, validate func(float64) error) LoadResult[float64] {
	return load(envKey, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }, validate)
}

// LoadEnvBool loads a boolean in any form accepted by strconv.ParseBool.
func LoadEnvBool(envKey string, def bool) LoadResult[bool] {
	return load(envKey, def, strconv.ParseBool, nil)
}

// LoadEnvStringList loads a comma separated list. Blank items are dropped and a
// list with no items is rejected.
func LoadEnvStringList(envKey string, def []string, validate func([]string) error) LoadResult[[]string] {
	return load(envKey, def, splitList, validate)
}

func splitList(s string) ([]string, error) {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("list has no items")
	}
	return out, nil
}
