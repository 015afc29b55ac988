package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
)

// scheduleParser accepts five-field expressions and descriptors such as "@every 15s".
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule checks a cron expression or descriptor.
//
//	ValidateSchedule("*/5 * * * *") // nil
//	ValidateSchedule("@every 15s")  // nil
func ValidateSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("invalid schedule: cannot be empty")
	}
	if _, err := scheduleParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return nil
}

// ValidateInterval checks that d can drive an "@every" schedule. cron runs
// constant-delay schedules at whole seconds, so the minimum is one second.
func ValidateInterval(d time.Duration) error {
	if d < time.Second {
		return fmt.Errorf("interval must be at least 1s, got %v", d)
	}
	return ValidateSchedule("@every " + d.String())
}

// ValidatePositiveDuration rejects zero and negative durations.
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %v", d)
	}
	return nil
}

// ValidateNonNegativeDuration rejects negative durations.
func ValidateNonNegativeDuration(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("duration must not be negative, got %v", d)
	}
	return nil
}

// ValidateDuration checks that d lies within [min, max].
func ValidateDuration(d, min, max time.Duration) error {
	if d < min || d > max {
		return fmt.Errorf("duration %v out of range [%v, %v]", d, min, max)
	}
	return nil
}

// ValidateIntRange checks that v lies within [min, max].
func ValidateIntRange(v, min, max int) error {
	if v < min || v > max {
		return fmt.Errorf("value %d out of range [%d, %d]", v, min, max)
	}
	return nil
}

// ValidatePort checks a TCP port number.
func ValidatePort(port int) error {
	return ValidateIntRange(port, 1, 65535)
}

// ValidateNonNegativeFloat rejects negative values.
func ValidateNonNegativeFloat(v float64) error {
	if v < 0 {
		return fmt.Errorf("value must not be negative, got %v", v)
	}
	return nil
}

// ValidateHTTPURL checks for an absolute http or https URL.
func ValidateHTTPURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", s, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid url %q: must be absolute http(s)", s)
	}
	return nil
}

// ValidateHostPort checks a "host:port" address.
func ValidateHostPort(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid address %q: port is not a number", addr)
	}
	return ValidatePort(n)
}
