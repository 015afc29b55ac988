package health

import (
	"context"
	"time"
)

// DefaultProbeTimeout bounds a probe that does not declare its own timeout.
const DefaultProbeTimeout = 5 * time.Second

// Probe checks one component.
//
// Check must not panic or block past ctx: failures are reported as a DOWN status.
// Name is the stable key the result is aggregated under.
type Probe interface {
	Name() string
	Check(ctx context.Context) Status
}

// TimeoutProvider is implemented by probes that need a bound other than DefaultProbeTimeout.
type TimeoutProvider interface {
	Timeout() time.Duration
}

// ProbeTimeout returns the timeout the orchestrator applies to p.
func ProbeTimeout(p Probe) time.Duration {
	if tp, ok := p.(TimeoutProvider); ok {
		if d := tp.Timeout(); d > 0 {
			return d
		}
	}
	return DefaultProbeTimeout
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc struct {
	name    string
	timeout time.Duration
	check   func(ctx context.Context) Status
}

// NewProbe returns a probe named name running check. A zero timeout selects DefaultProbeTimeout.
func NewProbe(name string, timeout time.Duration, check func(ctx context.Context) Status) *ProbeFunc {
	return &ProbeFunc{name: name, timeout: timeout, check: check}
}

// Name implements Probe.
func (p *ProbeFunc) Name() string { return p.name }

// Check implements Probe.
func (p *ProbeFunc) Check(ctx context.Context) Status { return p.check(ctx) }

// Timeout implements TimeoutProvider.
func (p *ProbeFunc) Timeout() time.Duration { return p.timeout }
