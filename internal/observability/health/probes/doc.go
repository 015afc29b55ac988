// Package probes contains the health probes of the weather service.
//
// Every probe converts its own failures, panics included, into a DOWN status,
// so the orchestrator only ever sees data.
package probes
