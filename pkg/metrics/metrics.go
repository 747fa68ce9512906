// Package metrics defines the collector interface for sync observability.
// Implementations export to Prometheus or keep in-memory snapshots; the
// no-op collector is the default when metrics are not wired.
package metrics

import "time"

// CircuitState mirrors the gateway circuit breaker state.
type CircuitState int

const (
	// CircuitClosed lets requests through.
	CircuitClosed CircuitState = iota
	// CircuitOpen blocks requests.
	CircuitOpen
	// CircuitHalfOpen is probing for recovery.
	CircuitHalfOpen
)

// String returns the state label.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Collector records sync protocol events.
type Collector interface {
	// RecordCreate counts one record creation outcome ("created",
	// "exists", "failed", "error").
	RecordCreate(status string, duration time.Duration)

	// RecordLookup counts one lookup call and how many of the requested
	// ids were found.
	RecordLookup(requested, found int, duration time.Duration)

	// RecordVerifyAttempt counts one verification attempt. mode is
	// "single" or "batch"; outcome is "verified", "missing", "mismatch"
	// or "error".
	RecordVerifyAttempt(mode string, attempt int, outcome string)

	// RecordRun records a whole sync run.
	RecordRun(success bool, accounts int, duration time.Duration)

	// RecordCircuitState records a gateway circuit breaker transition.
	RecordCircuitState(gateway string, state CircuitState)

	// RecordCacheGet counts a balance cache read per layer.
	RecordCacheGet(layer string, hit bool, duration time.Duration)
}

// Nop is the default no-op Collector.
type Nop struct{}

// RecordCreate does nothing.
func (Nop) RecordCreate(status string, duration time.Duration) {}

// RecordLookup does nothing.
func (Nop) RecordLookup(requested, found int, duration time.Duration) {}

// RecordVerifyAttempt does nothing.
func (Nop) RecordVerifyAttempt(mode string, attempt int, outcome string) {}

// RecordRun does nothing.
func (Nop) RecordRun(success bool, accounts int, duration time.Duration) {}

// RecordCircuitState does nothing.
func (Nop) RecordCircuitState(gateway string, state CircuitState) {}

// RecordCacheGet does nothing.
func (Nop) RecordCacheGet(layer string, hit bool, duration time.Duration) {}
