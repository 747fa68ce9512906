package resilience

import "time"

// Config tunes the resilient gateway wrapper.
type Config struct {
	// Timeout bounds each gateway call. Zero disables the per-call timeout.
	Timeout time.Duration

	// CircuitBreaker configures the breaker around gateway calls.
	CircuitBreaker CircuitBreakerConfig
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// MaxRequests is how many requests pass through while half-open.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state after which the
	// internal counts reset. Zero never resets.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	// ReadyToTrip decides, from a copy of the counts, whether the breaker
	// opens. Nil uses the default: 5 consecutive failures, or a failure
	// rate of at least 15% past 20 requests.
	ReadyToTrip func(counts Counts) bool
}

// Counts holds the request and success/failure numbers the breaker has
// seen in the current window.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// DefaultConfig returns sensible defaults for the gateway wrapper.
func DefaultConfig() Config {
	return Config{
		Timeout: 5 * time.Second,
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests: 5,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts Counts) bool {
				if counts.ConsecutiveFailures >= 5 {
					return true
				}
				if counts.Requests < 20 {
					return false
				}
				failureRate := float64(counts.TotalFailures) / float64(counts.Requests)
				return failureRate >= 0.15
			},
		},
	}
}

// WithTimeout returns a copy of the config with the given per-call timeout.
func (c Config) WithTimeout(timeout time.Duration) Config {
	c.Timeout = timeout
	return c
}
