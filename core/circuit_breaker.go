// Circuit breaker protection for handler dispatch.
//
// The orchestrator wraps each registered handler's Process call with its own
// CircuitBreaker instance so a handler that starts failing repeatedly (a
// model backend down, a dependent service unreachable) stops being dispatched
// to for a cooldown window rather than adding latency to every request that
// selects it. States: closed (normal), open (failing fast), half-open
// (probing recovery).
package core

import (
	"sync"
	"time"
)

// CircuitBreakerConfig configures a CircuitBreaker's thresholds.
type CircuitBreakerConfig struct {
	// Threshold is the number of consecutive failures that trips the
	// breaker from closed to open.
	Threshold int

	// Timeout is how long the breaker stays open before allowing a single
	// half-open probe.
	Timeout time.Duration
}

// DefaultCircuitBreakerConfig returns sensible defaults: 5 consecutive
// failures trips the breaker, 30 seconds before a recovery probe.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{Threshold: 5, Timeout: 30 * time.Second}
}

// CircuitBreaker protects a single handler from repeated dispatch while it
// is failing.
type CircuitBreaker struct {
	mu              sync.Mutex
	name            string
	config          CircuitBreakerConfig
	failureCount    int
	lastFailureTime time.Time
	state           string // "closed", "open", "half-open"
}

// NewCircuitBreaker creates a circuit breaker in the closed state.
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.Threshold <= 0 {
		config.Threshold = DefaultCircuitBreakerConfig().Threshold
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultCircuitBreakerConfig().Timeout
	}
	return &CircuitBreaker{name: name, config: config, state: "closed"}
}

// CanExecute reports whether a call should be allowed through right now. A
// breaker in the open state transitions itself to half-open once the
// cooldown elapses, allowing exactly one probe call.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case "open":
		if time.Since(cb.lastFailureTime) > cb.config.Timeout {
			cb.state = "half-open"
			return true
		}
		return false
	case "half-open":
		// The probe is already out; further calls wait for its result.
		return false
	default:
		return true
	}
}

// RecordSuccess closes the breaker and resets its failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	cb.state = "closed"
}

// RecordFailure increments the failure count and trips the breaker open once
// the threshold is reached (or immediately, if the failing call was itself
// the half-open probe).
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureTime = time.Now()

	if cb.state == "half-open" || cb.failureCount >= cb.config.Threshold {
		cb.state = "open"
	}
}

// State returns the current breaker state: "closed", "open", or "half-open".
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker back to closed, clearing its failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	cb.state = "closed"
}
