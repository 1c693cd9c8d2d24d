// Circuit breaker over the records server connection. Consecutive
// transport failures open the circuit so the refresh loop stops
// retrying calls known to be failing; the periodic connectivity probe
// acts as the half-open check that closes it again.
package gateway

import (
	"sync"
	"time"
)

// DefaultFailureThreshold is the number of consecutive transport
// failures before the connection is considered down.
const DefaultFailureThreshold = 3

// DefaultCooldown is how long the circuit stays open before a probe
// is allowed through.
const DefaultCooldown = 30 * time.Second

// CircuitState represents the state of the connection circuit.
type CircuitState int

const (
	// CircuitClosed is the normal state - the server is reachable.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the server is failing - refresh work is suppressed.
	CircuitOpen
	// CircuitHalfOpen means the cooldown expired - one probe is allowed.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
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

// circuitBreaker tracks consecutive transport failures to the server.
type circuitBreaker struct {
	mu           sync.Mutex
	threshold    int           // consecutive failures to open circuit
	cooldown     time.Duration // time to wait before half-open probe
	failureCount int           // current consecutive failures
	state        CircuitState  // current state
	openedAt     time.Time     // when the circuit was opened
}

// newCircuitBreaker creates a circuitBreaker with the given threshold and cooldown.
func newCircuitBreaker(threshold int, cooldown time.Duration) *circuitBreaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &circuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		state:     CircuitClosed,
	}
}

// Allow checks if a probe should be attempted.
// Returns true if the probe should proceed, false if it should be skipped.
func (cb *circuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if time.Since(cb.openedAt) >= cb.cooldown {
			cb.state = CircuitHalfOpen
			return true
		}
		return false
	case CircuitHalfOpen:
		return true
	default:
		return true
	}
}

// RecordSuccess records a successful call, closing the circuit.
func (cb *circuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	cb.state = CircuitClosed
}

// RecordFailure records a failed call.
// If the failure count reaches the threshold, the circuit opens.
func (cb *circuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	if cb.failureCount >= cb.threshold {
		cb.state = CircuitOpen
		cb.openedAt = time.Now()
	}
}

// State returns the current state of the circuit.
func (cb *circuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen && time.Since(cb.openedAt) >= cb.cooldown {
		cb.state = CircuitHalfOpen
	}
	return cb.state
}

// FailureCount returns the current consecutive failure count.
func (cb *circuitBreaker) FailureCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failureCount
}
