package llm

import (
	"errors"
	"log"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the upstream LLM is considered down.
var ErrCircuitOpen = errors.New("circuit breaker open")

// CircuitState represents the state of the circuit breaker
type CircuitState string

const (
	StateClosed   CircuitState = "closed"    // Normal operation
	StateOpen     CircuitState = "open"      // Failing, reject requests
	StateHalfOpen CircuitState = "half-open" // Testing if service recovered
)

// CircuitBreaker stops hammering a failing Ollama endpoint: after
// failureThreshold consecutive failures it rejects calls for timeout, then
// lets a few probes through before closing again.
type CircuitBreaker struct {
	mu                   sync.RWMutex
	state                CircuitState
	failureCount         int
	consecutiveSuccesses int
	lastFailureTime      time.Time

	failureThreshold int
	successThreshold int
	timeout          time.Duration
}

// NewCircuitBreaker creates a breaker with the given configuration.
func NewCircuitBreaker(failureThreshold int, timeout time.Duration) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 3
	}
	if timeout < time.Second {
		timeout = time.Minute
	}
	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		successThreshold: 3,
		timeout:          timeout,
	}
}

// Allow reports whether a request may proceed right now.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.lastFailureTime) > cb.timeout {
			cb.setState(StateHalfOpen)
			cb.consecutiveSuccesses = 0
			return nil
		}
		return ErrCircuitOpen
	}
	return nil
}

// Record feeds a request outcome back into the breaker.
func (cb *CircuitBreaker) Record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failureCount++
		cb.consecutiveSuccesses = 0
		cb.lastFailureTime = time.Now()
		switch cb.state {
		case StateClosed:
			if cb.failureCount >= cb.failureThreshold {
				cb.setState(StateOpen)
			}
		case StateHalfOpen:
			cb.setState(StateOpen)
		}
		return
	}

	cb.consecutiveSuccesses++
	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		if cb.consecutiveSuccesses >= cb.successThreshold {
			cb.setState(StateClosed)
			cb.failureCount = 0
		}
	}
}

func (cb *CircuitBreaker) setState(newState CircuitState) {
	if cb.state != newState {
		log.Printf("[CircuitBreaker] State transition: %s -> %s", cb.state, newState)
	}
	cb.state = newState
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// IsOpen returns true if the circuit is open
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.State() == StateOpen
}

// Reset manually returns the breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(StateClosed)
	cb.failureCount = 0
	cb.consecutiveSuccesses = 0
}
