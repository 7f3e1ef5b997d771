package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// CircuitState represents the current state of the circuit breaker.
type CircuitState int

const (
	// CircuitClosed means requests flow through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the circuit has tripped and requests are rejected.
	CircuitOpen
	// CircuitHalfOpen means one probe request is in flight.
	CircuitHalfOpen
)

// String returns a human-readable string for the circuit state.
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

// ErrCircuitOpen is returned without calling the provider while the circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Threshold is the number of consecutive failures before the circuit trips.
	Threshold int
	// ResetAfter is how long the circuit stays open before a probe is allowed.
	ResetAfter time.Duration
}

// DefaultCircuitBreakerConfig trips after 5 consecutive failures and probes after 30s.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Threshold:  5,
		ResetAfter: 30 * time.Second,
	}
}

// CircuitBreaker trips open after N consecutive failures and lets a single
// probe through once ResetAfter has elapsed.
type CircuitBreaker struct {
	mu               sync.Mutex
	consecutiveFails int
	threshold        int
	resetAfter       time.Duration
	lastFailure      time.Time
	state            CircuitState
	now              func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		threshold:  config.Threshold,
		resetAfter: config.ResetAfter,
		state:      CircuitClosed,
		now:        time.Now,
	}
}

// Allow reports whether a request may proceed.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return nil
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailure) > cb.resetAfter {
			cb.state = CircuitHalfOpen
			return nil
		}
		return fmt.Errorf("%w: failed %d times, last failure %v ago", ErrCircuitOpen,
			cb.consecutiveFails, cb.now().Sub(cb.lastFailure).Round(time.Second))
	default:
		return fmt.Errorf("%w: probe in flight", ErrCircuitOpen)
	}
}

// RecordSuccess resets the failure count and closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails = 0
	cb.state = CircuitClosed
}

// RecordFailure increments the failure count and trips the circuit if threshold is reached.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails++
	cb.lastFailure = cb.now()

	if cb.state == CircuitHalfOpen || cb.consecutiveFails >= cb.threshold {
		cb.state = CircuitOpen
	}
}

// ConsecutiveFailures returns the failure count since the last success.
func (cb *CircuitBreaker) ConsecutiveFailures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.consecutiveFails
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// BreakerClient short-circuits calls to an LLMClient whose provider keeps
// failing. Expansion is best-effort, so failing fast beats waiting out a timeout.
type BreakerClient struct {
	LLMClient
	breaker *CircuitBreaker
}

// NewBreakerClient wraps client with breaker.
func NewBreakerClient(client LLMClient, breaker *CircuitBreaker) *BreakerClient {
	return &BreakerClient{LLMClient: client, breaker: breaker}
}

// GenerateResponse checks the breaker, calls the wrapped client and records
// the outcome. Cancellation by the caller is not counted as a failure.
func (b *BreakerClient) GenerateResponse(ctx context.Context, prompt, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	if err := b.breaker.Allow(); err != nil {
		return nil, err
	}

	result, err := b.LLMClient.GenerateResponse(ctx, prompt, systemMessage, temperature)
	switch {
	case err == nil:
		b.breaker.RecordSuccess()
	case errors.Is(ctx.Err(), context.Canceled):
		b.breaker.ReleaseProbe()
	default:
		b.breaker.RecordFailure()
	}
	return result, err
}

// ReleaseProbe returns a half-open circuit to open without counting a
// failure, so the next request may probe again.
func (cb *CircuitBreaker) ReleaseProbe() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitHalfOpen {
		cb.state = CircuitOpen
	}
}
