package predictor

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling the backend while the breaker
// is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState is the breaker position.
type CircuitBreakerState int

const (
	// StateClosed passes every request through.
	StateClosed CircuitBreakerState = iota
	// StateOpen rejects requests until the cooldown elapses.
	StateOpen
	// StateHalfOpen lets one probe request through.
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// CircuitBreaker opens after maxFailures consecutive failures and probes
// again after cooldown.
type CircuitBreaker struct {
	mu          sync.Mutex
	state       CircuitBreakerState
	failures    int
	maxFailures int
	cooldown    time.Duration
	openedAt    time.Time
	now         func() time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(maxFailures int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures: max(maxFailures, 1),
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Call runs fn unless the breaker is open.
func (cb *CircuitBreaker) Call(fn func() error) error {
	cb.mu.Lock()
	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err == nil {
		cb.failures = 0
		cb.state = StateClosed
		return nil
	}
	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
		cb.state = StateOpen
		cb.openedAt = cb.now()
	}
	return err
}

// State returns the current position.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

type breakerBackend struct {
	next Backend
	cb   *CircuitBreaker
}

// CircuitBreakerMiddleware wraps a backend with a breaker. Cancellations
// of the caller's context do not count as failures.
func CircuitBreakerMiddleware(cb *CircuitBreaker) Middleware {
	return func(next Backend) Backend {
		return &breakerBackend{next: next, cb: cb}
	}
}

func (b *breakerBackend) Generate(ctx context.Context, req Request) (Response, error) {
	var (
		resp     Response
		innerErr error
	)
	err := b.cb.Call(func() error {
		resp, innerErr = b.next.Generate(ctx, req)
		if innerErr != nil && errors.Is(innerErr, context.Canceled) {
			return nil
		}
		return innerErr
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return Response{}, NewProviderError("circuit_breaker", ErrorTypeUnknown, 0, "", ErrCircuitOpen)
		}
		return Response{}, err
	}
	return resp, innerErr
}

func (b *breakerBackend) Model() string { return b.next.Model() }
