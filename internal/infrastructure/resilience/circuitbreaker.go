package resilience

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Failing, reject calls
	StateHalfOpen              // One probe call in flight
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards one completion engine.
// Transitions: Closed → Open (after failThreshold consecutive failures)
//
//	Open → HalfOpen (after openTimeout expires, for a single probe)
//	HalfOpen → Closed (on success) or Open (on failure)
//
// Caller cancellations do not count as failures.
type CircuitBreaker struct {
	name          string
	mu            sync.Mutex
	state         State
	failCount     int
	failThreshold int
	openTimeout   time.Duration
	openedAt      time.Time
	now           func() time.Time
}

// NewCircuitBreaker creates a circuit breaker with the given thresholds.
// A threshold below one is treated as one.
func NewCircuitBreaker(name string, failThreshold int, openTimeout time.Duration) *CircuitBreaker {
	if failThreshold < 1 {
		failThreshold = 1
	}
	return &CircuitBreaker{
		name:          name,
		state:         StateClosed,
		failThreshold: failThreshold,
		openTimeout:   openTimeout,
		now:           time.Now,
	}
}

// Execute runs fn through the circuit breaker.
// Returns ErrCircuitOpen if the circuit is open, or a probe is already running.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(ctx, err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) <= cb.openTimeout {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		log.Printf("[Breaker] 🔌 '%s' half-open, sending probe", cb.name)
		return nil
	case StateHalfOpen:
		return ErrCircuitOpen
	default:
		return nil
	}
}

func (cb *CircuitBreaker) record(ctx context.Context, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		// The caller gave up; say nothing about the engine's health.
		if cb.state == StateHalfOpen {
			cb.state = StateOpen
		}
		return
	}

	if err != nil {
		cb.failCount++
		if cb.state == StateHalfOpen || cb.failCount >= cb.failThreshold {
			if cb.state != StateOpen {
				log.Printf("[Breaker] 🚫 '%s' opened after %d consecutive failures", cb.name, cb.failCount)
			}
			cb.state = StateOpen
			cb.openedAt = cb.now()
		}
		return
	}

	if cb.state != StateClosed {
		log.Printf("[Breaker] ✅ '%s' closed", cb.name)
	}
	cb.failCount = 0
	cb.state = StateClosed
}

// CurrentState returns the current state of the circuit breaker.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
