// Package resilience provides retry and circuit breaker helpers for calls to
// external services.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when a call is rejected because the circuit is open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// CircuitBreaker stops calling a service after a run of consecutive
// failures, then lets a single probe through once the cool-down elapses.
type CircuitBreaker struct {
	name      string
	threshold int
	coolDown  time.Duration

	mu       sync.Mutex
	failures int
	openedAt time.Time
	open     bool
	probing  bool

	nowFunc func() time.Time
}

// NewCircuitBreaker creates a breaker for the named service. threshold <= 0
// defaults to 5, coolDown <= 0 defaults to 30s.
func NewCircuitBreaker(name string, threshold int, coolDown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if coolDown <= 0 {
		coolDown = 30 * time.Second
	}
	return &CircuitBreaker{
		name:      name,
		threshold: threshold,
		coolDown:  coolDown,
		nowFunc:   time.Now,
	}
}

// ExecuteVal runs fn unless the circuit is open. Context cancellation is not
// counted as a failure of the service.
func ExecuteVal[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !cb.allow() {
		return zero, eris.Wrapf(ErrCircuitOpen, "resilience: %s", cb.name)
	}
	val, err := fn(ctx)
	if err != nil && ctx.Err() != nil {
		cb.release()
		return val, err
	}
	cb.record(err)
	return val, err
}

// Open reports whether calls are currently rejected.
func (cb *CircuitBreaker) Open() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.open && cb.nowFunc().Sub(cb.openedAt) < cb.coolDown
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if !cb.open {
		return true
	}
	if cb.probing || cb.nowFunc().Sub(cb.openedAt) < cb.coolDown {
		return false
	}
	cb.probing = true
	return true
}

func (cb *CircuitBreaker) release() {
	cb.mu.Lock()
	cb.probing = false
	cb.mu.Unlock()
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false

	if err == nil {
		if cb.open {
			zap.L().Info("circuit closed", zap.String("service", cb.name))
		}
		cb.failures = 0
		cb.open = false
		return
	}

	cb.failures++
	if cb.open || cb.failures >= cb.threshold {
		if !cb.open {
			zap.L().Warn("circuit opened",
				zap.String("service", cb.name),
				zap.Int("consecutive_failures", cb.failures),
				zap.Error(err),
			)
		}
		cb.open = true
		cb.openedAt = cb.nowFunc()
	}
}
