package logsink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/resilience"
)

// Guarded wraps a remote Writer with a circuit breaker and a per-batch
// timeout. While the breaker is open batches fail immediately with
// ErrSinkUnavailable instead of waiting on an unreachable backend.
//
// Calls into the wrapped Writer never overlap. A Write abandoned at its
// timeout keeps the writer until it returns; the next Write and Close wait
// for it.
type Guarded struct {
	name    string
	breaker *resilience.CircuitBreaker
	timeout time.Duration

	mu     sync.Mutex
	next   Writer
	closed bool
}

var errGuardedClosed = errors.New("writer closed")

// NewGuarded wraps next. m may be nil.
func NewGuarded(name string, next Writer, timeout time.Duration, m *metrics.Metrics) *Guarded {
	cfg := resilience.CircuitBreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     10 * time.Second,
	}
	if m != nil {
		m.CircuitBreakerState.WithLabelValues(name).Set(float64(resilience.StateClosed))
		cfg.OnStateChange = func(name string, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	return &Guarded{
		name:    name,
		next:    next,
		breaker: resilience.NewCircuitBreaker(name, cfg),
		timeout: timeout,
	}
}

func (g *Guarded) Write(ctx context.Context, lines []string) error {
	err := g.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, g.timeout, g.name, func(ctx context.Context) error {
			g.mu.Lock()
			defer g.mu.Unlock()
			if g.closed {
				return errGuardedClosed
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			return g.next.Write(ctx, lines)
		})
	})
	if err != nil {
		return fmt.Errorf("%s sink: %w: %w", g.name, apperrors.ErrSinkUnavailable, err)
	}
	return nil
}

// State reports the breaker state.
func (g *Guarded) State() resilience.State {
	return g.breaker.GetState()
}

// Close waits for any in-flight Write, then closes the wrapped Writer once.
func (g *Guarded) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	return g.next.Close()
}
