package llm

import (
	"context"
	"errors"
	"time"

	"github.com/promptlab/modelrouter/internal/domain/repository"
	"github.com/promptlab/modelrouter/internal/infrastructure/resilience"
)

// GuardedEngine puts a circuit breaker and a per-call timeout in front of an engine.
// Rejections surface as *repository.EngineError wrapping resilience.ErrCircuitOpen.
type GuardedEngine struct {
	inner   repository.CompletionEngine
	breaker *resilience.CircuitBreaker
	timeout time.Duration
}

// NewGuardedEngine wraps inner. A zero timeout leaves the caller's deadline alone.
func NewGuardedEngine(inner repository.CompletionEngine, breaker *resilience.CircuitBreaker, timeout time.Duration) *GuardedEngine {
	return &GuardedEngine{inner: inner, breaker: breaker, timeout: timeout}
}

func (g *GuardedEngine) Generate(ctx context.Context, req repository.CompletionRequest) (*repository.Completion, error) {
	var out *repository.Completion
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		if g.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		c, err := g.inner.Generate(ctx, req)
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, &repository.EngineError{Engine: g.inner.Name(), Op: "generate", Err: err}
		}
		return nil, err
	}
	return out, nil
}

func (g *GuardedEngine) Name() string {
	return g.inner.Name()
}

// State reports the breaker state.
func (g *GuardedEngine) State() resilience.State {
	return g.breaker.CurrentState()
}
