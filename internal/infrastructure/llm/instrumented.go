package llm

import (
	"context"
	"errors"
	"time"

	"github.com/promptlab/modelrouter/internal/domain/repository"
	"github.com/promptlab/modelrouter/internal/infrastructure/metrics"
	"github.com/promptlab/modelrouter/internal/infrastructure/resilience"
)

// stateful is implemented by engines that expose a breaker state.
type stateful interface {
	State() resilience.State
}

// InstrumentedEngine counts requests and errors and times every call.
type InstrumentedEngine struct {
	inner   repository.CompletionEngine
	metrics *metrics.Collectors
	label   string
}

// NewInstrumentedEngine wraps inner, labelling its series with label.
func NewInstrumentedEngine(inner repository.CompletionEngine, m *metrics.Collectors, label string) *InstrumentedEngine {
	return &InstrumentedEngine{inner: inner, metrics: m, label: label}
}

func (e *InstrumentedEngine) Generate(ctx context.Context, req repository.CompletionRequest) (*repository.Completion, error) {
	start := time.Now()
	c, err := e.inner.Generate(ctx, req)
	elapsed := time.Since(start)

	outcome := metrics.OutcomeSuccess
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		outcome = metrics.OutcomeRejected
	case err != nil:
		outcome = metrics.OutcomeError
	}
	e.metrics.RecordEngineCall(e.label, "generate", outcome, elapsed)
	if s, ok := e.inner.(stateful); ok {
		e.metrics.SetBreakerState(e.label, int(s.State()))
	}
	return c, err
}

func (e *InstrumentedEngine) Name() string {
	return e.inner.Name()
}

// InstrumentedEmbedder does the same for an embedding client.
type InstrumentedEmbedder struct {
	inner   repository.EmbeddingClient
	metrics *metrics.Collectors
	label   string
}

func NewInstrumentedEmbedder(inner repository.EmbeddingClient, m *metrics.Collectors, label string) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{inner: inner, metrics: m, label: label}
}

func (e *InstrumentedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	v, err := e.inner.Embed(ctx, texts)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	e.metrics.RecordEngineCall(e.label, "embed", outcome, time.Since(start))
	return v, err
}

func (e *InstrumentedEmbedder) Name() string {
	return e.inner.Name()
}
