package llm

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/promptlab/modelrouter/internal/config"
	"github.com/promptlab/modelrouter/internal/domain/repository"
	"github.com/promptlab/modelrouter/internal/infrastructure/metrics"
	"github.com/promptlab/modelrouter/internal/infrastructure/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEngine implements repository.CompletionEngine for wrapper tests.
type stubEngine struct {
	calls atomic.Int32
	fn    func(ctx context.Context) (*repository.Completion, error)
}

func (s *stubEngine) Generate(ctx context.Context, _ repository.CompletionRequest) (*repository.Completion, error) {
	s.calls.Add(1)
	return s.fn(ctx)
}

func (s *stubEngine) Name() string { return "stub" }

func TestGuardedEngine_OpensAndRejects(t *testing.T) {
	inner := &stubEngine{fn: func(context.Context) (*repository.Completion, error) {
		return nil, errors.New("boom")
	}}
	g := NewGuardedEngine(inner, resilience.NewCircuitBreaker("stub", 2, time.Minute), 0)

	for i := 0; i < 2; i++ {
		_, err := g.Generate(context.Background(), repository.CompletionRequest{User: "x"})
		require.Error(t, err)
	}
	assert.Equal(t, resilience.StateOpen, g.State())

	_, err := g.Generate(context.Background(), repository.CompletionRequest{User: "x"})
	var engineErr *repository.EngineError
	require.True(t, errors.As(err, &engineErr))
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(2), inner.calls.Load(), "open breaker must not reach the engine")
}

func TestGuardedEngine_Timeout(t *testing.T) {
	inner := &stubEngine{fn: func(ctx context.Context) (*repository.Completion, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return &repository.Completion{Text: "late"}, nil
		}
	}}
	g := NewGuardedEngine(inner, resilience.NewCircuitBreaker("stub", 5, time.Minute), 20*time.Millisecond)

	start := time.Now()
	_, err := g.Generate(context.Background(), repository.CompletionRequest{User: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestGuardedEngine_PassesThrough(t *testing.T) {
	inner := &stubEngine{fn: func(context.Context) (*repository.Completion, error) {
		return &repository.Completion{Text: "ok", Model: "m"}, nil
	}}
	g := NewGuardedEngine(inner, resilience.NewCircuitBreaker("stub", 1, time.Minute), time.Second)

	c, err := g.Generate(context.Background(), repository.CompletionRequest{User: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", c.Text)
	assert.Equal(t, "stub", g.Name())
}

func TestInstrumentedEngine_RecordsOutcomes(t *testing.T) {
	m := metrics.New()
	fail := true
	inner := &stubEngine{fn: func(context.Context) (*repository.Completion, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return &repository.Completion{Text: "ok"}, nil
	}}
	guarded := NewGuardedEngine(inner, resilience.NewCircuitBreaker("stub", 1, time.Minute), 0)
	e := NewInstrumentedEngine(guarded, m, "ollama")

	_, _ = e.Generate(context.Background(), repository.CompletionRequest{})
	fail = false
	_, _ = e.Generate(context.Background(), repository.CompletionRequest{})

	want := `
# HELP modelrouter_engine_errors_total Count of failed completion engine calls.
# TYPE modelrouter_engine_errors_total counter
modelrouter_engine_errors_total{engine="ollama",op="generate"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), "modelrouter_engine_errors_total"))

	// The second call hit the open breaker.
	wantRequests := `
# HELP modelrouter_engine_requests_total Count of completion engine calls by engine, operation and outcome.
# TYPE modelrouter_engine_requests_total counter
modelrouter_engine_requests_total{engine="ollama",op="generate",outcome="error"} 1
modelrouter_engine_requests_total{engine="ollama",op="generate",outcome="rejected"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(wantRequests), "modelrouter_engine_requests_total"))
}


func TestNewEngines_Ollama(t *testing.T) {
	cfg := &config.Config{
		Engine:           config.EngineOllama,
		OllamaHost:       "http://localhost:1",
		OllamaModel:      "llama3",
		OllamaEmbedModel: "nomic-embed-text",
		EngineTimeout:    time.Second,
		BreakerThreshold: 1,
		BreakerOpen:      time.Minute,
	}

	engines, err := NewEngines(context.Background(), cfg, metrics.New())
	require.NoError(t, err)
	defer func() { _ = engines.Close() }()

	assert.Equal(t, "ollama", engines.Provider)
	assert.Equal(t, []string{"llama3", "nomic-embed-text"}, engines.Models)
	assert.Equal(t, "Ollama (llama3)", engines.Completion.Name())
	assert.NotNil(t, engines.Embedding)
}

func TestNewEngines_GeminiWithoutKey(t *testing.T) {
	_, err := NewEngines(context.Background(), &config.Config{Engine: config.EngineGemini}, metrics.New())
	assert.Error(t, err)
}

func TestNewEngines_Unknown(t *testing.T) {
	_, err := NewEngines(context.Background(), &config.Config{Engine: "openai"}, metrics.New())
	assert.Error(t, err)
}
