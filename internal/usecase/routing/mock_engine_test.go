package routing

import (
	"context"
	"sync"

	"github.com/promptlab/modelrouter/internal/domain/repository"
)

// funcEngine implements repository.CompletionEngine with a pluggable handler.
type funcEngine struct {
	name string
	fn   func(ctx context.Context, req repository.CompletionRequest) (*repository.Completion, error)

	mu    sync.Mutex
	calls []repository.CompletionRequest
}

func (f *funcEngine) Generate(ctx context.Context, req repository.CompletionRequest) (*repository.Completion, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.fn(ctx, req)
}

func (f *funcEngine) Name() string { return f.name }

func (f *funcEngine) Calls() []repository.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]repository.CompletionRequest(nil), f.calls...)
}

func echoEngine() *funcEngine {
	return &funcEngine{
		name: "echo",
		fn: func(_ context.Context, req repository.CompletionRequest) (*repository.Completion, error) {
			return &repository.Completion{Text: "echo: " + req.User, Model: "echo-1"}, nil
		},
	}
}

func mustRegistry(engine repository.CompletionEngine, specs ...BackendSpec) *Registry {
	r, err := NewRegistry(engine, specs...)
	if err != nil {
		panic(err)
	}
	return r
}
