package llm

import (
	"context"
	"fmt"
	"log"

	"github.com/promptlab/modelrouter/internal/config"
	"github.com/promptlab/modelrouter/internal/domain/repository"
	"github.com/promptlab/modelrouter/internal/infrastructure/metrics"
	"github.com/promptlab/modelrouter/internal/infrastructure/resilience"
)

// Engines is the wired engine stack shared by every backend.
type Engines struct {
	Completion repository.CompletionEngine
	Embedding  repository.EmbeddingClient
	Provider   string
	Models     []string
	close      func() error
}

// Close releases the provider client, if it holds one.
func (e *Engines) Close() error {
	if e.close == nil {
		return nil
	}
	return e.close()
}

// NewEngines builds the provider selected by cfg.Engine and wraps it as
// instrumented(guarded(provider)). The embedding client is instrumented only.
func NewEngines(ctx context.Context, cfg *config.Config, m *metrics.Collectors) (*Engines, error) {
	var (
		provider repository.CompletionEngine
		embedder repository.EmbeddingClient
		models   []string
		closer   func() error
	)

	switch cfg.Engine {
	case config.EngineGemini:
		gemini, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiEmbedModel)
		if err != nil {
			return nil, err
		}
		provider, embedder, models, closer = gemini, gemini, gemini.Models(), gemini.Close
	case config.EngineOllama:
		ollama := NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel, cfg.OllamaEmbedModel, nil)
		if cfg.PullModels {
			for _, name := range ollama.Models() {
				if err := ollama.PullModel(ctx, name); err != nil {
					log.Printf("[Engines] ⚠️ Could not pull %s: %v", name, err)
				}
			}
		}
		provider, embedder, models = ollama, ollama, ollama.Models()
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}

	breaker := resilience.NewCircuitBreaker(cfg.Engine, cfg.BreakerThreshold, cfg.BreakerOpen)
	guarded := NewGuardedEngine(provider, breaker, cfg.EngineTimeout)

	log.Printf("[Engines] 🔧 Using %s (models %v)", provider.Name(), models)
	return &Engines{
		Completion: NewInstrumentedEngine(guarded, m, cfg.Engine),
		Embedding:  NewInstrumentedEmbedder(embedder, m, cfg.Engine),
		Provider:   cfg.Engine,
		Models:     models,
		close:      closer,
	}, nil
}
