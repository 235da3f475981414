package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/promptlab/modelrouter/internal/config"
	"github.com/promptlab/modelrouter/internal/database/bunstore"
	"github.com/promptlab/modelrouter/internal/embedding"
	"github.com/promptlab/modelrouter/internal/infrastructure/llm"
	"github.com/promptlab/modelrouter/internal/infrastructure/metrics"
	httpserver "github.com/promptlab/modelrouter/internal/interface/http"
	"github.com/promptlab/modelrouter/internal/usecase/chat"
	"github.com/promptlab/modelrouter/internal/usecase/routing"
)

const shutdownTimeout = 10 * time.Second

// App is the fully wired object graph behind both the HTTP server and the CLI.
type App struct {
	Config   *config.Config
	Metrics  *metrics.Collectors
	Engines  *llm.Engines
	Registry *routing.Registry
	Routing  *routing.Service
	Chat     *chat.Service
	Memory   *chat.MemoryChat
	Embed    *embedding.Service
	Store    *bunstore.BunStore
}

// Build initializes every dependency. The store is opened only when withStore is set,
// so one-shot CLI commands do not touch the database.
func Build(ctx context.Context, cfg *config.Config, withStore bool) (*App, error) {
	// ==========================================
	// Initialize Dependencies (Dependency Injection)
	// ==========================================

	m := metrics.New()

	engines, err := llm.NewEngines(ctx, cfg, m)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize engines: %w", err)
	}

	registry, err := routing.NewRegistry(engines.Completion, routing.DefaultBackendSpecs()...)
	if err != nil {
		_ = engines.Close()
		return nil, err
	}
	log.Printf("[System] 🛤️  Registry initialized with %d backends on %s", registry.Len(), engines.Completion.Name())

	svc, err := routing.NewService(registry, routing.NewParameterProfileStore())
	if err != nil {
		_ = engines.Close()
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Metrics:  m,
		Engines:  engines,
		Registry: registry,
		Routing:  svc,
		Chat:     chat.NewService(registry),
		Embed:    embedding.NewService(engines.Embedding, embedding.DefaultBatchSize),
	}

	if withStore {
		store, err := bunstore.OpenSQLite(cfg.DBPath)
		if err != nil {
			_ = engines.Close()
			return nil, err
		}
		app.Store = store
		app.Memory = chat.NewMemoryChat(engines.Completion, store, cfg.MemoryWindow)
		log.Printf("[System] 💾 Conversation store opened at %s", cfg.DBPath)
	}

	return app, nil
}

// Close releases the store and the provider client.
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if err := a.Engines.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close engines: %w", err))
	}
	return errors.Join(errs...)
}

// Handler returns the HTTP API for the app.
func (a *App) Handler() http.Handler {
	deps := httpserver.Deps{
		Routing:    a.Routing,
		Chat:       a.Chat,
		Memory:     a.Memory,
		Embeddings: a.Embed,
		Metrics:    a.Metrics,
		Provider:   a.Engines.Provider,
		Models:     a.Engines.Models,
	}
	if a.Store != nil {
		deps.DB = a.Store
	}
	return httpserver.NewServer(deps).Handler()
}

type Server struct {
	cfg        *config.Config
	httpServer *http.Server
}

func New(cfg *config.Config) *Server {
	return &Server{
		cfg: cfg,
	}
}

// Run serves the API until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	app, err := Build(ctx, s.cfg, true)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			log.Printf("[Warning] Failed to release resources: %v", closeErr)
		}
	}()

	// ==========================================
	// Initialize and Start HTTP Server
	// ==========================================

	s.httpServer = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("[System] 🌐 Starting REST API Server on %s", s.cfg.HTTPAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Println("[System] 🛑 Shutdown signal received. Draining connections...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Error] HTTP shutdown error: %v", err)
	}

	log.Println("[System] ✅ Server stopped gracefully.")
	return nil
}
