package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/promptlab/modelrouter/internal/config"
	"github.com/promptlab/modelrouter/internal/infrastructure/server"
	"github.com/spf13/cobra"
)

var engineOverride string

var rootCmd = &cobra.Command{
	Use:   "modelrouter",
	Short: "Route prompts to specialised LLM backends",
	Long: `modelrouter classifies prompts, routes them to a general, technical, creative
or business backend, compares backends and sampling parameters side by side,
and serves the same operations over a REST API.`,
	SilenceUsage: true,
}

// loadApp builds the dependency graph for one-shot commands. Tests replace it.
var loadApp = func(ctx context.Context, withStore bool) (*server.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return server.Build(ctx, cfg, withStore)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if engineOverride != "" {
		cfg.Engine = engineOverride
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// withApp runs fn against a freshly built app and releases it afterwards.
func withApp(cmd *cobra.Command, withStore bool, fn func(*server.App) error) error {
	app, err := loadApp(cmd.Context(), withStore)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()
	return fn(app)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&engineOverride, "engine", "", "Completion engine to use (ollama or gemini), overrides MR_ENGINE")
}
