package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/promptlab/modelrouter/internal/infrastructure/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		return server.New(cfg).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
