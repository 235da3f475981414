package cli

import (
	"strings"

	"github.com/promptlab/modelrouter/internal/infrastructure/server"
	"github.com/spf13/cobra"
)

var routeTask string

var routeCmd = &cobra.Command{
	Use:   "route <input>",
	Short: "Route a prompt to the best backend and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(app *server.App) error {
			res, err := app.Routing.RouteAndInvoke(cmd.Context(), strings.Join(args, " "), routeTask)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		})
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare <prompt>",
	Short: "Send a prompt to every backend concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(app *server.App) error {
			return printJSON(cmd.OutOrStdout(), app.Routing.CompareAll(cmd.Context(), strings.Join(args, " ")))
		})
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the registered backends",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(app *server.App) error {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"backends": app.Routing.ListBackends(),
				"provider": app.Engines.Provider,
				"models":   app.Engines.Models,
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(routeCmd, compareCmd, modelsCmd)

	routeCmd.Flags().StringVarP(&routeTask, "task", "t", "", "Explicit task type (technical, creative, business, ...); skips classification")
}
