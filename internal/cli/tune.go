package cli

import (
	"fmt"
	"strings"

	"github.com/promptlab/modelrouter/internal/infrastructure/server"
	"github.com/promptlab/modelrouter/internal/usecase/routing"
	"github.com/spf13/cobra"
)

var sweepTemperatures []float64

var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Compare sampling parameters on the general backend",
}

var tuneCompareCmd = &cobra.Command{
	Use:   "compare <prompt>",
	Short: "Run a prompt under the conservative, balanced and creative profiles",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(app *server.App) error {
			return printJSON(cmd.OutOrStdout(), app.Routing.CompareParameterProfiles(cmd.Context(), strings.Join(args, " ")))
		})
	},
}

var tuneSweepCmd = &cobra.Command{
	Use:   "sweep <prompt>",
	Short: "Run a prompt once per temperature",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(sweepTemperatures) > routing.MaxSweepTemperatures {
			return fmt.Errorf("at most %d temperatures per sweep, got %d", routing.MaxSweepTemperatures, len(sweepTemperatures))
		}
		for _, t := range sweepTemperatures {
			if t < 0 || t > 2 {
				return fmt.Errorf("temperature %v out of range [0, 2]", t)
			}
		}
		return withApp(cmd, false, func(app *server.App) error {
			return printJSON(cmd.OutOrStdout(), app.Routing.SweepTemperature(cmd.Context(), strings.Join(args, " "), sweepTemperatures))
		})
	},
}

var tuneRecommendCmd = &cobra.Command{
	Use:   "recommend [use-case]",
	Short: "Show recommended parameters for a use case, or list all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles := routing.NewParameterProfileStore()
		if len(args) == 0 {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"useCases": profiles.UseCases(),
				"guide":    profiles.ParameterGuide(),
			})
		}
		return printJSON(cmd.OutOrStdout(), profiles.Recommend(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(tuneCmd)
	tuneCmd.AddCommand(tuneCompareCmd, tuneSweepCmd, tuneRecommendCmd)

	tuneSweepCmd.Flags().Float64SliceVar(&sweepTemperatures, "temperatures", nil, "Comma separated temperatures (default 0,0.3,0.7,1,1.5)")
}
