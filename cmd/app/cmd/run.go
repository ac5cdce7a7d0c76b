package cmd

import (
	"fmt"

	"FinRisk/internal/di"

	"github.com/spf13/cobra"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one batch run",
		Long: `Fetches prices for the configured universe, computes portfolio and per-asset
risk metrics and writes metrics.json, CSV series and the drawdown chart into
{outputs.base_dir}/{timestamp}_{run_name}. The run directory is printed on success.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			pipeline, cleanup, err := di.InitializeRunPipeline(cfg)
			if err != nil {
				return fmt.Errorf("run initialization failed: %w", err)
			}
			defer cleanup()

			pipeline.SetOutput(cmd.OutOrStdout())
			res, err := pipeline.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Dir)
			return nil
		},
	}
}
