// Package cmd holds the finrisk CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"FinRisk/pkg/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultConfig = "configs/demo.yaml"

type rootOptions struct {
	cfgFile string
	verbose bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "finrisk",
		Short: "Portfolio risk statistics: volatility, drawdown, VaR and ES",
		Long: `finrisk computes risk statistics for a configured portfolio.

Commands:
    run       one batch run; artifacts land in a fresh run directory
    serve     HTTP API until SIGINT/SIGTERM
    metrics   one-off computation on inline returns or prices
    ingest    copy provider prices into ClickHouse
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// a missing .env is fine; the environment may already be set
			if err := godotenv.Load(); err != nil && opts.verbose {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: .env file not found, using environment variables")
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", defaultConfig, "config file path")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newRunCmd(opts),
		newServeCmd(opts),
		newMetricsCmd(),
		newIngestCmd(opts),
	)
	return root
}

// Execute runs the root command; SIGINT/SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(o.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}
