package cmd

import (
	"fmt"

	"FinRisk/internal/di"

	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int
	c := &cobra.Command{
		Use:   "serve",
		Short: "Serve the risk HTTP API",
		Long:  `Starts the HTTP API (POST /api/risk/metrics, GET /api/risk/portfolio, /healthz, /metrics). Ctrl+C stops it.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()

			return app.Run(cmd.Context())
		},
	}
	c.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return c
}
