package cmd

import (
	"fmt"
	"sort"

	"FinRisk/internal/di"
	"FinRisk/internal/domain/models"

	"github.com/spf13/cobra"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Copy provider prices into ClickHouse",
		Long: `Fetches the configured universe and date range from Yahoo (or the CSV directory
when data.source is csv) and writes the closes into clickhouse.table. A later run
with data.source=clickhouse reads them back without calling the provider.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			start, err := cfg.Start()
			if err != nil {
				return err
			}
			end, err := cfg.End()
			if err != nil {
				return err
			}

			ingester, cleanup, err := di.InitializePriceIngester(cfg)
			if err != nil {
				return fmt.Errorf("ingest initialization failed: %w", err)
			}
			defer cleanup()

			res, err := ingester.Ingest(cmd.Context(), models.DataRequest{
				Tickers:    cfg.Universe.Tickers,
				Start:      start,
				End:        end,
				Interval:   cfg.Data.Interval,
				AutoAdjust: cfg.Data.AutoAdjust,
			})
			if err != nil {
				return err
			}

			tickers := make([]string, 0, len(res.Rows))
			for t := range res.Rows {
				tickers = append(tickers, t)
			}
			sort.Strings(tickers)
			for _, t := range tickers {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d rows\n", t, res.Rows[t])
			}
			return nil
		},
	}
}
