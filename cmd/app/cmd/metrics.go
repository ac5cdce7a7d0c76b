package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"FinRisk/internal/domain/models"
	"FinRisk/internal/service/report"
	"FinRisk/internal/services/risk"

	"github.com/spf13/cobra"
)

type metricsOptions struct {
	returns    []float64
	prices     []float64
	confidence []float64
	kinds      []string
	period     string
	factor     int
	logReturns bool
	asJSON     bool
}

func newMetricsCmd() *cobra.Command {
	o := &metricsOptions{}
	c := &cobra.Command{
		Use:   "metrics",
		Short: "Compute risk metrics on inline data",
		Long: `Computes the risk metrics for a return or price series given on the command line.

Examples:
  finrisk metrics --returns 0.01,-0.02,0.015,-0.005,0.02,-0.03,0.01
  finrisk metrics --prices 100,101,99.5,102 --period 1wk --confidence 0.9,0.99 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := o.compute()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if o.asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			fmt.Fprintf(out, "%d %s returns\n\n", resp.Observations, resp.Period)
			fmt.Fprint(out, report.ResultsTable(resp.Results))
			return nil
		},
	}

	f := c.Flags()
	f.Float64SliceVar(&o.returns, "returns", nil, "comma-separated period returns")
	f.Float64SliceVar(&o.prices, "prices", nil, "comma-separated close prices (returns are derived)")
	f.Float64SliceVar(&o.confidence, "confidence", []float64{0.95}, "confidence levels for VaR/ES")
	f.StringSliceVar(&o.kinds, "metric", nil, "metrics to compute (default all)")
	f.StringVar(&o.period, "period", string(risk.PeriodDaily), "sampling period: 1d, 1wk or 1mo")
	f.IntVar(&o.factor, "factor", 0, "annualisation factor (0 = derive from period)")
	f.BoolVar(&o.logReturns, "log", false, "derive log returns from --prices")
	f.BoolVar(&o.asJSON, "json", false, "print JSON instead of a table")
	c.MarkFlagsMutuallyExclusive("returns", "prices")
	c.MarkFlagsMutuallyExclusive("returns", "log")
	c.MarkFlagsOneRequired("returns", "prices")
	return c
}

func (o *metricsOptions) compute() (*models.MetricsResponse, error) {
	period, err := risk.ParsePeriod(o.period)
	if err != nil {
		return nil, err
	}

	var s *risk.ReturnSeries
	switch {
	case len(o.returns) > 0:
		s, err = risk.FromReturns(o.returns, period)
	case len(o.prices) > 0:
		var opts []risk.SeriesOption
		if o.logReturns {
			opts = append(opts, risk.WithLogReturns())
		}
		s, err = risk.FromPrices(o.prices, period, opts...)
	default:
		return nil, errors.New("one of --returns or --prices is required")
	}
	if err != nil {
		return nil, err
	}

	req := risk.Request{ConfidenceLevels: o.confidence, AnnualisationFactor: o.factor}
	for _, k := range o.kinds {
		kind, err := risk.ParseKind(k)
		if err != nil {
			return nil, err
		}
		req.Kinds = append(req.Kinds, kind)
	}

	results, err := risk.ComputeAll(s, req)
	if err != nil {
		return nil, err
	}
	return &models.MetricsResponse{
		Period:       string(period),
		Observations: s.Len(),
		Results:      results,
		Summary:      models.Summarize(results),
	}, nil
}
