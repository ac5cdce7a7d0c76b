package report

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"FinRisk/internal/domain/models"
	"FinRisk/internal/services/risk"
	"FinRisk/pkg/util"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Percent formats a fraction as a percentage with two decimals ("0.0312" -> "3.12%").
// Rounding is half away from zero on the decimal value, not the binary float.
func Percent(v float64) string {
	return decimal.NewFromFloat(v).Mul(hundred).StringFixed(2) + "%"
}

// SummaryTable renders the report as an aligned text table: one row per metric label,
// one column for the portfolio and one per asset when per-asset results exist.
func SummaryTable(r *models.RiskReport) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Report %s", r.ID)
	if r.RunName != "" {
		fmt.Fprintf(&buf, " (%s)", r.RunName)
	}
	buf.WriteByte('\n')

	holdings := make([]string, len(r.Tickers))
	for i, t := range r.Tickers {
		w := 0.0
		if i < len(r.Weights) {
			w = r.Weights[i]
		}
		holdings[i] = fmt.Sprintf("%s %s", t, Percent(w))
	}
	fmt.Fprintf(&buf, "Portfolio: %s\n", strings.Join(holdings, ", "))
	fmt.Fprintf(&buf, "Window: %s -> %s, %d %s returns (%s), source %s\n\n",
		r.Start.Format(util.DateLayout), r.End.Format(util.DateLayout),
		r.Observations, r.Returns, r.Interval, r.Source)

	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := []string{"METRIC", "PORTFOLIO"}
	assetValues := make([]map[string]float64, len(r.Assets))
	for i, a := range r.Assets {
		header = append(header, a.Ticker)
		assetValues[i] = models.Summarize(a.Metrics)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	for _, res := range r.Portfolio {
		label := res.Label()
		row := []string{label, Percent(res.Value)}
		for _, av := range assetValues {
			if v, ok := av[label]; ok {
				row = append(row, Percent(v))
			} else {
				row = append(row, "-")
			}
		}
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}
	_ = tw.Flush()
	return buf.String()
}

// ResultsTable renders bare metric results, one row per label.
func ResultsTable(results []risk.Result) string {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "METRIC\tVALUE\tOBS\t")
	for _, res := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t\n", res.Label(), Percent(res.Value), res.Params.Observations)
	}
	_ = tw.Flush()
	return buf.String()
}
