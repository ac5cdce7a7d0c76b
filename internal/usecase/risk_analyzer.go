package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	"FinRisk/internal/services/portfolio"
	"FinRisk/internal/services/risk"
	applogger "FinRisk/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RiskAnalyzer loads prices, builds the portfolio return series and evaluates every risk
// metric on it.
type RiskAnalyzer struct {
	source  domrepo.PriceSource
	metrics domrepo.Metrics
	l       *applogger.Logger
	now     func() time.Time
}

func NewRiskAnalyzer(source domrepo.PriceSource, metrics domrepo.Metrics, l *applogger.Logger) *RiskAnalyzer {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &RiskAnalyzer{source: source, metrics: metrics, l: l, now: time.Now}
}

// WithLogger returns a copy of the analyzer logging to l.
func (uc *RiskAnalyzer) WithLogger(l *applogger.Logger) *RiskAnalyzer {
	cp := *uc
	cp.l = l
	return &cp
}

type AnalyzeParams struct {
	RunName             string
	Tickers             []string
	Weights             []float64 // empty = equal weights
	Start               time.Time
	End                 time.Time // exclusive
	Interval            string
	AutoAdjust          bool
	LogReturns          bool
	ConfidenceLevels    []float64
	AnnualisationFactor int // 0 = interval convention
	PerAsset            bool
}

func (uc *RiskAnalyzer) Analyze(ctx context.Context, p AnalyzeParams) (*models.RiskReport, error) {
	start := uc.now()
	if !p.Start.Before(p.End) {
		return nil, fmt.Errorf("%w: start %s must be before end %s", risk.ErrInvalidParameter,
			p.Start.Format(time.DateOnly), p.End.Format(time.DateOnly))
	}
	period, err := risk.ParsePeriod(p.Interval)
	if err != nil {
		return nil, err
	}
	port, err := portfolio.New(p.Tickers, p.Weights)
	if err != nil {
		return nil, err
	}

	req := models.DataRequest{
		Tickers:    port.Tickers,
		Start:      p.Start,
		End:        p.End,
		Interval:   string(period),
		AutoAdjust: p.AutoAdjust,
	}
	fetchStart := uc.now()
	prices, err := uc.source.Fetch(ctx, req)
	uc.metrics.RecordLatency("fetch", uc.now().Sub(fetchStart).Seconds())
	if err != nil {
		uc.metrics.RecordError("fetch")
		return nil, fmt.Errorf("fetch prices: %w", err)
	}
	aligned, err := prices.Align()
	if err != nil {
		uc.metrics.RecordError("align")
		return nil, err
	}
	uc.l.Info("prices loaded",
		applogger.String("source", uc.source.Name()),
		applogger.Strings("tickers", req.Tickers),
		applogger.Int("rows", prices.Rows()),
		applogger.Int("aligned_rows", aligned.Rows()),
	)

	assets, err := portfolio.AssetReturns(aligned, period, p.LogReturns)
	if err != nil {
		return nil, err
	}
	series, err := port.Returns(assets)
	if err != nil {
		return nil, err
	}

	rreq := risk.Request{ConfidenceLevels: p.ConfidenceLevels, AnnualisationFactor: p.AnnualisationFactor}
	results, err := uc.evaluate("portfolio", series, rreq)
	if err != nil {
		return nil, err
	}

	report := &models.RiskReport{
		ID:           uuid.NewString(),
		RunName:      p.RunName,
		GeneratedAt:  uc.now().UTC(),
		Source:       uc.source.Name(),
		Tickers:      port.Tickers,
		Weights:      port.Weights,
		Start:        p.Start,
		End:          p.End,
		Interval:     string(period),
		Returns:      returnsKind(p.LogReturns),
		Observations: series.Len(),
		Summary:      models.Summarize(results),
		Portfolio:    results,
	}
	ts := series.Timestamps()
	report.FirstReturn, report.LastReturn = ts[0], ts[len(ts)-1]
	report.PortfolioReturns = seriesPoints(ts, series.Values())
	report.DrawdownPath = seriesPoints(ts, risk.DrawdownPath(series))

	if p.PerAsset {
		report.Assets, err = uc.perAsset(ctx, port, assets, rreq)
		if err != nil {
			return nil, err
		}
	}

	uc.metrics.RecordLatency("analyze", uc.now().Sub(start).Seconds())
	uc.l.Info("portfolio analysed",
		applogger.String("report_id", report.ID),
		applogger.Int("observations", report.Observations),
		applogger.Duration("duration_ms", uc.now().Sub(start)),
	)
	return report, nil
}

// Evaluate computes metrics on a caller-supplied series (the ad-hoc API path).
func (uc *RiskAnalyzer) Evaluate(ctx context.Context, s *risk.ReturnSeries, req risk.Request) ([]risk.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := uc.now()
	defer func() { uc.metrics.RecordLatency("evaluate", uc.now().Sub(start).Seconds()) }()
	return uc.evaluate("adhoc", s, req)
}

// perAsset evaluates each constituent on its own. Series are immutable, so the
// computations share nothing and run concurrently.
func (uc *RiskAnalyzer) perAsset(ctx context.Context, port *portfolio.Portfolio, assets []*risk.ReturnSeries, req risk.Request) ([]models.AssetReport, error) {
	out := make([]models.AssetReport, len(assets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for j := range assets {
		j := j
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := uc.evaluate(port.Tickers[j], assets[j], req)
			if err != nil {
				return fmt.Errorf("%s: %w", port.Tickers[j], err)
			}
			out[j] = models.AssetReport{Ticker: port.Tickers[j], Weight: port.Weights[j], Metrics: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *RiskAnalyzer) evaluate(scope string, s *risk.ReturnSeries, req risk.Request) ([]risk.Result, error) {
	results, err := risk.ComputeAll(s, req)
	if err != nil {
		uc.metrics.RecordComputation(metricName(err), "error")
		uc.metrics.RecordError("compute")
		return nil, err
	}
	for _, r := range results {
		uc.metrics.RecordComputation(string(r.Kind), "ok")
		uc.metrics.RecordMetricValue(scope, r.Label(), r.Value)
	}
	return results, nil
}

// metricName pulls the metric kind out of a ComputeAll error ("historical_var: ...").
func metricName(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, ':'); i > 0 {
		if k, perr := risk.ParseKind(msg[:i]); perr == nil {
			return string(k)
		}
	}
	return "unknown"
}

func returnsKind(log bool) string {
	if log {
		return "log"
	}
	return "simple"
}

func seriesPoints(ts []time.Time, v []float64) []models.SeriesPoint {
	out := make([]models.SeriesPoint, len(v))
	for i := range v {
		out[i] = models.SeriesPoint{Time: ts[i], Value: v[i]}
	}
	return out
}

type nopMetrics struct{}

func (nopMetrics) RecordComputation(string, string)          {}
func (nopMetrics) RecordError(string)                        {}
func (nopMetrics) RecordMetricValue(string, string, float64) {}
func (nopMetrics) RecordLatency(string, float64)             {}
func (nopMetrics) RecordCacheLookup(string)                  {}
