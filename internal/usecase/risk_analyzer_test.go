package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"FinRisk/internal/domain/models"
	"FinRisk/internal/services/risk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenario = []float64{0.01, -0.02, 0.015, -0.005, 0.02, -0.03, 0.01}

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

// pricesFrom compounds returns from 100, one close per day starting Jan 2.
func pricesFrom(returns []float64) []models.PricePoint {
	out := []models.PricePoint{{Time: day(2), Close: 100}}
	for i, r := range returns {
		out = append(out, models.PricePoint{Time: day(3 + i), Close: out[i].Close * (1 + r)})
	}
	return out
}

type fakeSource struct {
	points map[string][]models.PricePoint
	err    error
	last   models.DataRequest
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(_ context.Context, req models.DataRequest) (*models.PriceMatrix, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	for _, t := range req.Tickers {
		if len(f.points[t]) == 0 {
			return nil, fmt.Errorf("%s: %w", t, models.ErrNoPrices)
		}
	}
	return models.NewPriceMatrix(req.Tickers, f.points), nil
}

type fakeMetrics struct {
	mu           sync.Mutex
	computations map[string]int
	errors       map[string]int
	values       map[string]float64
	latencies    map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		computations: map[string]int{},
		errors:       map[string]int{},
		values:       map[string]float64{},
		latencies:    map[string]int{},
	}
}

func (m *fakeMetrics) RecordComputation(metric, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.computations[metric+"/"+result]++
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordMetricValue(scope, metric string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[scope+"/"+metric] = value
}

func (m *fakeMetrics) RecordLatency(op string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies[op]++
}

func (m *fakeMetrics) RecordCacheLookup(string) {}

func baseParams(tickers ...string) AnalyzeParams {
	return AnalyzeParams{
		RunName:          "test",
		Tickers:          tickers,
		Start:            day(1),
		End:              day(31),
		Interval:         "1d",
		ConfidenceLevels: []float64{0.95, 0.99},
	}
}

func TestAnalyzeSingleAssetMatchesDirectComputation(t *testing.T) {
	src := &fakeSource{points: map[string][]models.PricePoint{"AAA": pricesFrom(scenario)}}
	m := newFakeMetrics()
	uc := NewRiskAnalyzer(src, m, nil)

	rep, err := uc.Analyze(context.Background(), baseParams("AAA"))
	require.NoError(t, err)

	direct, err := risk.FromReturns(scenario, risk.PeriodDaily)
	require.NoError(t, err)
	wantVaR, err := risk.HistoricalVaR(direct, 0.95)
	require.NoError(t, err)
	wantVol, err := risk.DailyVolatility(direct)
	require.NoError(t, err)

	assert.NotEmpty(t, rep.ID)
	assert.Equal(t, "fake", rep.Source)
	assert.Equal(t, []float64{1}, rep.Weights)
	assert.Equal(t, len(scenario), rep.Observations)
	assert.Equal(t, day(3), rep.FirstReturn)
	assert.Equal(t, day(3+len(scenario)-1), rep.LastReturn)
	assert.InDelta(t, 0.03, rep.Summary["max_drawdown"], 1e-9)
	assert.InDelta(t, wantVaR, rep.Summary["historical_var@95%"], 1e-12)
	assert.InDelta(t, wantVol, rep.Summary["volatility_daily"], 1e-12)
	assert.Contains(t, rep.Summary, "parametric_var@99%")
	assert.Len(t, rep.PortfolioReturns, len(scenario))
	assert.Len(t, rep.DrawdownPath, len(scenario))
	assert.Empty(t, rep.Assets)

	// 3 single-valued metrics + 3 tail metrics at 2 levels
	assert.Len(t, rep.Portfolio, 9)
	assert.Equal(t, 2, m.computations["historical_var/ok"])
	assert.Equal(t, 1, m.latencies["analyze"])
	assert.InDelta(t, 0.03, m.values["portfolio/max_drawdown"], 1e-9)
}

func TestAnalyzeWeightedWithPerAsset(t *testing.T) {
	src := &fakeSource{points: map[string][]models.PricePoint{
		"AAA": pricesFrom(scenario),
		"BBB": pricesFrom([]float64{0.0, 0.01, 0.0, 0.01, 0.0, 0.01, 0.0}),
	}}
	m := newFakeMetrics()
	uc := NewRiskAnalyzer(src, m, nil)

	p := baseParams("AAA", "BBB")
	p.Weights = []float64{0.25, 0.75}
	p.PerAsset = true
	p.AutoAdjust = true
	rep, err := uc.Analyze(context.Background(), p)
	require.NoError(t, err)

	assert.True(t, src.last.AutoAdjust)
	assert.Equal(t, "1d", src.last.Interval)
	require.Len(t, rep.Assets, 2)
	assert.Equal(t, "AAA", rep.Assets[0].Ticker)
	assert.Equal(t, 0.75, rep.Assets[1].Weight)
	assert.InDelta(t, 0.03, models.Summarize(rep.Assets[0].Metrics)["max_drawdown"], 1e-9)
	assert.InDelta(t, 0.25*0.01+0.75*0.0, rep.PortfolioReturns[0].Value, 1e-12)
	assert.Contains(t, m.values, "BBB/volatility_daily")
}

func TestAnalyzeErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing ticker", func(t *testing.T) {
		m := newFakeMetrics()
		uc := NewRiskAnalyzer(&fakeSource{}, m, nil)
		_, err := uc.Analyze(ctx, baseParams("ZZZ"))
		assert.ErrorIs(t, err, models.ErrNoPrices)
		assert.Equal(t, 1, m.errors["fetch"])
	})

	t.Run("upstream failure", func(t *testing.T) {
		uc := NewRiskAnalyzer(&fakeSource{err: models.ErrUpstream}, nil, nil)
		_, err := uc.Analyze(ctx, baseParams("AAA"))
		assert.ErrorIs(t, err, models.ErrUpstream)
	})

	t.Run("bad weights", func(t *testing.T) {
		uc := NewRiskAnalyzer(&fakeSource{}, nil, nil)
		p := baseParams("AAA", "BBB")
		p.Weights = []float64{0.2, 0.2}
		_, err := uc.Analyze(ctx, p)
		assert.ErrorIs(t, err, risk.ErrInvalidParameter)
	})

	t.Run("inverted window", func(t *testing.T) {
		uc := NewRiskAnalyzer(&fakeSource{}, nil, nil)
		p := baseParams("AAA")
		p.Start, p.End = day(10), day(1)
		_, err := uc.Analyze(ctx, p)
		assert.ErrorIs(t, err, risk.ErrInvalidParameter)
	})

	t.Run("too few prices", func(t *testing.T) {
		src := &fakeSource{points: map[string][]models.PricePoint{"AAA": pricesFrom(scenario[:1])}}
		uc := NewRiskAnalyzer(src, nil, nil)
		_, err := uc.Analyze(ctx, baseParams("AAA"))
		assert.ErrorIs(t, err, risk.ErrInsufficientData)
	})

	t.Run("bad confidence", func(t *testing.T) {
		m := newFakeMetrics()
		src := &fakeSource{points: map[string][]models.PricePoint{"AAA": pricesFrom(scenario)}}
		uc := NewRiskAnalyzer(src, m, nil)
		p := baseParams("AAA")
		p.ConfidenceLevels = []float64{1.5}
		_, err := uc.Analyze(ctx, p)
		assert.ErrorIs(t, err, risk.ErrInvalidParameter)
		assert.Equal(t, 1, m.computations["historical_var/error"])
	})
}

func TestEvaluate(t *testing.T) {
	m := newFakeMetrics()
	uc := NewRiskAnalyzer(&fakeSource{}, m, nil)
	s, err := risk.FromReturns(scenario, risk.PeriodDaily)
	require.NoError(t, err)

	res, err := uc.Evaluate(context.Background(), s, risk.Request{Kinds: []risk.MetricKind{risk.KindMaxDrawdown}})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.InDelta(t, 0.03, res[0].Value, 1e-12)
	assert.Equal(t, 1, m.latencies["evaluate"])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = uc.Evaluate(ctx, s, risk.Request{})
	assert.True(t, errors.Is(err, context.Canceled))
}
