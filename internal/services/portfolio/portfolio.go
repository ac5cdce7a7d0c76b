// Package portfolio turns a matrix of close prices into per-asset and
// fixed-weight portfolio return series.
package portfolio

import (
	"fmt"
	"math"

	"FinRisk/internal/domain/models"
	"FinRisk/internal/services/risk"

	"gonum.org/v1/gonum/floats"
)

// WeightTolerance is how far the weights may sum away from 1.
const WeightTolerance = 1e-6

// Portfolio is a fixed-weight basket, rebalanced every period.
type Portfolio struct {
	Tickers []string
	Weights []float64
}

// New builds a portfolio. Nil or empty weights mean equal weighting.
func New(tickers []string, weights []float64) (*Portfolio, error) {
	if len(tickers) == 0 {
		return nil, fmt.Errorf("%w: portfolio needs at least one ticker", risk.ErrInvalidParameter)
	}
	if len(weights) == 0 {
		weights = EqualWeights(len(tickers))
	}
	if len(weights) != len(tickers) {
		return nil, fmt.Errorf("%w: %d weights for %d tickers", risk.ErrInvalidParameter, len(weights), len(tickers))
	}
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: weight[%d] is %v", risk.ErrInvalidValue, i, w)
		}
	}
	if sum := floats.Sum(weights); math.Abs(sum-1) > WeightTolerance {
		return nil, fmt.Errorf("%w: weights sum to %g, want 1", risk.ErrInvalidParameter, sum)
	}
	return &Portfolio{
		Tickers: append([]string(nil), tickers...),
		Weights: append([]float64(nil), weights...),
	}, nil
}

// EqualWeights returns n weights of 1/n.
func EqualWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}

// AssetReturns derives one return series per matrix column. The matrix must already be
// aligned (no missing observations); returns carry the timestamp of their closing price.
func AssetReturns(m *models.PriceMatrix, period risk.Period, logReturns bool) ([]*risk.ReturnSeries, error) {
	if m.Rows() < 2 {
		return nil, fmt.Errorf("%w: %d aligned prices, need at least 2", risk.ErrInsufficientData, m.Rows())
	}
	opts := []risk.SeriesOption{risk.WithTimestamps(m.Index)}
	if logReturns {
		opts = append(opts, risk.WithLogReturns())
	}
	out := make([]*risk.ReturnSeries, len(m.Tickers))
	for j, t := range m.Tickers {
		s, err := risk.FromPrices(m.Column(j), period, opts...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t, err)
		}
		out[j] = s
	}
	return out, nil
}

// Returns combines per-asset series (in Tickers order) into the portfolio series
// r_p[t] = sum_j w_j * r_j[t]. For log returns this is the usual first-order approximation.
func (p *Portfolio) Returns(assets []*risk.ReturnSeries) (*risk.ReturnSeries, error) {
	if len(assets) != len(p.Weights) {
		return nil, fmt.Errorf("%w: %d asset series for %d weights", risk.ErrInvalidParameter, len(assets), len(p.Weights))
	}
	n := assets[0].Len()
	cols := make([][]float64, len(assets))
	for j, a := range assets {
		if a.Len() != n {
			return nil, fmt.Errorf("%w: %s has %d returns, %s has %d", risk.ErrInvalidValue, p.Tickers[j], a.Len(), p.Tickers[0], n)
		}
		cols[j] = a.Values()
	}

	values := make([]float64, n)
	row := make([]float64, len(assets))
	for i := 0; i < n; i++ {
		for j := range cols {
			row[j] = cols[j][i]
		}
		values[i] = floats.Dot(row, p.Weights)
	}

	var opts []risk.SeriesOption
	if ts := assets[0].Timestamps(); ts != nil {
		opts = append(opts, risk.WithTimestamps(ts))
	}
	return risk.FromReturns(values, assets[0].Period(), opts...)
}
