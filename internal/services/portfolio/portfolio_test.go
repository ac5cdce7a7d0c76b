package portfolio

import (
	"math"
	"testing"
	"time"

	"FinRisk/internal/domain/models"
	"FinRisk/internal/services/risk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func matrix() *models.PriceMatrix {
	return models.NewPriceMatrix([]string{"AAA", "BBB"}, map[string][]models.PricePoint{
		"AAA": {{Time: day(2), Close: 100}, {Time: day(3), Close: 110}, {Time: day(4), Close: 99}},
		"BBB": {{Time: day(2), Close: 50}, {Time: day(3), Close: 50}, {Time: day(4), Close: 55}},
	})
}

func TestNewDefaultsToEqualWeights(t *testing.T) {
	p, err := New([]string{"A", "B", "C", "D"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, p.Weights)
}

func TestNewRejectsBadWeights(t *testing.T) {
	_, err := New([]string{"A", "B"}, []float64{0.5, 0.6})
	assert.ErrorIs(t, err, risk.ErrInvalidParameter)

	_, err = New([]string{"A", "B"}, []float64{1})
	assert.ErrorIs(t, err, risk.ErrInvalidParameter)

	_, err = New([]string{"A", "B"}, []float64{math.NaN(), 1})
	assert.ErrorIs(t, err, risk.ErrInvalidValue)

	_, err = New(nil, nil)
	assert.ErrorIs(t, err, risk.ErrInvalidParameter)

	// within tolerance
	_, err = New([]string{"A", "B"}, []float64{0.5, 0.5000001})
	assert.NoError(t, err)
}

func TestAssetAndPortfolioReturns(t *testing.T) {
	assets, err := AssetReturns(matrix(), risk.PeriodDaily, false)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.InDeltaSlice(t, []float64{0.10, -0.10}, assets[0].Values(), 1e-12)
	assert.InDeltaSlice(t, []float64{0, 0.10}, assets[1].Values(), 1e-12)
	assert.Equal(t, []time.Time{day(3), day(4)}, assets[0].Timestamps())

	p, err := New([]string{"AAA", "BBB"}, []float64{0.75, 0.25})
	require.NoError(t, err)
	port, err := p.Returns(assets)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.075, -0.05}, port.Values(), 1e-12)
	assert.Equal(t, []time.Time{day(3), day(4)}, port.Timestamps())
	assert.Equal(t, risk.PeriodDaily, port.Period())
}

func TestAssetReturnsLog(t *testing.T) {
	assets, err := AssetReturns(matrix(), risk.PeriodDaily, true)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(1.1), assets[0].Values()[0], 1e-12)
}

func TestAssetReturnsNeedsTwoRows(t *testing.T) {
	m := models.NewPriceMatrix([]string{"AAA"}, map[string][]models.PricePoint{
		"AAA": {{Time: day(2), Close: 100}},
	})
	_, err := AssetReturns(m, risk.PeriodDaily, false)
	assert.ErrorIs(t, err, risk.ErrInsufficientData)
}

func TestSingleAssetPortfolioMatchesAsset(t *testing.T) {
	assets, err := AssetReturns(matrix(), risk.PeriodDaily, false)
	require.NoError(t, err)
	p, err := New([]string{"AAA"}, nil)
	require.NoError(t, err)
	port, err := p.Returns(assets[:1])
	require.NoError(t, err)
	assert.Equal(t, assets[0].Values(), port.Values())
}
