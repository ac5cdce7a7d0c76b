package risk

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromPricesSimpleReturns(t *testing.T) {
	s, err := FromPrices([]float64{100, 110, 99}, PeriodDaily)
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	v := s.Values()
	assert.InDelta(t, 0.10, v[0], 1e-12)
	assert.InDelta(t, -0.10, v[1], 1e-12)
	assert.Equal(t, []float64{100, 110, 99}, s.Prices())
	assert.Equal(t, PeriodDaily, s.Period())
}

func TestFromPricesLogReturns(t *testing.T) {
	s, err := FromPrices([]float64{100, 200}, PeriodWeekly, WithLogReturns())
	require.NoError(t, err)
	assert.InDelta(t, math.Ln2, s.Values()[0], 1e-12)
	assert.Equal(t, PeriodWeekly, s.Period())
}

func TestFromPricesRejectsShortInput(t *testing.T) {
	_, err := FromPrices([]float64{100}, PeriodDaily)
	require.ErrorIs(t, err, ErrInsufficientData)

	_, err = FromPrices(nil, PeriodDaily)
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestFromPricesRejectsNonPositive(t *testing.T) {
	for _, prices := range [][]float64{
		{100, 0, 101},
		{100, -5},
		{math.NaN(), 100},
		{100, math.Inf(1)},
	} {
		_, err := FromPrices(prices, PeriodDaily)
		assert.ErrorIs(t, err, ErrInvalidValue, "prices %v", prices)
	}
}

func TestFromReturnsValidation(t *testing.T) {
	_, err := FromReturns([]float64{0.01}, PeriodDaily)
	require.ErrorIs(t, err, ErrInsufficientData)

	_, err = FromReturns([]float64{0.01, math.NaN(), 0.02}, PeriodDaily)
	require.ErrorIs(t, err, ErrInvalidValue)

	_, err = FromReturns([]float64{0.01, math.Inf(-1)}, PeriodDaily)
	require.ErrorIs(t, err, ErrInvalidValue)

	_, err = FromReturns([]float64{0.01, 0.02}, Period("2d"))
	require.ErrorIs(t, err, ErrInvalidParameter)

	s, err := FromReturns([]float64{0.01, 0.02}, "")
	require.NoError(t, err)
	assert.Equal(t, PeriodDaily, s.Period())
}

func TestSeriesIsImmutable(t *testing.T) {
	in := []float64{0.01, -0.02, 0.03}
	s, err := FromReturns(in, PeriodDaily)
	require.NoError(t, err)

	in[0] = 99
	out := s.Values()
	out[1] = 99

	assert.Equal(t, []float64{0.01, -0.02, 0.03}, s.Values())

	_, err = HistoricalVaR(s, 0.95)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.01, -0.02, 0.03}, s.Values(), "quantile metrics must not reorder the series")
}

func TestTimestamps(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	ts := []time.Time{day(2), day(3), day(4)}

	s, err := FromPrices([]float64{10, 11, 12}, PeriodDaily, WithTimestamps(ts))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(3), day(4)}, s.Timestamps())

	got, ok := s.TimeAt(1)
	require.True(t, ok)
	assert.True(t, got.Equal(day(4)))
	_, ok = s.TimeAt(2)
	assert.False(t, ok)

	_, err = FromPrices([]float64{10, 11, 12}, PeriodDaily, WithTimestamps(ts[:2]))
	require.ErrorIs(t, err, ErrInvalidValue)

	_, err = FromReturns([]float64{0.1, 0.2}, PeriodDaily, WithTimestamps([]time.Time{day(3), day(3)}))
	require.ErrorIs(t, err, ErrInvalidValue)

	plain, err := FromReturns([]float64{0.1, 0.2}, PeriodDaily)
	require.NoError(t, err)
	assert.Nil(t, plain.Timestamps())
	assert.Nil(t, plain.Prices())
}

func TestParsePeriod(t *testing.T) {
	cases := map[string]Period{
		"":        PeriodDaily,
		"1d":      PeriodDaily,
		"Weekly":  PeriodWeekly,
		"1wk":     PeriodWeekly,
		"monthly": PeriodMonthly,
	}
	for in, want := range cases {
		got, err := ParsePeriod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePeriod("5m")
	require.ErrorIs(t, err, ErrInvalidParameter)

	assert.Equal(t, 252, PeriodDaily.AnnualisationFactor())
	assert.Equal(t, 52, PeriodWeekly.AnnualisationFactor())
	assert.Equal(t, 12, PeriodMonthly.AnnualisationFactor())
}
