package risk

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeAllDefaults(t *testing.T) {
	s := mustReturns(t, tailReturns)

	res, err := ComputeAll(s, Request{ConfidenceLevels: []float64{0.95, 0.99}})
	require.NoError(t, err)
	// 3 plain metrics + 3 tail metrics at 2 levels
	require.Len(t, res, 9)

	byLabel := map[string]Result{}
	for _, r := range res {
		byLabel[r.Label()] = r
		assert.Equal(t, 10, r.Params.Observations)
		assert.Equal(t, PeriodDaily, r.Params.Period)
	}

	ann := byLabel["volatility_annualised"]
	assert.Equal(t, 252, ann.Params.AnnualisationFactor)

	dd := byLabel["max_drawdown"]
	require.NotNil(t, dd.Drawdown)
	assert.Equal(t, dd.Value, dd.Drawdown.Magnitude)

	v95, ok := byLabel["historical_var@95%"]
	require.True(t, ok)
	assert.InDelta(t, 0.0665, v95.Value, 1e-12)
	assert.Equal(t, 0.95, v95.Params.ConfidenceLevel)

	_, ok = byLabel["parametric_var@99%"]
	assert.True(t, ok)
}

func TestComputeAllSelectedKinds(t *testing.T) {
	s, err := FromReturns(tailReturns, PeriodMonthly)
	require.NoError(t, err)

	res, err := ComputeAll(s, Request{Kinds: []MetricKind{KindAnnualisedVolatility, KindHistoricalES}})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, 12, res[0].Params.AnnualisationFactor)
	assert.Equal(t, 0.95, res[1].Params.ConfidenceLevel)
}

func TestComputeAllFailsWithoutPartialResults(t *testing.T) {
	s := mustReturns(t, tailReturns)

	res, err := ComputeAll(s, Request{ConfidenceLevels: []float64{0.95, 1.2}})
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Nil(t, res)

	_, err = Compute(s, MetricKind("sharpe"), Params{})
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = ComputeAll(nil, Request{})
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestComputeRejectsNonFiniteResults(t *testing.T) {
	s := mustReturns(t, []float64{1.7e308, -1.7e308})

	res, err := ComputeAll(s, Request{})
	require.ErrorIs(t, err, ErrInvalidValue)
	assert.Nil(t, res)

	// the interpolated quantile overflows even though each return is finite
	_, err = Compute(s, KindHistoricalVaR, Params{ConfidenceLevel: 0.5})
	require.ErrorIs(t, err, ErrInvalidValue)
	assert.ErrorContains(t, err, "not finite")
}

func TestResultLabel(t *testing.T) {
	cases := map[float64]string{
		0.95:  "historical_var@95%",
		0.57:  "historical_var@57%",
		0.29:  "historical_var@29%",
		0.975: "historical_var@97.5%",
		0.9:   "historical_var@90%",
	}
	for c, want := range cases {
		r := Result{Kind: KindHistoricalVaR, Params: Params{ConfidenceLevel: c}}
		assert.Equal(t, want, r.Label())
	}
	assert.Equal(t, "max_drawdown", Result{Kind: KindMaxDrawdown}.Label())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Historical_VaR ")
	require.NoError(t, err)
	assert.Equal(t, KindHistoricalVaR, k)
	assert.True(t, k.NeedsConfidence())
	assert.False(t, KindMaxDrawdown.NeedsConfidence())

	_, err = ParseKind("beta")
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestConcurrentComputationOnSharedSeries(t *testing.T) {
	s := mustReturns(t, tailReturns)
	want, err := ComputeAll(s, Request{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := ComputeAll(s, Request{})
			if err != nil {
				errs <- err
				return
			}
			for j := range got {
				if got[j].Value != want[j].Value {
					errs <- assert.AnError
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, tailReturns, s.Values())
}
