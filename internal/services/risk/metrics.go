package risk

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Drawdown describes the deepest peak-to-trough decline of the compounded wealth path.
// Indexes refer to the return that closed the period; -1 means the initial unit of
// wealth (for PeakIndex) or that no decline happened (for TroughIndex).
type Drawdown struct {
	Magnitude   float64    `json:"magnitude"`
	PeakIndex   int        `json:"peak_index"`
	TroughIndex int        `json:"trough_index"`
	PeakTime    *time.Time `json:"peak_time,omitempty"`
	TroughTime  *time.Time `json:"trough_time,omitempty"`
}

// DailyVolatility returns the sample standard deviation of the returns (n-1 denominator).
// The name follows the daily convention; the unit is whatever the series period is.
func DailyVolatility(s *ReturnSeries) (float64, error) {
	if s.Len() < 2 {
		return 0, fmt.Errorf("%w: volatility needs at least 2 returns, got %d", ErrInsufficientData, s.Len())
	}
	lo, hi := floats.Min(s.values), floats.Max(s.values)
	if lo == hi {
		return 0, nil
	}
	// work on values scaled into [-1,1] so tiny spreads do not underflow to zero and
	// huge ones do not overflow the sum of squares
	scale := math.Max(math.Abs(lo), math.Abs(hi))
	scaled := make([]float64, len(s.values))
	for i, v := range s.values {
		scaled[i] = v / scale
	}
	vol := stat.StdDev(scaled, nil) * scale
	if !isFinite(vol) {
		return 0, fmt.Errorf("%w: volatility is not finite", ErrInvalidValue)
	}
	return vol, nil
}

// AnnualisedVolatility scales DailyVolatility by sqrt(annualisationFactor).
// Square-root-of-time scaling assumes i.i.d. returns; that is not checked.
func AnnualisedVolatility(s *ReturnSeries, annualisationFactor int) (float64, error) {
	if err := checkAnnualisation(annualisationFactor); err != nil {
		return 0, err
	}
	vol, err := DailyVolatility(s)
	if err != nil {
		return 0, err
	}
	ann := vol * math.Sqrt(float64(annualisationFactor))
	if !isFinite(ann) {
		return 0, fmt.Errorf("%w: annualised volatility is not finite", ErrInvalidValue)
	}
	return ann, nil
}

// WealthPath compounds the returns from a starting wealth of 1. The result has Len()+1
// points, W[0] = 1.
func WealthPath(s *ReturnSeries) []float64 {
	if s == nil {
		return []float64{1}
	}
	w := make([]float64, s.Len()+1)
	w[0] = 1
	for i, r := range s.values {
		w[i+1] = w[i] * (1 + r)
	}
	return w
}

// DrawdownPath returns the (non-positive) drawdown after each return, measured against the
// running peak of the wealth path including its starting point.
func DrawdownPath(s *ReturnSeries) []float64 {
	w := WealthPath(s)
	out := make([]float64, s.Len())
	peak := w[0]
	for i := 1; i < len(w); i++ {
		peak = math.Max(peak, w[i])
		out[i-1] = (w[i] - peak) / peak
	}
	return out
}

// MaxDrawdown returns the largest peak-to-trough decline as a positive magnitude, with the
// first index at which it is reached.
func MaxDrawdown(s *ReturnSeries) (Drawdown, error) {
	if s.Len() < 1 {
		return Drawdown{}, fmt.Errorf("%w: drawdown needs at least 1 return", ErrInsufficientData)
	}
	w := WealthPath(s)
	for _, v := range w {
		if !isFinite(v) {
			return Drawdown{}, fmt.Errorf("%w: wealth path is not finite", ErrInvalidValue)
		}
	}
	dd := Drawdown{PeakIndex: -1, TroughIndex: -1}
	worst := 0.0
	peak, peakAt := w[0], -1
	for i := 1; i < len(w); i++ {
		if w[i] > peak {
			peak, peakAt = w[i], i-1
			continue
		}
		if d := (w[i] - peak) / peak; d < worst {
			worst = d
			dd.TroughIndex = i - 1
			dd.PeakIndex = peakAt
		}
	}
	dd.Magnitude = math.Abs(worst)
	if t, ok := s.TimeAt(dd.TroughIndex); ok {
		dd.TroughTime = &t
	}
	if t, ok := s.TimeAt(dd.PeakIndex); ok {
		dd.PeakTime = &t
	}
	return dd, nil
}

// HistoricalVaR returns the loss at the (1-confidenceLevel) empirical quantile of the
// returns, i.e. -quantile. Larger is worse; a tail made only of gains gives a negative value.
func HistoricalVaR(s *ReturnSeries, confidenceLevel float64) (float64, error) {
	if err := checkConfidence(confidenceLevel); err != nil {
		return 0, err
	}
	if s.Len() < 1 {
		return 0, fmt.Errorf("%w: VaR needs at least 1 return", ErrInsufficientData)
	}
	return -quantile7(s.sorted(), 1-confidenceLevel), nil
}

// HistoricalES returns the mean loss over returns at or below the historical VaR
// threshold (inclusive tail). It is never smaller than HistoricalVaR at the same level.
func HistoricalES(s *ReturnSeries, confidenceLevel float64) (float64, error) {
	if err := checkConfidence(confidenceLevel); err != nil {
		return 0, err
	}
	if s.Len() < 1 {
		return 0, fmt.Errorf("%w: expected shortfall needs at least 1 return", ErrInsufficientData)
	}
	sorted := s.sorted()
	threshold := quantile7(sorted, 1-confidenceLevel)
	return -tailMean(sorted, threshold), nil
}

// ParametricVaR assumes Normal returns with the sample mean and sample standard deviation:
// VaR = -(mu + z(1-c) * sigma).
func ParametricVaR(s *ReturnSeries, confidenceLevel float64) (float64, error) {
	if err := checkConfidence(confidenceLevel); err != nil {
		return 0, err
	}
	sigma, err := DailyVolatility(s)
	if err != nil {
		return 0, err
	}
	mu := stat.Mean(s.values, nil)
	z := distuv.UnitNormal.Quantile(1 - confidenceLevel)
	v := -(mu + z*sigma)
	if !isFinite(v) {
		return 0, fmt.Errorf("%w: parametric VaR is not finite", ErrInvalidValue)
	}
	return v, nil
}
