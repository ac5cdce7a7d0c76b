package risk

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MetricKind names one risk statistic.
type MetricKind string

const (
	KindDailyVolatility      MetricKind = "volatility_daily"
	KindAnnualisedVolatility MetricKind = "volatility_annualised"
	KindMaxDrawdown          MetricKind = "max_drawdown"
	KindHistoricalVaR        MetricKind = "historical_var"
	KindHistoricalES         MetricKind = "historical_es"
	KindParametricVaR        MetricKind = "parametric_var"
)

// AllKinds lists every metric in report order.
func AllKinds() []MetricKind {
	return []MetricKind{
		KindDailyVolatility,
		KindAnnualisedVolatility,
		KindMaxDrawdown,
		KindHistoricalVaR,
		KindHistoricalES,
		KindParametricVaR,
	}
}

// NeedsConfidence reports whether the metric is parameterised by a confidence level.
func (k MetricKind) NeedsConfidence() bool {
	switch k {
	case KindHistoricalVaR, KindHistoricalES, KindParametricVaR:
		return true
	default:
		return false
	}
}

// ParseKind resolves a metric name, case-insensitively.
func ParseKind(s string) (MetricKind, error) {
	want := MetricKind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range AllKinds() {
		if k == want {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown metric %q", ErrInvalidParameter, s)
}

// Params records the inputs a Result was computed with.
type Params struct {
	ConfidenceLevel     float64 `json:"confidence_level,omitempty"`
	AnnualisationFactor int     `json:"annualisation_factor,omitempty"`
	Period              Period  `json:"period"`
	Observations        int     `json:"observations"`
}

// Result is a self-describing metric value.
type Result struct {
	Kind     MetricKind `json:"kind"`
	Value    float64    `json:"value"`
	Params   Params     `json:"params"`
	Drawdown *Drawdown  `json:"drawdown,omitempty"`
}

// Label is a short human name such as "historical_var@95%".
func (r Result) Label() string {
	if r.Kind.NeedsConfidence() {
		pct := decimal.NewFromFloat(r.Params.ConfidenceLevel).Shift(2)
		return fmt.Sprintf("%s@%s%%", r.Kind, pct.String())
	}
	return string(r.Kind)
}

// Request selects which metrics to compute and with which parameters.
// An empty Kinds means all of them. AnnualisationFactor 0 means the period's convention.
type Request struct {
	Kinds               []MetricKind
	ConfidenceLevels    []float64
	AnnualisationFactor int
}

// Compute evaluates one metric. Only the parameters the metric uses are read from p and
// echoed back in the result.
func Compute(s *ReturnSeries, kind MetricKind, p Params) (Result, error) {
	if s == nil {
		return Result{}, fmt.Errorf("%s: %w: nil series", kind, ErrInsufficientData)
	}
	res := Result{Kind: kind, Params: Params{Period: s.Period(), Observations: s.Len()}}
	var err error
	switch kind {
	case KindDailyVolatility:
		res.Value, err = DailyVolatility(s)
	case KindAnnualisedVolatility:
		res.Params.AnnualisationFactor = p.AnnualisationFactor
		res.Value, err = AnnualisedVolatility(s, p.AnnualisationFactor)
	case KindMaxDrawdown:
		var dd Drawdown
		dd, err = MaxDrawdown(s)
		res.Value, res.Drawdown = dd.Magnitude, &dd
	case KindHistoricalVaR:
		res.Params.ConfidenceLevel = p.ConfidenceLevel
		res.Value, err = HistoricalVaR(s, p.ConfidenceLevel)
	case KindHistoricalES:
		res.Params.ConfidenceLevel = p.ConfidenceLevel
		res.Value, err = HistoricalES(s, p.ConfidenceLevel)
	case KindParametricVaR:
		res.Params.ConfidenceLevel = p.ConfidenceLevel
		res.Value, err = ParametricVaR(s, p.ConfidenceLevel)
	default:
		err = fmt.Errorf("%w: unknown metric %q", ErrInvalidParameter, kind)
	}
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", kind, err)
	}
	if !isFinite(res.Value) {
		return Result{}, fmt.Errorf("%s: %w: result %v is not finite", kind, ErrInvalidValue, res.Value)
	}
	return res, nil
}

// ComputeAll evaluates the requested metrics, once per confidence level for the
// tail metrics. It fails on the first error and returns no partial results.
func ComputeAll(s *ReturnSeries, req Request) ([]Result, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil series", ErrInsufficientData)
	}
	kinds := req.Kinds
	if len(kinds) == 0 {
		kinds = AllKinds()
	}
	factor := req.AnnualisationFactor
	if factor == 0 {
		factor = s.Period().AnnualisationFactor()
	}
	levels := req.ConfidenceLevels
	if len(levels) == 0 {
		levels = []float64{0.95}
	}

	out := make([]Result, 0, len(kinds)*len(levels))
	for _, k := range kinds {
		if !k.NeedsConfidence() {
			r, err := Compute(s, k, Params{AnnualisationFactor: factor})
			if err != nil {
				return nil, err
			}
			out = append(out, r)
			continue
		}
		for _, c := range levels {
			r, err := Compute(s, k, Params{ConfidenceLevel: c})
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
	}
	return out, nil
}
