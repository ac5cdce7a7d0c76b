package risk

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// ReturnSeries is a validated, chronologically ordered sequence of periodic returns.
// It is immutable once built: constructors copy their inputs and accessors hand out copies,
// so one series can be shared by concurrent metric computations.
type ReturnSeries struct {
	values     []float64
	prices     []float64
	timestamps []time.Time
	period     Period
}

// SeriesOption configures series construction.
type SeriesOption func(*seriesConfig)

type seriesConfig struct {
	timestamps []time.Time
	logReturns bool
}

// WithTimestamps attaches a parallel timestamp sequence. For FromReturns it must have one
// entry per return; for FromPrices one entry per price.
func WithTimestamps(ts []time.Time) SeriesOption {
	return func(c *seriesConfig) {
		c.timestamps = ts
	}
}

// WithLogReturns makes FromPrices derive ln(p[i]/p[i-1]) instead of simple returns.
func WithLogReturns() SeriesOption {
	return func(c *seriesConfig) {
		c.logReturns = true
	}
}

// FromReturns builds a series from already computed periodic returns.
func FromReturns(values []float64, period Period, opts ...SeriesOption) (*ReturnSeries, error) {
	cfg := applyOptions(opts)
	p, err := normalizePeriod(period)
	if err != nil {
		return nil, err
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 returns, got %d", ErrInsufficientData, len(values))
	}
	for i, v := range values {
		if !isFinite(v) {
			return nil, fmt.Errorf("%w: return[%d] is %v", ErrInvalidValue, i, v)
		}
	}
	ts, err := checkTimestamps(cfg.timestamps, len(values))
	if err != nil {
		return nil, err
	}

	return &ReturnSeries{
		values:     append([]float64(nil), values...),
		timestamps: ts,
		period:     p,
	}, nil
}

// FromPrices derives returns[i] = prices[i]/prices[i-1] - 1 (or the log form with
// WithLogReturns) and keeps the raw prices alongside.
func FromPrices(prices []float64, period Period, opts ...SeriesOption) (*ReturnSeries, error) {
	cfg := applyOptions(opts)
	p, err := normalizePeriod(period)
	if err != nil {
		return nil, err
	}
	if len(prices) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 prices, got %d", ErrInsufficientData, len(prices))
	}
	for i, px := range prices {
		if !isFinite(px) || px <= 0 {
			return nil, fmt.Errorf("%w: price[%d] is %v, prices must be positive", ErrInvalidValue, i, px)
		}
	}
	ts, err := checkTimestamps(cfg.timestamps, len(prices))
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		ratio := prices[i] / prices[i-1]
		if cfg.logReturns {
			values[i-1] = math.Log(ratio)
		} else {
			values[i-1] = ratio - 1
		}
		if !isFinite(values[i-1]) {
			return nil, fmt.Errorf("%w: return[%d] overflows (%v -> %v)", ErrInvalidValue, i-1, prices[i-1], prices[i])
		}
	}

	s := &ReturnSeries{
		values: values,
		prices: append([]float64(nil), prices...),
		period: p,
	}
	if ts != nil {
		// returns are stamped with the close that ends their period
		s.timestamps = ts[1:]
	}
	return s, nil
}

// Len returns the number of returns.
func (s *ReturnSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.values)
}

// Values returns a copy of the returns.
func (s *ReturnSeries) Values() []float64 {
	return append([]float64(nil), s.values...)
}

// Prices returns a copy of the source prices, or nil when built from returns.
func (s *ReturnSeries) Prices() []float64 {
	if s.prices == nil {
		return nil
	}
	return append([]float64(nil), s.prices...)
}

// Timestamps returns a copy of the return timestamps, or nil when none were supplied.
func (s *ReturnSeries) Timestamps() []time.Time {
	if s.timestamps == nil {
		return nil
	}
	return append([]time.Time(nil), s.timestamps...)
}

// TimeAt returns the timestamp of return i when timestamps are known.
func (s *ReturnSeries) TimeAt(i int) (time.Time, bool) {
	if i < 0 || i >= len(s.timestamps) {
		return time.Time{}, false
	}
	return s.timestamps[i], true
}

// Period returns the time unit of each return.
func (s *ReturnSeries) Period() Period { return s.period }

// sorted returns an ascending copy of the returns; the series itself is never reordered.
func (s *ReturnSeries) sorted() []float64 {
	out := append([]float64(nil), s.values...)
	sort.Float64s(out)
	return out
}

func applyOptions(opts []SeriesOption) seriesConfig {
	var cfg seriesConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func normalizePeriod(p Period) (Period, error) {
	if p == "" {
		return PeriodDaily, nil
	}
	if !p.Valid() {
		return "", fmt.Errorf("%w: unsupported period %q", ErrInvalidParameter, p)
	}
	return p, nil
}

func checkTimestamps(ts []time.Time, want int) ([]time.Time, error) {
	if ts == nil {
		return nil, nil
	}
	if len(ts) != want {
		return nil, fmt.Errorf("%w: %d timestamps for %d observations", ErrInvalidValue, len(ts), want)
	}
	for i := 1; i < len(ts); i++ {
		if !ts[i].After(ts[i-1]) {
			return nil, fmt.Errorf("%w: timestamps not strictly increasing at %d", ErrInvalidValue, i)
		}
	}
	return append([]time.Time(nil), ts...), nil
}
