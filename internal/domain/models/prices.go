package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNoPrices is returned when a source has nothing for a ticker in the requested window.
	ErrNoPrices = errors.New("no price data")
	// ErrUpstream marks a price provider that could not be reached or answered garbage.
	ErrUpstream = errors.New("price provider unavailable")
)

// DataRequest identifies a block of closing prices.
type DataRequest struct {
	Tickers    []string
	Start      time.Time // inclusive
	End        time.Time // exclusive
	Interval   string
	AutoAdjust bool
}

// Fingerprint is a canonical string for the request; ticker order does not matter.
func (r DataRequest) Fingerprint() string {
	tickers := append([]string(nil), r.Tickers...)
	sort.Strings(tickers)
	return strings.Join([]string{
		strings.Join(tickers, ","),
		r.Start.UTC().Format("2006-01-02"),
		r.End.UTC().Format("2006-01-02"),
		r.Interval,
		strconv.FormatBool(r.AutoAdjust),
	}, "|")
}

// PricePoint is one close observation.
type PricePoint struct {
	Time  time.Time `json:"t"`
	Close float64   `json:"c"`
}

// PriceBatch is one ticker's closes as written to a PriceStore.
type PriceBatch struct {
	Ticker   string
	Interval string
	Adjusted bool
	Source   string
	Points   []PricePoint
}

// PriceMatrix holds close prices on a shared ascending time index, one column per
// ticker in request order. NaN marks a missing observation.
type PriceMatrix struct {
	Tickers []string
	Index   []time.Time
	Values  [][]float64 // [row][column]
}

// NewPriceMatrix outer-joins per-ticker points into a matrix. Points need not be sorted;
// a duplicated timestamp keeps the last value seen.
func NewPriceMatrix(tickers []string, points map[string][]PricePoint) *PriceMatrix {
	stamps := make(map[int64]time.Time)
	for _, t := range tickers {
		for _, p := range points[t] {
			stamps[p.Time.UnixNano()] = p.Time
		}
	}
	index := make([]time.Time, 0, len(stamps))
	for _, ts := range stamps {
		index = append(index, ts)
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })

	row := make(map[int64]int, len(index))
	for i, ts := range index {
		row[ts.UnixNano()] = i
	}

	values := make([][]float64, len(index))
	for i := range values {
		values[i] = make([]float64, len(tickers))
		for j := range values[i] {
			values[i][j] = math.NaN()
		}
	}
	for j, t := range tickers {
		for _, p := range points[t] {
			values[row[p.Time.UnixNano()]][j] = p.Close
		}
	}

	return &PriceMatrix{
		Tickers: append([]string(nil), tickers...),
		Index:   index,
		Values:  values,
	}
}

// Rows returns the number of timestamps.
func (m *PriceMatrix) Rows() int {
	if m == nil {
		return 0
	}
	return len(m.Index)
}

// Column returns a copy of one ticker's prices.
func (m *PriceMatrix) Column(j int) []float64 {
	out := make([]float64, len(m.Values))
	for i, row := range m.Values {
		out[i] = row[j]
	}
	return out
}

// Points returns the usable observations of one ticker.
func (m *PriceMatrix) Points(j int) []PricePoint {
	out := make([]PricePoint, 0, len(m.Index))
	for i, row := range m.Values {
		if usable(row[j]) {
			out = append(out, PricePoint{Time: m.Index[i], Close: row[j]})
		}
	}
	return out
}

// Align keeps only the rows where every ticker has a positive finite close, so returns
// are computed on a common calendar. A ticker with no usable prices at all is an error.
func (m *PriceMatrix) Align() (*PriceMatrix, error) {
	if m == nil {
		return nil, fmt.Errorf("align: %w", ErrNoPrices)
	}
	for j, t := range m.Tickers {
		found := false
		for _, row := range m.Values {
			if usable(row[j]) {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("align %s: %w", t, ErrNoPrices)
		}
	}

	out := &PriceMatrix{Tickers: append([]string(nil), m.Tickers...)}
	for i, row := range m.Values {
		keep := true
		for _, v := range row {
			if !usable(v) {
				keep = false
				break
			}
		}
		if keep {
			out.Index = append(out.Index, m.Index[i])
			out.Values = append(out.Values, append([]float64(nil), row...))
		}
	}
	return out, nil
}

func usable(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

type priceMatrixJSON struct {
	Tickers []string     `json:"tickers"`
	Index   []time.Time  `json:"index"`
	Values  [][]*float64 `json:"values"`
}

// MarshalJSON encodes missing observations as null.
func (m *PriceMatrix) MarshalJSON() ([]byte, error) {
	out := priceMatrixJSON{Tickers: m.Tickers, Index: m.Index, Values: make([][]*float64, len(m.Values))}
	for i, row := range m.Values {
		out.Values[i] = make([]*float64, len(row))
		for j, v := range row {
			if !math.IsNaN(v) {
				v := v
				out.Values[i][j] = &v
			}
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes null back into NaN.
func (m *PriceMatrix) UnmarshalJSON(b []byte) error {
	var in priceMatrixJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	if len(in.Values) != len(in.Index) {
		return fmt.Errorf("price matrix: %d rows for %d timestamps", len(in.Values), len(in.Index))
	}
	m.Tickers, m.Index = in.Tickers, in.Index
	m.Values = make([][]float64, len(in.Values))
	for i, row := range in.Values {
		if len(row) != len(in.Tickers) {
			return fmt.Errorf("price matrix: row %d has %d values for %d tickers", i, len(row), len(in.Tickers))
		}
		m.Values[i] = make([]float64, len(row))
		for j, v := range row {
			if v == nil {
				m.Values[i][j] = math.NaN()
			} else {
				m.Values[i][j] = *v
			}
		}
	}
	return nil
}
