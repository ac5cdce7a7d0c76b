package models

import (
	"time"

	"FinRisk/internal/services/risk"
)

// SeriesPoint is one value of a time series artifact (returns, drawdown).
type SeriesPoint struct {
	Time  time.Time `json:"t"`
	Value float64   `json:"v"`
}

// AssetReport holds the stand-alone metrics of one constituent.
type AssetReport struct {
	Ticker  string        `json:"ticker"`
	Weight  float64       `json:"weight"`
	Metrics []risk.Result `json:"metrics"`
}

// RiskReport is the outcome of one portfolio analysis.
type RiskReport struct {
	ID           string             `json:"id"`
	RunName      string             `json:"run_name,omitempty"`
	GeneratedAt  time.Time          `json:"generated_at"`
	Source       string             `json:"source"`
	Tickers      []string           `json:"tickers"`
	Weights      []float64          `json:"weights"`
	Start        time.Time          `json:"start"`
	End          time.Time          `json:"end"`
	Interval     string             `json:"interval"`
	Returns      string             `json:"returns"`
	Observations int                `json:"observations"`
	FirstReturn  time.Time          `json:"first_return"`
	LastReturn   time.Time          `json:"last_return"`
	Summary      map[string]float64 `json:"summary"`
	Portfolio    []risk.Result      `json:"portfolio"`
	Assets       []AssetReport      `json:"assets,omitempty"`

	PortfolioReturns []SeriesPoint `json:"-"`
	DrawdownPath     []SeriesPoint `json:"-"`
}

// Summarize flattens results into label -> value ("historical_var@95%": 0.031).
func Summarize(results []risk.Result) map[string]float64 {
	out := make(map[string]float64, len(results))
	for _, r := range results {
		out[r.Label()] = r.Value
	}
	return out
}
