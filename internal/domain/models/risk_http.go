package models

import "FinRisk/internal/services/risk"

// Requests for the risk HTTP endpoints.

type MetricsRequest struct {
	Returns             []float64 `json:"returns"`
	Prices              []float64 `json:"prices"`
	Timestamps          []string  `json:"timestamps"`
	Period              string    `json:"period" default:"1d" validate:"oneof=1d 1wk 1mo"`
	LogReturns          bool      `json:"log_returns"`
	Metrics             []string  `json:"metrics" validate:"omitempty,dive,oneof=volatility_daily volatility_annualised max_drawdown historical_var historical_es parametric_var"`
	ConfidenceLevels    []float64 `json:"confidence_levels" validate:"omitempty,dive,gt=0,lt=1"`
	AnnualisationFactor int       `json:"annualisation_factor" validate:"gte=0"`
}

type PortfolioRequest struct {
	Tickers    string  `query:"tickers" validate:"required"`
	Weights    string  `query:"weights"`
	Start      string  `query:"start" validate:"required"`
	End        string  `query:"end" validate:"required"`
	Interval   string  `query:"interval" default:"1d" validate:"oneof=1d 1wk 1mo"`
	Confidence float64 `query:"confidence" validate:"omitempty,gt=0,lt=1"`
	Returns    string  `query:"returns" default:"simple" validate:"oneof=simple log"`
	PerAsset   bool    `query:"per_asset"`
}

type MetricsResponse struct {
	Period       string             `json:"period"`
	Observations int                `json:"observations"`
	Results      []risk.Result      `json:"results"`
	Summary      map[string]float64 `json:"summary"`
}
