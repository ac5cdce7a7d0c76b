package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"FinRisk/internal/domain/models"
	"FinRisk/internal/services/risk"
	"FinRisk/internal/usecase"
	xhttp "FinRisk/pkg/http"
	xlogger "FinRisk/pkg/logger"
	"FinRisk/pkg/util"

	"github.com/labstack/echo/v4"
)

// PortfolioDefaults fills portfolio query parameters the caller left out.
type PortfolioDefaults struct {
	AutoAdjust          bool
	ConfidenceLevels    []float64
	AnnualisationFactor int
}

// RiskEchoHandler serves ad-hoc and portfolio risk computations.
type RiskEchoHandler struct {
	logger   *xlogger.Logger
	analyzer *usecase.RiskAnalyzer
	defaults PortfolioDefaults
}

func NewRiskEchoHandler(logger *xlogger.Logger, analyzer *usecase.RiskAnalyzer, defaults PortfolioDefaults) *RiskEchoHandler {
	return &RiskEchoHandler{logger: logger, analyzer: analyzer, defaults: defaults}
}

func (h *RiskEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/risk")
	g.POST("/metrics", h.Metrics)
	g.GET("/portfolio", h.Portfolio)
}

// Metrics computes risk statistics on returns or prices supplied in the body.
func (h *RiskEchoHandler) Metrics(c echo.Context) error {
	req := &models.MetricsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if (len(req.Returns) == 0) == (len(req.Prices) == 0) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("exactly one of returns or prices is required"))
	}

	period, err := risk.ParsePeriod(req.Period)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapRiskError(err))
	}
	var opts []risk.SeriesOption
	if len(req.Timestamps) > 0 {
		ts := make([]time.Time, len(req.Timestamps))
		for i, s := range req.Timestamps {
			if ts[i], err = util.ParseDate(s); err != nil {
				return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("timestamps[%d]: %v", i, err))
			}
		}
		opts = append(opts, risk.WithTimestamps(ts))
	}
	if req.LogReturns {
		opts = append(opts, risk.WithLogReturns())
	}

	var series *risk.ReturnSeries
	if len(req.Returns) > 0 {
		series, err = risk.FromReturns(req.Returns, period, opts...)
	} else {
		series, err = risk.FromPrices(req.Prices, period, opts...)
	}
	if err != nil {
		return xhttp.AppErrorResponse(c, mapRiskError(err))
	}

	kinds := make([]risk.MetricKind, 0, len(req.Metrics))
	for _, m := range req.Metrics {
		k, err := risk.ParseKind(m)
		if err != nil {
			return xhttp.AppErrorResponse(c, mapRiskError(err))
		}
		kinds = append(kinds, k)
	}

	results, err := h.analyzer.Evaluate(c.Request().Context(), series, risk.Request{
		Kinds:               kinds,
		ConfidenceLevels:    req.ConfidenceLevels,
		AnnualisationFactor: req.AnnualisationFactor,
	})
	if err != nil {
		appErr := mapRiskError(err)
		if appErr.Status >= 500 {
			h.logger.Error("metrics evaluation error", xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	return xhttp.SuccessResponse(c, &models.MetricsResponse{
		Period:       string(series.Period()),
		Observations: series.Len(),
		Results:      results,
		Summary:      models.Summarize(results),
	})
}

// Portfolio fetches prices from the configured source and analyses a weighted basket.
func (h *RiskEchoHandler) Portfolio(c echo.Context) error {
	req := &models.PortfolioRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	tickers := util.SplitList(strings.ToUpper(req.Tickers))
	if len(tickers) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("tickers is required"))
	}
	var weights []float64
	if req.Weights != "" {
		w, err := util.ParseFloatList(req.Weights)
		if err != nil {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("weights: %v", err).WithParam("weights", req.Weights))
		}
		weights = w
	}
	start, err := util.ParseDate(req.Start)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("start: %v", err).WithParam("start", req.Start))
	}
	end, err := util.ParseDate(req.End)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("end: %v", err).WithParam("end", req.End))
	}

	levels := h.defaults.ConfidenceLevels
	if req.Confidence > 0 {
		levels = []float64{req.Confidence}
	}

	rep, err := h.analyzer.Analyze(c.Request().Context(), usecase.AnalyzeParams{
		Tickers:             tickers,
		Weights:             weights,
		Start:               start,
		End:                 end,
		Interval:            req.Interval,
		AutoAdjust:          h.defaults.AutoAdjust,
		LogReturns:          req.Returns == "log",
		ConfidenceLevels:    levels,
		AnnualisationFactor: h.defaults.AnnualisationFactor,
		PerAsset:            req.PerAsset,
	})
	if err != nil {
		appErr := mapRiskError(err)
		if appErr.Status >= 500 {
			h.logger.Error("portfolio analysis error",
				xlogger.Strings("tickers", tickers),
				xlogger.Error(err),
			)
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	return xhttp.SuccessResponse(c, rep)
}

// mapRiskError translates domain sentinels into API errors.
func mapRiskError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, risk.ErrInsufficientData):
		return xhttp.UnprocessableError("ERR_INSUFFICIENT_DATA", err.Error()).WithError(err)
	case errors.Is(err, risk.ErrInvalidValue):
		return xhttp.UnprocessableError("ERR_INVALID_VALUE", err.Error()).WithError(err)
	case errors.Is(err, risk.ErrInvalidParameter):
		return xhttp.NewAppError("ERR_INVALID_PARAMETER", "", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, models.ErrNoPrices):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrUpstream):
		return xhttp.BadGatewayError(err.Error()).WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", "request timed out", http.StatusGatewayTimeout).WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
