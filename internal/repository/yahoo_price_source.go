package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	"FinRisk/internal/service/ratelimit"
	pkghttp "FinRisk/pkg/http"
	applogger "FinRisk/pkg/logger"
)

const yahooUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"

type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				GmtOffset int64  `json:"gmtoffset"`
				Timezone  string `json:"timezone"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// YahooPriceSource reads daily/weekly/monthly closes from the Yahoo v8 chart API.
type YahooPriceSource struct {
	client   *pkghttp.Client
	baseURL  string
	limiter  *ratelimit.Limiter
	rps      float64
	backoffs []time.Duration
	timeout  time.Duration
	l        *applogger.Logger
}

// YahooOption configures YahooPriceSource.
type YahooOption func(*YahooPriceSource)

// WithYahooClient replaces the HTTP client.
func WithYahooClient(c *pkghttp.Client) YahooOption {
	return func(s *YahooPriceSource) { s.client = c }
}

// WithYahooRateLimit throttles requests to rps per second (burst of one second's worth).
func WithYahooRateLimit(l *ratelimit.Limiter, rps float64) YahooOption {
	return func(s *YahooPriceSource) {
		s.limiter = l
		s.rps = rps
	}
}

// WithYahooBackoffs sets the waits between retries; len(backoffs)+1 attempts are made.
func WithYahooBackoffs(b ...time.Duration) YahooOption {
	return func(s *YahooPriceSource) { s.backoffs = b }
}

// WithYahooTimeout bounds each HTTP attempt. Ignored when WithYahooClient is given.
func WithYahooTimeout(d time.Duration) YahooOption {
	return func(s *YahooPriceSource) { s.timeout = d }
}

// WithYahooLogger injects a structured logger.
func WithYahooLogger(l *applogger.Logger) YahooOption {
	return func(s *YahooPriceSource) { s.l = l }
}

func NewYahooPriceSource(baseURL string, opts ...YahooOption) *YahooPriceSource {
	s := &YahooPriceSource{
		baseURL:  baseURL,
		backoffs: []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second},
		timeout:  15 * time.Second,
		l:        applogger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = pkghttp.NewClient(
			pkghttp.WithTimeout(s.timeout),
			pkghttp.WithHeader("User-Agent", yahooUserAgent),
			pkghttp.WithHeader("Accept", "application/json"),
		)
	}
	return s
}

var _ domrepo.PriceSource = (*YahooPriceSource)(nil)

func (s *YahooPriceSource) Name() string { return "yahoo" }

// Fetch downloads each ticker in turn and outer-joins the closes on their trading dates.
func (s *YahooPriceSource) Fetch(ctx context.Context, req models.DataRequest) (*models.PriceMatrix, error) {
	points := make(map[string][]models.PricePoint, len(req.Tickers))
	for _, ticker := range req.Tickers {
		start := time.Now()
		pts, err := s.fetchTicker(ctx, ticker, req)
		if err != nil {
			s.l.Error("yahoo fetch failed",
				applogger.String("ticker", ticker),
				applogger.Error(err),
			)
			return nil, fmt.Errorf("fetch %s: %w", ticker, err)
		}
		if len(pts) == 0 {
			return nil, fmt.Errorf("fetch %s: %w", ticker, models.ErrNoPrices)
		}
		s.l.Debug("yahoo fetch ok",
			applogger.String("ticker", ticker),
			applogger.Int("rows", len(pts)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
		points[ticker] = pts
	}
	return models.NewPriceMatrix(req.Tickers, points), nil
}

func (s *YahooPriceSource) fetchTicker(ctx context.Context, ticker string, req models.DataRequest) ([]models.PricePoint, error) {
	var lastErr error
	for attempt := 0; attempt <= len(s.backoffs); attempt++ {
		if attempt > 0 {
			t := time.NewTimer(s.backoffs[attempt-1])
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx, s.Name(), s.rps, s.rps); err != nil {
				return nil, err
			}
		}

		resp, err := s.get(ctx, ticker, req)
		if err == nil {
			return parseChart(resp, req)
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
		s.l.Warn("yahoo request failed, retrying",
			applogger.String("ticker", ticker),
			applogger.Int("attempt", attempt+1),
			applogger.Error(err),
		)
	}
	return nil, fmt.Errorf("%w: %v", models.ErrUpstream, lastErr)
}

func (s *YahooPriceSource) get(ctx context.Context, ticker string, req models.DataRequest) (*yahooChartResp, error) {
	var body []byte
	err := s.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/v8/finance/chart/%s", s.baseURL, url.PathEscape(ticker)),
		QueryParams: map[string][]string{
			"period1":  {strconv.FormatInt(req.Start.Unix(), 10)},
			"period2":  {strconv.FormatInt(req.End.Unix(), 10)},
			"interval": {req.Interval},
			"events":   {"div,splits"},
		},
	}, &body)
	if err != nil {
		var se *pkghttp.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, models.ErrNoPrices
		}
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if bytes.HasPrefix(trimmed, []byte("<")) || bytes.HasPrefix(trimmed, []byte("Edge:")) {
		return nil, &nonJSONError{preview: preview(trimmed)}
	}
	var yc yahooChartResp
	if err := json.Unmarshal(trimmed, &yc); err != nil {
		return nil, &nonJSONError{preview: preview(trimmed)}
	}
	if yc.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s", models.ErrNoPrices, yc.Chart.Error.Code, yc.Chart.Error.Description)
	}
	return &yc, nil
}

// parseChart turns the chart payload into dated closes inside [req.Start, req.End).
// Yahoo stamps bars at the exchange open; the exchange-local calendar date is kept.
func parseChart(yc *yahooChartResp, req models.DataRequest) ([]models.PricePoint, error) {
	if len(yc.Chart.Result) == 0 {
		return nil, models.ErrNoPrices
	}
	res := yc.Chart.Result[0]
	var closes []*float64
	if req.AutoAdjust && len(res.Indicators.AdjClose) > 0 {
		closes = res.Indicators.AdjClose[0].AdjClose
	} else if len(res.Indicators.Quote) > 0 {
		closes = res.Indicators.Quote[0].Close
	}
	if len(closes) != len(res.Timestamp) {
		return nil, fmt.Errorf("%w: %d closes for %d timestamps", models.ErrUpstream, len(closes), len(res.Timestamp))
	}

	out := make([]models.PricePoint, 0, len(closes))
	for i, ts := range res.Timestamp {
		if closes[i] == nil {
			continue
		}
		local := time.Unix(ts+res.Meta.GmtOffset, 0).UTC()
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
		if day.Before(req.Start) || !day.Before(req.End) {
			continue
		}
		out = append(out, models.PricePoint{Time: day, Close: *closes[i]})
	}
	return out, nil
}

type nonJSONError struct{ preview string }

func (e *nonJSONError) Error() string { return "yahoo returned non-json body: " + e.preview }

func retryable(err error) bool {
	var se *pkghttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var nj *nonJSONError
	if errors.As(err, &nj) {
		return true
	}
	if errors.Is(err, models.ErrNoPrices) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// transport errors
	return true
}

func preview(b []byte) string {
	if len(b) > 120 {
		b = b[:120]
	}
	return string(b)
}
