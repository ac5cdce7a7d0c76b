package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	applogger "FinRisk/pkg/logger"
	"FinRisk/pkg/util"
)

// CSVPriceSource reads {dir}/{TICKER}.csv files with a header row containing "date" and
// "close" columns, plus an optional "adj_close" used when the request asks for adjusted data.
type CSVPriceSource struct {
	dir string
	l   *applogger.Logger
}

func NewCSVPriceSource(dir string) *CSVPriceSource {
	return &CSVPriceSource{dir: dir, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CSVPriceSource) SetLogger(l *applogger.Logger) { s.l = l }

var _ domrepo.PriceSource = (*CSVPriceSource)(nil)

func (s *CSVPriceSource) Name() string { return "csv" }

func (s *CSVPriceSource) Fetch(ctx context.Context, req models.DataRequest) (*models.PriceMatrix, error) {
	points := make(map[string][]models.PricePoint, len(req.Tickers))
	for _, ticker := range req.Tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(s.dir, ticker+".csv")
		pts, err := readPriceFile(path, req)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read %s: %w", path, models.ErrNoPrices)
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if len(pts) == 0 {
			return nil, fmt.Errorf("read %s: %w", path, models.ErrNoPrices)
		}
		s.l.Debug("csv prices loaded",
			applogger.String("ticker", ticker),
			applogger.String("path", path),
			applogger.Int("rows", len(pts)),
		)
		points[ticker] = pts
	}
	return models.NewPriceMatrix(req.Tickers, points), nil
}

func readPriceFile(path string, req models.DataRequest) ([]models.PricePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("header: %w", err)
	}
	dateCol, closeCol := -1, -1
	adjCol := -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date", "time", "timestamp":
			dateCol = i
		case "close":
			closeCol = i
		case "adj_close", "adj close", "adjclose":
			adjCol = i
		}
	}
	if req.AutoAdjust && adjCol >= 0 {
		closeCol = adjCol
	}
	if dateCol < 0 || closeCol < 0 {
		return nil, fmt.Errorf("header %v: need date and close columns", header)
	}

	var out []models.PricePoint
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ts, err := parseStamp(rec[dateCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if ts.Before(req.Start) || !ts.Before(req.End) {
			continue
		}
		raw := strings.TrimSpace(rec[closeCol])
		if raw == "" || strings.EqualFold(raw, "null") || strings.EqualFold(raw, "nan") {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: close %q: %w", line, raw, err)
		}
		out = append(out, models.PricePoint{Time: ts, Close: v})
	}
	return out, nil
}

func parseStamp(s string) (time.Time, error) {
	t, err := util.ParseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
