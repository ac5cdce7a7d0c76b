// Package report renders a RiskReport into run artifacts: metrics JSON, series CSVs,
// a drawdown chart and a console summary table.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"FinRisk/internal/domain/models"
	"FinRisk/pkg/util"
)

const (
	MetricsFile   = "metrics.json"
	ReturnsFile   = "portfolio_returns.csv"
	DrawdownFile  = "drawdown.csv"
	DrawdownChart = "drawdown.png"
)

// Writer writes artifacts into one output directory.
type Writer struct {
	dir  string
	plot bool
	csv  bool
}

// Option configures Writer.
type Option func(*Writer)

// WithPlot toggles drawdown.png.
func WithPlot(enabled bool) Option {
	return func(w *Writer) { w.plot = enabled }
}

// WithCSV toggles the series CSV files.
func WithCSV(enabled bool) Option {
	return func(w *Writer) { w.csv = enabled }
}

func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{dir: dir, plot: true, csv: true}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Artifacts lists the files a Write produced.
type Artifacts struct {
	Metrics  string   `json:"metrics"`
	Returns  string   `json:"returns,omitempty"`
	Drawdown string   `json:"drawdown,omitempty"`
	Chart    string   `json:"chart,omitempty"`
	Files    []string `json:"-"`
}

func (a *Artifacts) add(field *string, path string) {
	*field = path
	a.Files = append(a.Files, path)
}

func (w *Writer) Write(r *models.RiskReport) (*Artifacts, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	a := &Artifacts{}

	path := filepath.Join(w.dir, MetricsFile)
	if err := WriteJSON(path, r); err != nil {
		return nil, err
	}
	a.add(&a.Metrics, path)

	if w.csv {
		path = filepath.Join(w.dir, ReturnsFile)
		if err := WriteSeriesCSV(path, "portfolio_return", r.PortfolioReturns); err != nil {
			return nil, err
		}
		a.add(&a.Returns, path)

		path = filepath.Join(w.dir, DrawdownFile)
		if err := WriteSeriesCSV(path, "drawdown", r.DrawdownPath); err != nil {
			return nil, err
		}
		a.add(&a.Drawdown, path)
	}

	if w.plot && len(r.DrawdownPath) > 0 {
		png, err := RenderDrawdown(r.DrawdownPath, drawdownTitle(r))
		if err != nil {
			return nil, err
		}
		path = filepath.Join(w.dir, DrawdownChart)
		if err := os.WriteFile(path, png, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", DrawdownChart, err)
		}
		a.add(&a.Chart, path)
	}
	return a, nil
}

// WriteJSON writes v as indented JSON.
func WriteJSON(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteSeriesCSV writes a two-column "date,<column>" file.
func WriteSeriesCSV(path, column string, points []models.SeriesPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"date", column}); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	for _, p := range points {
		rec := []string{p.Time.UTC().Format(util.DateLayout), strconv.FormatFloat(p.Value, 'g', -1, 64)}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write %s: %w", filepath.Base(path), err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
