package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	"FinRisk/internal/service/report"
	"FinRisk/pkg/config"
	applogger "FinRisk/pkg/logger"
)

const (
	runDirLayout = "2006-01-02_15-04-05"
	runLogFile   = "run.log"
	snapshotFile = "config_snapshot.yaml"
	outputsDir   = "outputs"
)

// ErrRunExists is returned when the run directory for this second and run name is taken.
var ErrRunExists = errors.New("run directory already exists")

// RunPipeline executes one batch run: a fresh run directory with its own log file, a
// config snapshot, the analysis, the artifacts and an optional report publication.
type RunPipeline struct {
	cfg       *config.Config
	analyzer  *RiskAnalyzer
	publisher domrepo.ReportPublisher
	metrics   domrepo.Metrics
	out       io.Writer
	now       func() time.Time
}

func NewRunPipeline(cfg *config.Config, analyzer *RiskAnalyzer, publisher domrepo.ReportPublisher, metrics domrepo.Metrics) *RunPipeline {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &RunPipeline{
		cfg:       cfg,
		analyzer:  analyzer,
		publisher: publisher,
		metrics:   metrics,
		out:       os.Stdout,
		now:       time.Now,
	}
}

// SetOutput redirects the summary table (stdout by default).
func (p *RunPipeline) SetOutput(w io.Writer) { p.out = w }

type RunResult struct {
	Dir       string
	Report    *models.RiskReport
	Artifacts *report.Artifacts
}

func (p *RunPipeline) Run(ctx context.Context) (*RunResult, error) {
	dir, err := p.createRunDir()
	if err != nil {
		return nil, err
	}

	lg, err := applogger.New(&applogger.Config{
		Level:  p.cfg.Logging.Level,
		Format: p.cfg.Logging.Format,
		Output: p.cfg.Logging.Output,
		File:   filepath.Join(dir, runLogFile),
	})
	if err != nil {
		return nil, fmt.Errorf("run logger: %w", err)
	}
	defer lg.Close()
	lg = lg.With(applogger.String("run", filepath.Base(dir)))

	lg.Info("starting risk engine run",
		applogger.String("run_dir", dir),
		applogger.Strings("tickers", p.cfg.Universe.Tickers),
		applogger.String("start", p.cfg.DateRange.Start),
		applogger.String("end", p.cfg.DateRange.End),
		applogger.String("source", p.cfg.Data.Source),
	)

	if p.cfg.Outputs.SaveConfigSnapshot {
		snap, err := p.cfg.Snapshot()
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(filepath.Join(dir, snapshotFile), snap, 0o644); err != nil {
			return nil, fmt.Errorf("write config snapshot: %w", err)
		}
		lg.Info("saved config snapshot", applogger.String("file", snapshotFile))
	}

	params, err := p.params()
	if err != nil {
		return nil, err
	}
	rep, err := p.analyzer.WithLogger(lg).Analyze(ctx, params)
	if err != nil {
		lg.Error("analysis failed", applogger.Error(err))
		return nil, fmt.Errorf("analyze: %w", err)
	}

	arts, err := report.NewWriter(filepath.Join(dir, outputsDir),
		report.WithPlot(p.cfg.Outputs.Plot),
		report.WithCSV(p.cfg.Outputs.CSV),
	).Write(rep)
	if err != nil {
		lg.Error("writing artifacts failed", applogger.Error(err))
		return nil, fmt.Errorf("write artifacts: %w", err)
	}
	lg.Info("saved artifacts",
		applogger.Strings("files", arts.Files),
		applogger.Any("summary", rep.Summary),
	)

	fmt.Fprintln(p.out, report.SummaryTable(rep))

	// artifacts are already on disk; a failed publication does not fail the run
	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, rep); err != nil {
			p.metrics.RecordError("publish")
			lg.Warn("report publication failed", applogger.Error(err))
		}
	}

	lg.Info("run complete", applogger.String("run_dir", dir))
	return &RunResult{Dir: dir, Report: rep, Artifacts: arts}, nil
}

func (p *RunPipeline) createRunDir() (string, error) {
	base := p.cfg.Outputs.BaseDir
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", fmt.Errorf("create outputs base dir: %w", err)
	}
	name := p.now().UTC().Format(runDirLayout) + "_" + p.cfg.RunName
	dir := filepath.Join(base, name)
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrRunExists, dir)
		}
		return "", fmt.Errorf("create run dir: %w", err)
	}
	return dir, nil
}

func (p *RunPipeline) params() (AnalyzeParams, error) {
	start, err := p.cfg.Start()
	if err != nil {
		return AnalyzeParams{}, err
	}
	end, err := p.cfg.End()
	if err != nil {
		return AnalyzeParams{}, err
	}
	return AnalyzeParams{
		RunName:             p.cfg.RunName,
		Tickers:             p.cfg.Universe.Tickers,
		Weights:             p.cfg.Universe.Weights,
		Start:               start,
		End:                 end,
		Interval:            p.cfg.Data.Interval,
		AutoAdjust:          p.cfg.Data.AutoAdjust,
		LogReturns:          p.cfg.Risk.Returns == "log",
		ConfidenceLevels:    p.cfg.Risk.ConfidenceLevels,
		AnnualisationFactor: p.cfg.Risk.AnnualisationFactor,
		PerAsset:            p.cfg.Risk.PerAsset,
	}, nil
}
