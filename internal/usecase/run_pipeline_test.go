package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	"FinRisk/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	published []*models.RiskReport
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, r *models.RiskReport) error {
	f.published = append(f.published, r)
	return f.err
}

func (f *fakePublisher) Close() error { return nil }

func pipelineConfig(t *testing.T, extra string) *config.Config {
	t.Helper()
	body := fmt.Sprintf(`
run_name: unit
universe:
  tickers: [AAA]
date_range:
  start: "2024-01-01"
  end: "2024-02-01"
data:
  source: csv
outputs:
  base_dir: %q
  plot: false
logging:
  level: error
  format: json
  output: stderr
%s`, t.TempDir(), extra)
	cfg, err := config.Parse([]byte(body))
	require.NoError(t, err)
	return cfg
}

func newPipeline(t *testing.T, cfg *config.Config, pub *fakePublisher) (*RunPipeline, *bytes.Buffer) {
	t.Helper()
	src := &fakeSource{points: map[string][]models.PricePoint{"AAA": pricesFrom(scenario)}}
	var publisher domrepo.ReportPublisher
	if pub != nil {
		publisher = pub
	}
	p := NewRunPipeline(cfg, NewRiskAnalyzer(src, nil, nil), publisher, nil)
	var out bytes.Buffer
	p.SetOutput(&out)
	p.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC) }
	return p, &out
}

func TestRunPipelineWritesRunDirectory(t *testing.T) {
	cfg := pipelineConfig(t, "")
	pub := &fakePublisher{}
	p, out := newPipeline(t, cfg, pub)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.Outputs.BaseDir, "2024-03-01_12-30-45_unit"), res.Dir)
	for _, f := range []string{"run.log", "config_snapshot.yaml", "outputs/metrics.json", "outputs/portfolio_returns.csv", "outputs/drawdown.csv"} {
		_, err := os.Stat(filepath.Join(res.Dir, f))
		assert.NoError(t, err, f)
	}
	_, err = os.Stat(filepath.Join(res.Dir, "outputs", "drawdown.png"))
	assert.True(t, os.IsNotExist(err))

	logBody, err := os.ReadFile(filepath.Join(res.Dir, "run.log"))
	require.NoError(t, err)
	// level error: nothing but errors reach the file
	assert.NotContains(t, string(logBody), "starting risk engine run")

	snap, err := os.ReadFile(filepath.Join(res.Dir, "config_snapshot.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(snap), "run_name: unit")

	assert.Contains(t, out.String(), "max_drawdown")
	assert.Contains(t, out.String(), "3.00%")
	require.Len(t, pub.published, 1)
	assert.Equal(t, res.Report.ID, pub.published[0].ID)
	assert.Equal(t, "unit", res.Report.RunName)
}

func TestRunPipelineRefusesExistingDirectory(t *testing.T) {
	cfg := pipelineConfig(t, "")
	p, _ := newPipeline(t, cfg, nil)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunExists)
}

func TestRunPipelinePublishFailureIsNotFatal(t *testing.T) {
	cfg := pipelineConfig(t, "")
	pub := &fakePublisher{err: errors.New("broker down")}
	p, _ := newPipeline(t, cfg, pub)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, res.Report)
}

func TestRunPipelineLogsAnalysisFailure(t *testing.T) {
	cfg := pipelineConfig(t, "")
	cfg.Universe.Tickers = []string{"MISSING"}
	p, _ := newPipeline(t, cfg, nil)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNoPrices)

	entries, err := os.ReadDir(cfg.Outputs.BaseDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	logBody, err := os.ReadFile(filepath.Join(cfg.Outputs.BaseDir, entries[0].Name(), "run.log"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(logBody), "analysis failed"))
}
