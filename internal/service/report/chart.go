package report

import (
	"fmt"
	"strings"

	"FinRisk/internal/domain/models"

	"github.com/vicanso/go-charts/v2"
)

// RenderDrawdown draws the drawdown path (in percent) as a PNG line chart.
func RenderDrawdown(points []models.SeriesPoint, title string) ([]byte, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("render drawdown: no points")
	}

	xLabels := make([]string, len(points))
	values := make([]float64, len(points))
	minVal := 0.0
	for i, p := range points {
		xLabels[i] = p.Time.UTC().Format("Jan 02 '06")
		values[i] = p.Value * 100
		if values[i] < minVal {
			minVal = values[i]
		}
	}

	// drawdown is never positive; keep 0 as the top of the axis
	yMax := 0.0
	yMin := minVal * 1.05
	if yMin == 0 {
		yMin = -1
	}

	splitNum := 6
	if len(xLabels) <= 30 {
		splitNum = len(xLabels) / 3
		if splitNum < 3 {
			splitNum = 3
		}
	}

	p, err := charts.LineRender(
		[][]float64{values},
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(500),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

func drawdownTitle(r *models.RiskReport) string {
	title := "Drawdown (%) " + strings.Join(r.Tickers, ", ")
	if mdd, ok := r.Summary["max_drawdown"]; ok {
		title += fmt.Sprintf("\nMax drawdown: %.2f%%", mdd*100)
	}
	return title
}
