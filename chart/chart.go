// Package chart renders the explainability comparison as a PNG file.
// The original analysis popped an interactive window; a service binary
// writes to disk instead.
package chart

import (
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/cogniboost/explain"
	"github.com/YuminosukeSato/cogniboost/pkg/errors"
)

// RankComparison draws one bar pair per feature, SHAP rank beside LIME
// rank, and saves the chart to path. Lower bars mean more important
// features. Missing parent directories are created.
func RankComparison(agreement *explain.Agreement, path string) error {
	const op = "chart.RankComparison"

	if agreement == nil || len(agreement.Features) == 0 {
		return errors.NewValueError(op, "agreement has no ranked features")
	}
	if len(agreement.ShapRanks) != len(agreement.Features) ||
		len(agreement.LimeRanks) != len(agreement.Features) {
		return errors.NewValueError(op, "rank series do not match the feature list")
	}
	if path == "" {
		return errors.NewValueError(op, "output path is empty")
	}

	p := plot.New()
	p.Title.Text = "SHAP vs LIME feature ranks"
	p.Y.Label.Text = "rank (1 = most important)"

	barWidth := vg.Points(16)

	shapBars, err := plotter.NewBarChart(plotter.Values(agreement.ShapRanks), barWidth)
	if err != nil {
		return errors.NewModelError(op, "building SHAP bars", err)
	}
	shapBars.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	shapBars.Offset = -barWidth / 2

	limeBars, err := plotter.NewBarChart(plotter.Values(agreement.LimeRanks), barWidth)
	if err != nil {
		return errors.NewModelError(op, "building LIME bars", err)
	}
	limeBars.Color = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	limeBars.Offset = barWidth / 2

	p.Add(shapBars, limeBars)
	p.Legend.Add("SHAP", shapBars)
	p.Legend.Add("LIME", limeBars)
	p.Legend.Top = true
	p.NominalX(agreement.Features...)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.NewModelError(op, "creating output directory", err)
		}
	}
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.NewModelError(op, "saving chart", err)
	}
	return nil
}
