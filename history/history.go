// Package history plots solver convergence.
package history

import (
	"fmt"

	"github.com/notargets/DGMultigrid/solver"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Residuals pairs each step with its residual. Non-positive residuals are
// dropped since they have no place on a log axis.
func Residuals(res solver.Result) (xys plotter.XYs) {
	for i, r := range res.History {
		if r > 0 {
			xys = append(xys, plotter.XY{X: float64(i), Y: r})
		}
	}
	return
}

// Save writes the residual history as an image; the format follows the file
// extension.
func Save(res solver.Result, title, path string) error {
	xys := Residuals(res)
	if len(xys) == 0 {
		return fmt.Errorf("no residual history to plot")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "step"
	p.Y.Label.Text = "residual"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}

	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return fmt.Errorf("plotting residuals: %w", err)
	}
	p.Add(plotter.NewGrid(), line, points)
	if err = p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving plot %s: %w", path, err)
	}
	return nil
}
