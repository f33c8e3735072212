// Package visualize renders training diagnostics as image files.
package visualize

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Abdullahalhasan627/ShieldAI/pkg/errors"
)

// SaveLossCurve renders the per-iteration training loss as a PNG line
// chart. The format is chosen by the path extension, as plot.Save does.
func SaveLossCurve(losses []float64, path string) error {
	if len(losses) == 0 {
		return errors.NewValueError("visualize.SaveLossCurve", "loss history is empty")
	}

	p := plot.New()
	p.Title.Text = "Training Loss"
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Binary log loss"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(losses))
	for i, loss := range losses {
		pts[i].X = float64(i + 1)
		pts[i].Y = loss
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "visualize: building loss line")
	}
	p.Add(line)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "visualize: saving %s", path)
	}
	return nil
}
