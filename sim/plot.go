package sim

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// New2DPlot creates a new plot of a controlled simulation from two data
// sources:
// planned: state trajectory planned by the optimizer
// actual:  state trajectory of the simulated plant
// Both matrices are expected to have one row per time point and at least
// 2 columns, the first two of which are plotted against each other.
// It returns error if the plot fails to be created. This can be due to either of the following conditions:
// * either of the supplied data matrices is nil
// * either of the supplied data matrices does not have at least 2 columns
// * gonum plot fails to be created
func New2DPlot(planned, actual *mat.Dense) (*plot.Plot, error) {
	if planned == nil || actual == nil {
		return nil, fmt.Errorf("Invalid data supplied")
	}

	_, cp := planned.Dims()
	_, ca := actual.Dims()

	if cp < 2 || ca < 2 {
		return nil, fmt.Errorf("Invalid data dimensions")
	}

	p := plot.New()

	p.Title.Text = "Simulation"
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	legend := plot.NewLegend()
	legend.Top = true
	p.Legend = legend

	// Make a line plotter for the planned trajectory
	plannedLine, err := plotter.NewLine(makePoints(planned))
	if err != nil {
		return nil, err
	}
	plannedLine.Color = color.RGBA{R: 255, B: 128, A: 255}
	plannedLine.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}

	p.Add(plannedLine)
	p.Legend.Add("planned", plannedLine)

	// Make a scatter plotter for the simulated plant trajectory
	actualScatter, err := plotter.NewScatter(makePoints(actual))
	if err != nil {
		return nil, fmt.Errorf("Failed to create scatter: %v", err)
	}
	actualScatter.GlyphStyle.Color = color.RGBA{R: 169, G: 169, B: 169}
	actualScatter.Shape = draw.CrossGlyph{}
	actualScatter.GlyphStyle.Radius = vg.Points(3)

	p.Add(actualScatter)
	p.Legend.Add("simulated", actualScatter)

	return p, nil
}

func makePoints(m *mat.Dense) plotter.XYs {
	r, _ := m.Dims()
	pts := make(plotter.XYs, r)
	for i := 0; i < r; i++ {
		pts[i].X = m.At(i, 0)
		pts[i].Y = m.At(i, 1)
	}

	return pts
}
