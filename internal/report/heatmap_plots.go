package report

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
)

// devGrid adapts a deviation-sweep matrix to plotter.GridXYZ: row r is the
// r-th min deviation, column c the c-th max deviation.
type devGrid struct {
	devs []float64
	vals [][]float64
}

func (g devGrid) Dims() (c, r int)   { return len(g.devs), len(g.devs) }
func (g devGrid) Z(c, r int) float64 { return g.vals[r][c] }
func (g devGrid) X(c int) float64    { return g.devs[c] }
func (g devGrid) Y(r int) float64    { return g.devs[r] }

// CreateSweepHeatmap renders one metric's sweep matrix as an annotated
// heatmap (min deviation on Y, max deviation on X, metric value per cell)
// and returns the PNG bytes.
func CreateSweepHeatmap(devs []float64, matrix [][]float64, plotTitle string) ([]byte, error) {
	if len(devs) == 0 || len(matrix) != len(devs) {
		return nil, fmt.Errorf("sweep matrix is %dx? but grid has %d deviations", len(matrix), len(devs))
	}
	for i, row := range matrix {
		if len(row) != len(devs) {
			return nil, fmt.Errorf("sweep matrix row %d has %d values, want %d", i, len(row), len(devs))
		}
	}

	grid := devGrid{devs: devs, vals: matrix}
	hm := plotter.NewHeatMap(grid, palette.Heat(12, 1))
	if hm.Min == hm.Max {
		// A flat matrix (the durable-file case) still needs a non-empty
		// colour range to draw.
		hm.Max = hm.Min + 1
	}

	p := plot.New()
	p.Title.Text = plotTitle
	p.X.Label.Text = "Max Dev Val"
	p.Y.Label.Text = "Min Dev Val"
	p.Add(hm)

	labels, err := cellLabels(grid)
	if err != nil {
		return nil, err
	}
	p.Add(labels)

	return writePNG(p, 5*vg.Inch, 4*vg.Inch)
}

// cellLabels annotates every heatmap cell with its value, small white
// text centred on the cell.
func cellLabels(g devGrid) (*plotter.Labels, error) {
	var xys plotter.XYs
	var strs []string
	cols, rows := g.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			xys = append(xys, plotter.XY{X: g.X(c), Y: g.Y(r)})
			strs = append(strs, fmt.Sprintf("%.2f", g.Z(c, r)))
		}
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: strs})
	if err != nil {
		return nil, fmt.Errorf("failed to build heatmap labels: %w", err)
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].Color = color.White
		labels.TextStyle[i].Font.Size = vg.Points(7)
		labels.TextStyle[i].XAlign = text.XCenter
		labels.TextStyle[i].YAlign = text.YCenter
	}
	return labels, nil
}

func writePNG(p *plot.Plot, w, h vg.Length) ([]byte, error) {
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to render plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode plot: %w", err)
	}
	return buf.Bytes(), nil
}
