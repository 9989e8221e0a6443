package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// trajectoryGapS is the idle gap between flying bouts; the plotted speed is
// dropped to zero across longer gaps so bouts read as separate peaks.
const trajectoryGapS = 20

// CreateTrajectoryPlot renders a speed-versus-time flight trajectory with a
// dashed reference line at the false-reading cutoff, returning PNG bytes.
func CreateTrajectoryPlot(times, speeds []float64, label string, maxSpeedMS float64) ([]byte, error) {
	if len(times) == 0 || len(times) != len(speeds) {
		return nil, fmt.Errorf("trajectory for %s has %d times and %d speeds", label, len(times), len(speeds))
	}

	p := plot.New()
	p.Title.Text = "Flight Trajectory " + label
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Speed (m/s)"

	if maxSpeedMS > 0 {
		cutoff, err := plotter.NewLine(plotter.XYs{
			{X: times[0], Y: maxSpeedMS},
			{X: times[len(times)-1], Y: maxSpeedMS},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build cutoff line: %w", err)
		}
		cutoff.Color = color.RGBA{R: 255, A: 255}
		cutoff.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
		p.Add(cutoff)
		p.Legend.Add(fmt.Sprintf("%.2f m/s cutoff", maxSpeedMS), cutoff)
	}

	line, err := plotter.NewLine(shapeTrajectory(times, speeds))
	if err != nil {
		return nil, fmt.Errorf("failed to build trajectory line: %w", err)
	}
	line.Color = color.RGBA{B: 180, A: 255}
	p.Add(line)
	p.Legend.Add("speed", line)
	p.Legend.Top = true

	return writePNG(p, 6*vg.Inch, 3*vg.Inch)
}

// shapeTrajectory inserts zero-speed points on both sides of inter-bout
// gaps so the line drops to the axis between bouts instead of bridging
// them.
func shapeTrajectory(times, speeds []float64) plotter.XYs {
	var xys plotter.XYs
	for i := 0; i < len(times); i++ {
		xys = append(xys, plotter.XY{X: times[i], Y: speeds[i]})
		if i+1 < len(times) && times[i+1]-times[i] > trajectoryGapS {
			xys = append(xys,
				plotter.XY{X: times[i] + 1, Y: 0},
				plotter.XY{X: times[i+1] - 1, Y: 0},
			)
		}
	}
	return xys
}
