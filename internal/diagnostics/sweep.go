package diagnostics

import (
	"errors"

	"github.com/user/flightmill_go/internal/signal"
)

// SweepResult holds the standardization-sensitivity matrices for one
// recording: metric value per (minDev, maxDev) combination of the deviation
// grid. Row i is minDev=Devs[i], column j is maxDev=Devs[j].
//
// A recording with little noise and well-formed troughs is durable to small
// deviation changes, so a large max-min spread across a matrix marks a file
// worth inspecting before trusting its trough counts.
type SweepResult struct {
	Key       signal.TrialKey
	Label     string
	Devs      []float64
	Troughs   [][]float64
	Speeds    [][]float64
	Distances [][]float64
}

// Sweep standardizes the trace under every (minDev, maxDev) combination of
// the grid and detects each resulting signal. Combinations yielding no
// troughs at all contribute zeros rather than failing the sweep.
func (p *Pipeline) Sweep(trace *signal.VoltageTrace, devs []float64) (*SweepResult, error) {
	if len(devs) == 0 {
		return nil, errors.New("sweep needs a non-empty deviation grid")
	}
	res := &SweepResult{Key: trace.Key, Label: trace.Label, Devs: devs}
	for _, minDev := range devs {
		troughs := make([]float64, 0, len(devs))
		speeds := make([]float64, 0, len(devs))
		distances := make([]float64, 0, len(devs))
		for _, maxDev := range devs {
			sig := trace.Standardize(minDev, maxDev)
			if len(sig.Times) == 0 {
				troughs = append(troughs, 0)
				speeds = append(speeds, 0)
				distances = append(distances, 0)
				continue
			}
			rec, err := p.Detector.Detect(sig)
			if err != nil {
				return nil, err
			}
			troughs = append(troughs, float64(rec.Troughs))
			speeds = append(speeds, rec.Speed)
			distances = append(distances, rec.Distance)
		}
		res.Troughs = append(res.Troughs, troughs)
		res.Speeds = append(res.Speeds, speeds)
		res.Distances = append(res.Distances, distances)
	}
	return res, nil
}

// Deltas returns the max-min spread of each metric across its matrix.
func (r *SweepResult) Deltas() (troughs, speeds, distances float64) {
	return matrixDelta(r.Troughs), matrixDelta(r.Speeds), matrixDelta(r.Distances)
}

func matrixDelta(m [][]float64) float64 {
	first := true
	var lo, hi float64
	for _, row := range m {
		for _, v := range row {
			if first {
				lo, hi = v, v
				first = false
				continue
			}
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return hi - lo
}
