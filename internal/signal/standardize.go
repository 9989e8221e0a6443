package signal

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	// suppressWindow is the number of samples zeroed after a rejected double
	// trough, matching the logger's 100 samples/s rate (peaks span 4-30 points).
	suppressWindow = 100
)

// doubleTroughLookbacks are the offsets checked behind a candidate trough to
// reject echoes of the same arm passage.
var doubleTroughLookbacks = [...]int{3, 5, 7}

// Standardize converts a raw voltage trace into a trial signal by marking
// deep excursions below a confidence band around the mean voltage as troughs.
//
// A band is placed around the channel mean using minDev (below) and maxDev
// (above). Samples whose band-normalized value falls far below the band are
// trough-like; runs of trough-like samples are compressed to a single trough
// event, and a candidate closely following another trough is treated as a
// double reading of the same passage and suppressed.
func (tr *VoltageTrace) Standardize(minDev, maxDev float64) *TrialSignal {
	n := len(tr.Volts)
	sig := &TrialSignal{Key: tr.Key, Label: tr.Label, ArmRadiusM: tr.ArmRadiusM}
	if n == 0 || len(tr.Times) != n {
		return sig
	}

	volts := make([]float64, n)
	for i, v := range tr.Volts {
		volts[i] = math.Round(v*100) / 100
	}
	mean := stat.Mean(volts, nil)
	minVal := math.Round((mean-minDev)*100) / 100
	maxVal := math.Round((mean+maxDev)*100) / 100
	width := maxVal - minVal

	marks := make([]int, n)
	if width != 0 {
		for i, v := range volts {
			if (v-minVal)/width < -2 {
				marks[i] = 1
			}
		}
	}

	start := tr.Times[0]
	var times []float64
	for j := 1; j < n-1; j++ {
		if marks[j] <= marks[j-1] || marks[j] < marks[j+1] {
			continue
		}
		double := false
		for _, back := range doubleTroughLookbacks {
			if j-back >= 0 && marks[j-back] >= marks[j] {
				double = true
				break
			}
		}
		if double {
			for i := j; i < j+suppressWindow && i < n; i++ {
				marks[i] = 0
			}
			continue
		}
		times = append(times, tr.Times[j]-start)
	}

	sig.Times = times
	sig.Duration = tr.Times[n-1] - start
	return sig
}
