package analysis

import "math"

// boutGapS separates two flying bouts: consecutive troughs further apart
// than this belong to different bouts.
const boutGapS = 20

// boutBinEdges are the duration ranges of the bout composition breakdown,
// in seconds. The last range is open-ended.
var boutBinEdges = []float64{60, 300, 900, 3600, 14400}

// Bouts derives flying-bout statistics from a cleaned trajectory: bout
// boundaries are gaps longer than boutGapS, bout durations are binned into
// the standard duration ranges, and the portion of the recording spent
// flying is computed against the trial duration.
func Bouts(times []float64, duration float64) BoutStats {
	stats := BoutStats{Bins: newBoutBins()}
	if len(times) < 3 {
		return stats
	}

	// Boundary times: the start of the first bout, then both sides of every
	// long gap, then the end of the last bout.
	var bounds []float64
	if times[1]-times[0] < boutGapS {
		bounds = append(bounds, times[0])
	}
	for i := 0; i < len(times)-1; i++ {
		if times[i+1]-times[i] >= boutGapS {
			bounds = append(bounds, times[i], times[i+1])
		}
	}
	if len(bounds) == 0 || bounds[len(bounds)-1] != times[len(times)-1] {
		bounds = append(bounds, times[len(times)-1])
	}
	bounds = dedupeSorted(bounds)

	// An odd boundary count means the trailing boundary closes one extra
	// bout starting at the last paired end.
	var tail float64
	if len(bounds)%2 != 0 {
		tail = bounds[len(bounds)-1]
		bounds = bounds[:len(bounds)-1]
	}

	var durations []float64
	for i := 0; i+1 < len(bounds); i += 2 {
		durations = append(durations, bounds[i+1]-bounds[i])
	}
	if tail != 0 && len(bounds) > 0 {
		durations = append(durations, tail-bounds[len(bounds)-1])
	}
	if len(durations) == 0 {
		return stats
	}

	stats.ShortestBout = math.Inf(1)
	for _, d := range durations {
		stats.FlightTime += d
		stats.LongestBout = math.Max(stats.LongestBout, d)
		stats.ShortestBout = math.Min(stats.ShortestBout, d)
	}
	if duration > 0 {
		stats.PortionFlying = stats.FlightTime / duration
	}
	if stats.FlightTime > 0 {
		for _, d := range durations {
			for i := range stats.Bins {
				if d > stats.Bins[i].LoS && d <= stats.Bins[i].HiS {
					stats.Bins[i].Events++
					stats.Bins[i].Portion += d / stats.FlightTime
					break
				}
			}
		}
	}
	return stats
}

func newBoutBins() []BoutBin {
	bins := make([]BoutBin, 0, len(boutBinEdges))
	for i, lo := range boutBinEdges {
		hi := math.Inf(1)
		if i+1 < len(boutBinEdges) {
			hi = boutBinEdges[i+1]
		}
		bins = append(bins, BoutBin{LoS: lo, HiS: hi})
	}
	return bins
}

func dedupeSorted(vals []float64) []float64 {
	if len(vals) < 2 {
		return vals
	}
	out := vals[:1]
	for _, v := range vals[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
