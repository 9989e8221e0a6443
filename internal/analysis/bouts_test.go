package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trajectoryTimes builds 1 Hz trough times over the given [start, end]
// second ranges, leaving inter-bout gaps between them.
func trajectoryTimes(ranges ...[2]int) []float64 {
	var times []float64
	for _, r := range ranges {
		for s := r[0]; s <= r[1]; s++ {
			times = append(times, float64(s))
		}
	}
	return times
}

func TestBouts_SingleBout(t *testing.T) {
	stats := Bouts(trajectoryTimes([2]int{0, 100}), 200)

	assert.InDelta(t, 100, stats.FlightTime, 1e-9)
	assert.InDelta(t, 0.5, stats.PortionFlying, 1e-9)
	assert.InDelta(t, 100, stats.ShortestBout, 1e-9)
	assert.InDelta(t, 100, stats.LongestBout, 1e-9)

	require.Len(t, stats.Bins, 5)
	assert.Equal(t, 1, stats.Bins[0].Events) // 60-300s range
	assert.InDelta(t, 1.0, stats.Bins[0].Portion, 1e-9)
	for _, bin := range stats.Bins[1:] {
		assert.Zero(t, bin.Events)
	}
}

func TestBouts_SplitsOnLongGaps(t *testing.T) {
	// A 70s bout, 25s idle, then a 370s bout.
	times := trajectoryTimes([2]int{0, 70}, [2]int{95, 465})
	stats := Bouts(times, 500)

	assert.InDelta(t, 440, stats.FlightTime, 1e-9)
	assert.InDelta(t, 0.88, stats.PortionFlying, 1e-9)
	assert.InDelta(t, 70, stats.ShortestBout, 1e-9)
	assert.InDelta(t, 370, stats.LongestBout, 1e-9)

	require.Len(t, stats.Bins, 5)
	assert.Equal(t, 1, stats.Bins[0].Events) // 70s bout in 60-300s
	assert.Equal(t, 1, stats.Bins[1].Events) // 370s bout in 300-900s
	assert.InDelta(t, 70.0/440, stats.Bins[0].Portion, 1e-9)
	assert.InDelta(t, 370.0/440, stats.Bins[1].Portion, 1e-9)
}

func TestBouts_ShortGapsDoNotSplit(t *testing.T) {
	// 19s pauses stay inside one bout.
	times := []float64{0, 19, 38, 57, 76, 95}
	stats := Bouts(times, 100)

	assert.InDelta(t, 95, stats.FlightTime, 1e-9)
	assert.InDelta(t, 95, stats.LongestBout, 1e-9)
	assert.InDelta(t, stats.ShortestBout, stats.LongestBout, 1e-9)
}

func TestBouts_TooFewEvents(t *testing.T) {
	stats := Bouts([]float64{1, 2}, 100)
	assert.Zero(t, stats.FlightTime)
	assert.Zero(t, stats.PortionFlying)
	require.Len(t, stats.Bins, 5)
	for _, bin := range stats.Bins {
		assert.Zero(t, bin.Events)
	}
}

func TestBouts_BinEdgesCoverLongestRange(t *testing.T) {
	stats := Bouts(nil, 0)
	require.Len(t, stats.Bins, 5)
	assert.InDelta(t, 60, stats.Bins[0].LoS, 1e-9)
	assert.True(t, math.IsInf(stats.Bins[4].HiS, 1))
}
