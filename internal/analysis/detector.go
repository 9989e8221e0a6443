package analysis

import (
	"gonum.org/v1/gonum/stat"

	"github.com/user/flightmill_go/internal/signal"
)

// Detector derives trough metrics and speed trajectories from trial
// signals. The thresholds tune the trajectory cleaning only; the core
// trough/speed/distance computation has no tunable parts.
type Detector struct {
	MinSpeedMS float64 // instantaneous speeds below this are coasting, zeroed
	MaxSpeedMS float64 // speeds above this are false readings, dropped
	MaxGapS    float64 // gaps longer than this split flying bouts
}

// DefaultDetector returns a detector with the thresholds used for the
// reference mill (10 cm arm, slow-flying insects).
func DefaultDetector() Detector {
	return Detector{MinSpeedMS: 0.1, MaxSpeedMS: 0.75, MaxGapS: 7}
}

// Detect computes the trough record for one trial. It is deterministic and
// has no side effects; a malformed signal yields an InvalidSignalError.
//
// Each timestamp marks the sensor registering the arm passing, so a trial
// with n events has n-1 completed revolutions. A single event means no
// completed revolution: the record is explicit zeros, not a division by
// zero. Aggregate speed is cumulative distance over elapsed time rather
// than the mean of instantaneous speeds, which would over-weight short
// intervals.
func (d Detector) Detect(s *signal.TrialSignal) (TroughRecord, error) {
	if err := s.Validate(); err != nil {
		return TroughRecord{}, err
	}

	rec := TroughRecord{Key: s.Key, Label: s.Label}
	n := len(s.Times)
	if n < 2 {
		return rec, nil
	}

	intervals := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		intervals = append(intervals, s.Times[i]-s.Times[i-1])
	}

	rec.Troughs = n - 1
	rec.MeanInterval = stat.Mean(intervals, nil)
	rec.Distance = float64(rec.Troughs) * s.Circumference()
	if elapsed := s.Times[n-1] - s.Times[0]; elapsed > 0 {
		rec.Speed = rec.Distance / elapsed
	}
	return rec, nil
}

// Trajectory returns the cleaned instantaneous speed series for plotting
// and bout detection: the speed over each inter-trough interval, with
// sub-threshold coasting zeroed, false readings above MaxSpeedMS removed,
// and points separated from their predecessor by more than MaxGapS dropped
// as inter-bout idle time.
func (d Detector) Trajectory(s *signal.TrialSignal) (times, speeds []float64) {
	n := len(s.Times)
	if n < 3 {
		return nil, nil
	}
	circ := s.Circumference()

	rawTimes := make([]float64, 0, n-1)
	rawSpeeds := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		dt := s.Times[i] - s.Times[i-1]
		if dt <= 0 {
			continue
		}
		v := circ / dt
		if v < d.MinSpeedMS {
			// The magnetic bearing keeps the arm turning after the insect
			// stops; count those rotations as not flying.
			v = 0
		}
		rawTimes = append(rawTimes, s.Times[i])
		rawSpeeds = append(rawSpeeds, v)
	}

	var keptTimes, keptSpeeds []float64
	for i := range rawSpeeds {
		if rawSpeeds[i] > 0 && rawSpeeds[i] < d.MaxSpeedMS {
			keptTimes = append(keptTimes, rawTimes[i])
			keptSpeeds = append(keptSpeeds, rawSpeeds[i])
		}
	}
	if len(keptTimes) < 2 {
		return keptTimes, keptSpeeds
	}

	times = append(times, keptTimes[0])
	speeds = append(speeds, keptSpeeds[0])
	for i := 0; i < len(keptTimes)-1; i++ {
		if keptTimes[i+1]-keptTimes[i] <= d.MaxGapS {
			times = append(times, keptTimes[i+1])
			speeds = append(speeds, keptSpeeds[i+1])
		}
	}
	return times, speeds
}
