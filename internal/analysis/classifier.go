package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Thresholds are the relative-deviation bands separating benign signal
// noise from suspect anomalies. They are always supplied by the caller;
// the physical meaning of a deviation depends on the apparatus, so no
// values are hard-coded here.
type Thresholds struct {
	SmallBand float64 // deviations at or below this are ignored
	LargeBand float64 // deviations above this are large changes
}

// BaselinePolicy selects the reference a trial is compared against.
type BaselinePolicy string

const (
	// BaselineSelf compares a trial against its own record (the degenerate
	// zero-deviation reference, for single-trial sets or caller-supplied
	// references).
	BaselineSelf BaselinePolicy = "self"
	// BaselineSetMedian compares a trial against the per-metric median of
	// its set.
	BaselineSetMedian BaselinePolicy = "set-median"
)

// Valid reports whether the policy is one of the recognised options.
func (p BaselinePolicy) Valid() bool {
	return p == BaselineSelf || p == BaselineSetMedian
}

// DefaultMinTrials is the minimum set size for a set-median baseline.
const DefaultMinTrials = 2

// Baseline is the per-metric reference values a trial is measured against.
type Baseline struct {
	Troughs  float64
	Speed    float64
	Distance float64
}

// SelfBaseline returns the trial's own metrics as its reference.
func SelfBaseline(rec TroughRecord) Baseline {
	return Baseline{Troughs: float64(rec.Troughs), Speed: rec.Speed, Distance: rec.Distance}
}

// SetMedianBaseline computes the per-metric median over a set's trough
// records. It fails with a MissingBaselineError when the set holds fewer
// than minTrials records.
func SetMedianBaseline(setID int, records []TroughRecord, minTrials int) (Baseline, error) {
	if minTrials < DefaultMinTrials {
		minTrials = DefaultMinTrials
	}
	if len(records) < minTrials {
		return Baseline{}, &MissingBaselineError{SetID: setID, Trials: len(records), MinTrials: minTrials}
	}

	troughs := make([]float64, len(records))
	speeds := make([]float64, len(records))
	distances := make([]float64, len(records))
	for i, r := range records {
		troughs[i] = float64(r.Troughs)
		speeds[i] = r.Speed
		distances[i] = r.Distance
	}
	return Baseline{
		Troughs:  median(troughs),
		Speed:    median(speeds),
		Distance: median(distances),
	}, nil
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.LinInterp, sorted, nil)
}

// Classify compares a trial's metrics against the baseline: for each of
// trough count, speed and distance, the relative deviation is banded by the
// thresholds. Deviations inside the small band are noise; between the bands
// they count as small changes; beyond the large band they count as large
// changes and the trial's chamber id is recorded for traceability.
// Classification itself never fails.
func Classify(rec TroughRecord, base Baseline, th Thresholds) ChangeClassification {
	cls := ChangeClassification{Key: rec.Key}
	metrics := []struct {
		value, ref float64
	}{
		{float64(rec.Troughs), base.Troughs},
		{rec.Speed, base.Speed},
		{rec.Distance, base.Distance},
	}
	flagged := false
	for _, m := range metrics {
		dev := relativeDeviation(m.value, m.ref)
		switch {
		case dev <= th.SmallBand:
			// benign noise
		case dev <= th.LargeBand:
			cls.Small++
		default:
			cls.Large++
			flagged = true
		}
	}
	if flagged {
		cls.LargeChambers = []string{rec.Key.Chamber}
	}
	return cls
}

// relativeDeviation is |value-ref|/|ref|. A zero reference (a dead channel
// across the whole set) deviates by zero only if the value is also zero;
// any movement against a zero reference is infinitely large.
func relativeDeviation(value, ref float64) float64 {
	if ref == 0 {
		if value == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(value-ref) / math.Abs(ref)
}

// String implements fmt.Stringer for log fields.
func (t Thresholds) String() string {
	return fmt.Sprintf("small<=%.3g large>%.3g", t.SmallBand, t.LargeBand)
}
