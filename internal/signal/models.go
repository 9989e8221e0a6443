package signal

import (
	"fmt"
	"math"
)

// TrialKey is the structured identity of one flight-mill trial. It is
// assigned once at ingestion; downstream stages never parse identity back
// out of strings.
type TrialKey struct {
	Set     int    // experimental set number (1-based)
	Combo   int    // combination number within the set (1-based)
	Chamber string // chamber/channel id, e.g. "A1"
}

// String renders the key in the canonical "set003-2-A1" form used for
// labels and log fields.
func (k TrialKey) String() string {
	return fmt.Sprintf("set%03d-%d-%s", k.Set, k.Combo, k.Chamber)
}

// Validate reports an UnknownGroupingError if any identity component is
// absent or blank. Trials failing this check cannot be attributed to a set
// and are excluded from aggregation.
func (k TrialKey) Validate() error {
	switch {
	case k.Set <= 0:
		return &UnknownGroupingError{Key: k, Reason: "missing set id"}
	case k.Combo <= 0:
		return &UnknownGroupingError{Key: k, Reason: "missing combo id"}
	case k.Chamber == "":
		return &UnknownGroupingError{Key: k, Reason: "blank chamber id"}
	}
	return nil
}

// TrialSignal is one trial's ordered revolution-event record: each timestamp
// marks the optical sensor registering a trough (one revolution of the mill
// arm), in seconds from trial start.
type TrialSignal struct {
	Key        TrialKey
	Label      string    // source filename label, kept for traceability
	Times      []float64 // strictly increasing, seconds from trial start
	Duration   float64   // total recording duration, >= last timestamp
	ArmRadiusM float64   // mill arm radius in metres
}

// Circumference returns the circular flight path length implied by the arm
// radius, i.e. the distance covered per revolution.
func (s *TrialSignal) Circumference() float64 {
	return 2 * math.Pi * s.ArmRadiusM
}

// Validate checks the signal invariants: a non-empty, strictly monotonic
// timestamp sequence, a duration that covers it, and a physical arm radius.
func (s *TrialSignal) Validate() error {
	if len(s.Times) == 0 {
		return &InvalidSignalError{Key: s.Key, Reason: "no revolution events"}
	}
	for i := 1; i < len(s.Times); i++ {
		if s.Times[i] <= s.Times[i-1] {
			return &InvalidSignalError{
				Key:    s.Key,
				Reason: fmt.Sprintf("timestamps not strictly increasing at index %d (%.3f after %.3f)", i, s.Times[i], s.Times[i-1]),
			}
		}
	}
	if last := s.Times[len(s.Times)-1]; s.Duration < last {
		return &InvalidSignalError{
			Key:    s.Key,
			Reason: fmt.Sprintf("duration %.3fs shorter than last event at %.3fs", s.Duration, last),
		}
	}
	if s.ArmRadiusM <= 0 {
		return &InvalidSignalError{Key: s.Key, Reason: "arm radius must be positive"}
	}
	return nil
}

// VoltageTrace is a raw single-channel recording as written by the mill's
// data logger: a voltage sample per tick, before trough standardization.
type VoltageTrace struct {
	Key        TrialKey
	Label      string
	Times      []float64 // sample timestamps, seconds
	Volts      []float64 // sensor voltage per sample
	ArmRadiusM float64
}

// InvalidSignalError reports a malformed trial input (empty or
// non-monotonic timestamps, impossible duration). It excludes only the
// offending trial from a run.
type InvalidSignalError struct {
	Key    TrialKey
	Reason string
}

func (e *InvalidSignalError) Error() string {
	return fmt.Sprintf("invalid signal %s: %s", e.Key, e.Reason)
}

// UnknownGroupingError reports a trial whose set, combo or chamber identity
// is absent. Aggregation aborts only the affected set.
type UnknownGroupingError struct {
	Key    TrialKey
	Reason string
}

func (e *UnknownGroupingError) Error() string {
	return fmt.Sprintf("unknown grouping for %s: %s", e.Key, e.Reason)
}
