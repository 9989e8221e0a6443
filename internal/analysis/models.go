package analysis

import (
	"fmt"

	"github.com/user/flightmill_go/internal/signal"
)

// TroughRecord holds the derived per-trial metrics. It is computed fresh
// from one TrialSignal and never mutated afterwards.
type TroughRecord struct {
	Key          signal.TrialKey
	Label        string
	Troughs      int     // completed revolutions (direction-change events)
	MeanInterval float64 // mean inter-trough interval, seconds
	Speed        float64 // aggregate speed: distance over elapsed time, m/s
	Distance     float64 // cumulative flight distance, metres
}

// ChangeClassification counts how many of a trial's derived metrics deviate
// from the reference baseline: Small for deviations inside the benign band,
// Large for suspect mechanical or behavioural anomalies.
type ChangeClassification struct {
	Key           signal.TrialKey
	Small         int
	Large         int
	LargeChambers []string // chamber ids that contributed a large change
}

// BoutStats summarises an individual's flying bouts over one trial.
type BoutStats struct {
	FlightTime    float64 // total seconds spent flying
	PortionFlying float64 // flight time over recording duration
	ShortestBout  float64
	LongestBout   float64
	Bins          []BoutBin
}

// BoutBin is one duration range of the bout composition breakdown.
type BoutBin struct {
	LoS     float64 // inclusive lower bound, seconds
	HiS     float64 // exclusive upper bound; +Inf for the open-ended bin
	Events  int     // bouts falling in the range
	Portion float64 // fraction of total flight time spent in the range
}

// MissingBaselineError reports that a set-median baseline was requested for
// a set with too few trials to compute a median.
type MissingBaselineError struct {
	SetID     int
	Trials    int
	MinTrials int
}

func (e *MissingBaselineError) Error() string {
	return fmt.Sprintf("set %d has %d trials, need %d for a set-median baseline", e.SetID, e.Trials, e.MinTrials)
}
