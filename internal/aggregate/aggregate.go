// Package aggregate folds per-trial classifications into per-set and
// per-combo records. Accumulation uses only commutative operations (sums,
// counts, set-union, sorted series) so results are independent of input
// order and per-worker accumulators can be merged after a parallel
// classification pass.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/user/flightmill_go/internal/analysis"
	"github.com/user/flightmill_go/internal/signal"
)

// TrialResult pairs one trial's derived metrics with its classification.
type TrialResult struct {
	Record analysis.TroughRecord
	Class  analysis.ChangeClassification
}

// ComboKey identifies a combination within a set.
type ComboKey struct {
	Set   int
	Combo int
}

// Label is the canonical combo label carried into the combo table.
func (k ComboKey) Label() string {
	return fmt.Sprintf("set%03d-%d", k.Set, k.Combo)
}

// SetSummary aggregates classifications over all trials of one set. It is
// created once the set's trials are all accumulated and immutable after.
type SetSummary struct {
	SetID         int
	Total         int // classified trials in the set
	Small         int // summed small changes
	Large         int // summed large changes
	LargeChambers []string // distinct chamber ids with large changes, sorted
}

// ComboRecord aggregates trough metrics over all trials sharing a combo id
// within a set, one value series per metric. Series are sorted ascending so
// the record does not depend on accumulation order.
type ComboRecord struct {
	Key       ComboKey
	Label     string
	Troughs   []float64
	Speeds    []float64
	Distances []float64
}

type setAccum struct {
	total    int
	small    int
	large    int
	chambers map[string]struct{}
}

type comboAccum struct {
	troughs   []float64
	speeds    []float64
	distances []float64
}

// Accumulator is the explicit gather-side state of an aggregation run. It
// is not safe for concurrent use; run one per worker and Merge.
type Accumulator struct {
	sets     map[int]*setAccum
	combos   map[ComboKey]*comboAccum
	poisoned map[int]error // sets aborted by a grouping error
	unknown  []error       // trials with no usable set id at all
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		sets:     make(map[int]*setAccum),
		combos:   make(map[ComboKey]*comboAccum),
		poisoned: make(map[int]error),
	}
}

// Add folds one classified trial into the accumulator. A trial without a
// set id is recorded as unknown and dropped; any other identity defect
// poisons the trial's set so no partial summary is ever emitted for it.
// The returned error reports the defect; the accumulator remains usable.
func (a *Accumulator) Add(r TrialResult) error {
	key := r.Record.Key
	if key.Set <= 0 {
		err := &signal.UnknownGroupingError{Key: key, Reason: "missing set id"}
		a.unknown = append(a.unknown, err)
		return err
	}
	if err := key.Validate(); err != nil {
		if _, seen := a.poisoned[key.Set]; !seen {
			a.poisoned[key.Set] = err
		}
		return err
	}

	s := a.sets[key.Set]
	if s == nil {
		s = &setAccum{chambers: make(map[string]struct{})}
		a.sets[key.Set] = s
	}
	s.total++
	s.small += r.Class.Small
	s.large += r.Class.Large
	for _, c := range r.Class.LargeChambers {
		s.chambers[c] = struct{}{}
	}

	ck := ComboKey{Set: key.Set, Combo: key.Combo}
	c := a.combos[ck]
	if c == nil {
		c = &comboAccum{}
		a.combos[ck] = c
	}
	c.troughs = append(c.troughs, float64(r.Record.Troughs))
	c.speeds = append(c.speeds, r.Record.Speed)
	c.distances = append(c.distances, r.Record.Distance)
	return nil
}

// Merge folds another accumulator into this one. Merge order does not
// affect the finalized result.
func (a *Accumulator) Merge(b *Accumulator) {
	for id, bs := range b.sets {
		s := a.sets[id]
		if s == nil {
			s = &setAccum{chambers: make(map[string]struct{})}
			a.sets[id] = s
		}
		s.total += bs.total
		s.small += bs.small
		s.large += bs.large
		for c := range bs.chambers {
			s.chambers[c] = struct{}{}
		}
	}
	for ck, bc := range b.combos {
		c := a.combos[ck]
		if c == nil {
			c = &comboAccum{}
			a.combos[ck] = c
		}
		c.troughs = append(c.troughs, bc.troughs...)
		c.speeds = append(c.speeds, bc.speeds...)
		c.distances = append(c.distances, bc.distances...)
	}
	for id, err := range b.poisoned {
		if _, seen := a.poisoned[id]; !seen {
			a.poisoned[id] = err
		}
	}
	a.unknown = append(a.unknown, b.unknown...)
}

// Poison aborts a set explicitly, e.g. when its baseline cannot be
// computed. Already-poisoned sets keep their first error.
func (a *Accumulator) Poison(setID int, err error) {
	if _, seen := a.poisoned[setID]; !seen {
		a.poisoned[setID] = err
	}
}

// Finalize produces the immutable per-set summaries and per-combo records.
// Poisoned sets are withheld entirely (summaries and combos) and returned
// in the skipped map; other sets are unaffected.
func (a *Accumulator) Finalize() (map[int]SetSummary, map[ComboKey]ComboRecord, map[int]error) {
	summaries := make(map[int]SetSummary, len(a.sets))
	for id, s := range a.sets {
		if _, bad := a.poisoned[id]; bad {
			continue
		}
		chambers := make([]string, 0, len(s.chambers))
		for c := range s.chambers {
			chambers = append(chambers, c)
		}
		sort.Strings(chambers)
		summaries[id] = SetSummary{
			SetID:         id,
			Total:         s.total,
			Small:         s.small,
			Large:         s.large,
			LargeChambers: chambers,
		}
	}

	combos := make(map[ComboKey]ComboRecord, len(a.combos))
	for ck, c := range a.combos {
		if _, bad := a.poisoned[ck.Set]; bad {
			continue
		}
		rec := ComboRecord{
			Key:       ck,
			Label:     ck.Label(),
			Troughs:   sortedCopy(c.troughs),
			Speeds:    sortedCopy(c.speeds),
			Distances: sortedCopy(c.distances),
		}
		combos[ck] = rec
	}

	skipped := make(map[int]error, len(a.poisoned))
	for id, err := range a.poisoned {
		skipped[id] = err
	}
	return summaries, combos, skipped
}

// Unknown returns the grouping errors for trials that could not be
// attributed to any set.
func (a *Accumulator) Unknown() []error {
	return append([]error(nil), a.unknown...)
}

// Aggregate is the one-shot fold over a classified trial sequence.
func Aggregate(results []TrialResult) (map[int]SetSummary, map[ComboKey]ComboRecord, map[int]error) {
	acc := NewAccumulator()
	for _, r := range results {
		// Defects are recorded inside the accumulator; the fold continues.
		_ = acc.Add(r)
	}
	return acc.Finalize()
}

func sortedCopy(vals []float64) []float64 {
	out := append([]float64(nil), vals...)
	sort.Float64s(out)
	return out
}
