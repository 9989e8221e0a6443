// Package diagnostics orchestrates a full run: parallel trough detection
// across trials, per-set baselines, parallel classification, and a merged
// commutative gather into set summaries and combo records.
package diagnostics

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/user/flightmill_go/internal/aggregate"
	"github.com/user/flightmill_go/internal/analysis"
	"github.com/user/flightmill_go/internal/config"
	"github.com/user/flightmill_go/internal/signal"
)

// Pipeline runs the diagnostics passes. Detection and classification are
// pure per-trial functions sharing only read-only configuration, so both
// passes fan out across workers without locking; the gather step merges
// one accumulator per worker.
type Pipeline struct {
	Detector   analysis.Detector
	Thresholds analysis.Thresholds
	Policy     analysis.BaselinePolicy
	MinTrials  int
	Workers    int
}

// New builds a pipeline from a validated configuration.
func New(cfg config.Config) *Pipeline {
	return &Pipeline{
		Detector: analysis.Detector{
			MinSpeedMS: cfg.Detector.MinSpeedMS,
			MaxSpeedMS: cfg.Detector.MaxSpeedMS,
			MaxGapS:    cfg.Detector.MaxGapS,
		},
		Thresholds: analysis.Thresholds{
			SmallBand: cfg.Thresholds.SmallBand,
			LargeBand: cfg.Thresholds.LargeBand,
		},
		Policy:    analysis.BaselinePolicy(cfg.Baseline.Policy),
		MinTrials: cfg.Baseline.MinTrials,
		Workers:   cfg.Workers,
	}
}

// TrialError records a trial excluded from aggregation and why.
type TrialError struct {
	Label string
	Err   error
}

// Result is the outcome of one diagnostics run. Summaries and combos hold
// only sets that were fully processed; everything else is accounted for in
// Invalid (per-trial) and Skipped (per-set).
type Result struct {
	RunID     string
	Summaries map[int]aggregate.SetSummary
	Combos    map[aggregate.ComboKey]aggregate.ComboRecord
	Records   []analysis.TroughRecord
	Invalid   []TrialError
	Skipped   map[int]error
}

type detectOut struct {
	sig *signal.TrialSignal
	rec analysis.TroughRecord
	err error
}

// Run executes the two passes over the trial signals. Malformed trials are
// isolated into Result.Invalid without aborting the run; a set whose median
// baseline cannot be computed is skipped on its own. Cancelling the context
// stops further trial submission, and sets left partially processed are
// withheld rather than emitted incomplete.
func (p *Pipeline) Run(ctx context.Context, signals []*signal.TrialSignal) (*Result, error) {
	workers := p.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	res := &Result{
		RunID:     uuid.NewString(),
		Skipped:   make(map[int]error),
		Summaries: make(map[int]aggregate.SetSummary),
		Combos:    make(map[aggregate.ComboKey]aggregate.ComboRecord),
	}
	log := logrus.WithField("run_id", res.RunID)
	log.Infof("diagnosing %d trials with %d workers (baseline=%s, %s)",
		len(signals), workers, p.Policy, p.Thresholds)

	expected := make(map[int]int)
	for _, s := range signals {
		if s.Key.Set > 0 {
			expected[s.Key.Set]++
		}
	}

	// Pass 1: scatter detection.
	jobs := make(chan *signal.TrialSignal)
	out := make(chan detectOut)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range jobs {
				rec, err := p.Detector.Detect(s)
				out <- detectOut{sig: s, rec: rec, err: err}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, s := range signals {
			select {
			case <-ctx.Done():
				return
			case jobs <- s:
			}
		}
	}()
	go func() {
		wg.Wait()
		close(out)
	}()

	processed := make(map[int]int)
	bySet := make(map[int][]analysis.TroughRecord)
	for o := range out {
		if o.sig.Key.Set > 0 {
			processed[o.sig.Key.Set]++
		}
		if o.err != nil {
			log.Warnf("excluding trial %s: %v", o.sig.Label, o.err)
			res.Invalid = append(res.Invalid, TrialError{Label: o.sig.Label, Err: o.err})
			continue
		}
		res.Records = append(res.Records, o.rec)
		if o.sig.Key.Set > 0 {
			bySet[o.sig.Key.Set] = append(bySet[o.sig.Key.Set], o.rec)
		}
	}
	for set, want := range expected {
		if processed[set] != want {
			res.Skipped[set] = ctx.Err()
		}
	}

	// Baselines are computed once per complete set and read-only afterwards.
	baselines := make(map[int]analysis.Baseline)
	if p.Policy == analysis.BaselineSetMedian {
		for set, recs := range bySet {
			if _, bad := res.Skipped[set]; bad {
				continue
			}
			base, err := analysis.SetMedianBaseline(set, recs, p.MinTrials)
			if err != nil {
				log.Warnf("skipping set %d: %v", set, err)
				res.Skipped[set] = err
				continue
			}
			baselines[set] = base
		}
	}

	// Pass 2: scatter classification, one accumulator per worker.
	accs := make([]*aggregate.Accumulator, workers)
	var cwg sync.WaitGroup
	for w := 0; w < workers; w++ {
		accs[w] = aggregate.NewAccumulator()
		cwg.Add(1)
		go func(w int) {
			defer cwg.Done()
			for i := w; i < len(res.Records); i += workers {
				rec := res.Records[i]
				if _, bad := res.Skipped[rec.Key.Set]; bad {
					continue
				}
				base, ok := baselines[rec.Key.Set]
				if !ok {
					base = analysis.SelfBaseline(rec)
				}
				cls := analysis.Classify(rec, base, p.Thresholds)
				// Identity defects are recorded inside the accumulator.
				_ = accs[w].Add(aggregate.TrialResult{Record: rec, Class: cls})
			}
		}(w)
	}
	cwg.Wait()

	acc := accs[0]
	for _, other := range accs[1:] {
		acc.Merge(other)
	}
	for set, err := range res.Skipped {
		acc.Poison(set, err)
	}

	summaries, combos, skipped := acc.Finalize()
	res.Summaries = summaries
	res.Combos = combos
	res.Skipped = skipped
	for _, err := range acc.Unknown() {
		res.Invalid = append(res.Invalid, TrialError{Err: err})
	}

	sort.Slice(res.Records, func(i, j int) bool { return res.Records[i].Label < res.Records[j].Label })
	log.Infof("run complete: %d sets summarised, %d sets skipped, %d trials excluded",
		len(res.Summaries), len(res.Skipped), len(res.Invalid))
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}
