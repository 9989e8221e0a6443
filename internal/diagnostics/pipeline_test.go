package diagnostics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/flightmill_go/internal/aggregate"
	"github.com/user/flightmill_go/internal/analysis"
	"github.com/user/flightmill_go/internal/config"
	"github.com/user/flightmill_go/internal/signal"
)

// trialAt builds a trial with troughs+1 revolution events at a constant
// two-revolutions-per-second rate on the default 10 cm arm.
func trialAt(set, combo int, chamber string, troughs int) *signal.TrialSignal {
	key := signal.TrialKey{Set: set, Combo: combo, Chamber: chamber}
	times := make([]float64, troughs+1)
	for i := range times {
		times[i] = float64(i) * 0.5
	}
	return &signal.TrialSignal{
		Key:        key,
		Label:      key.String(),
		Times:      times,
		Duration:   times[len(times)-1] + 1,
		ArmRadiusM: 0.1,
	}
}

func TestRun_SetMedianClassification(t *testing.T) {
	pipe := New(config.Default())
	pipe.Workers = 3

	// Set 1: trough counts 10, 11, 50. Against the 11-count median, A1 and
	// A2 sit inside the small band while A3's trough count and distance are
	// both far beyond the large band. Aggregate speed is rate-derived and
	// identical across the set.
	signals := []*signal.TrialSignal{
		trialAt(1, 1, "A1", 10),
		trialAt(1, 1, "A2", 11),
		trialAt(1, 1, "A3", 50),
	}

	res, err := pipe.Run(context.Background(), signals)
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Empty(t, res.Invalid)
	assert.Empty(t, res.Skipped)

	require.Contains(t, res.Summaries, 1)
	s := res.Summaries[1]
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 0, s.Small)
	assert.Equal(t, 2, s.Large) // troughs and distance on A3
	assert.Equal(t, []string{"A3"}, s.LargeChambers)

	require.Contains(t, res.Combos, aggregate.ComboKey{Set: 1, Combo: 1})
	c := res.Combos[aggregate.ComboKey{Set: 1, Combo: 1}]
	assert.Equal(t, []float64{10, 11, 50}, c.Troughs)
	require.Len(t, res.Records, 3)
	assert.Equal(t, "set001-1-A1", res.Records[0].Label)
}

func TestRun_MalformedTrialExcludedNotFatal(t *testing.T) {
	pipe := New(config.Default())

	bad := &signal.TrialSignal{
		Key:        signal.TrialKey{Set: 1, Combo: 1, Chamber: "A4"},
		Label:      "set001-1-A4",
		Times:      []float64{0.0, 0.5, 0.3},
		Duration:   1,
		ArmRadiusM: 0.1,
	}
	signals := []*signal.TrialSignal{
		trialAt(1, 1, "A1", 10),
		trialAt(1, 1, "A2", 11),
		bad,
	}

	res, err := pipe.Run(context.Background(), signals)
	require.NoError(t, err)

	require.Len(t, res.Invalid, 1)
	assert.Equal(t, "set001-1-A4", res.Invalid[0].Label)
	var se *signal.InvalidSignalError
	assert.True(t, errors.As(res.Invalid[0].Err, &se))

	// The remaining trials still summarise; the bad one is not counted.
	require.Contains(t, res.Summaries, 1)
	assert.Equal(t, 2, res.Summaries[1].Total)
}

func TestRun_SkipsSetWithoutBaseline(t *testing.T) {
	pipe := New(config.Default())

	signals := []*signal.TrialSignal{
		trialAt(1, 1, "A1", 10),
		trialAt(1, 1, "A2", 11),
		trialAt(2, 1, "B1", 20), // lone trial, no set-median possible
	}

	res, err := pipe.Run(context.Background(), signals)
	require.NoError(t, err)

	assert.Contains(t, res.Summaries, 1)
	assert.NotContains(t, res.Summaries, 2)
	require.Contains(t, res.Skipped, 2)
	var me *analysis.MissingBaselineError
	assert.True(t, errors.As(res.Skipped[2], &me))
	assert.NotContains(t, res.Combos, aggregate.ComboKey{Set: 2, Combo: 1})
}

func TestRun_SelfBaselinePolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Baseline.Policy = string(analysis.BaselineSelf)
	pipe := New(cfg)

	// Under the self policy even a lone, wildly different trial never
	// deviates from its own record.
	signals := []*signal.TrialSignal{
		trialAt(1, 1, "A1", 10),
		trialAt(2, 1, "B1", 500),
	}

	res, err := pipe.Run(context.Background(), signals)
	require.NoError(t, err)
	assert.Empty(t, res.Skipped)
	require.Contains(t, res.Summaries, 1)
	require.Contains(t, res.Summaries, 2)
	for _, s := range res.Summaries {
		assert.Zero(t, s.Small)
		assert.Zero(t, s.Large)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	pipe := New(config.Default())
	pipe.Workers = 2

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	signals := []*signal.TrialSignal{
		trialAt(1, 1, "A1", 10),
		trialAt(1, 1, "A2", 11),
		trialAt(1, 1, "A3", 12),
	}
	res, err := pipe.Run(ctx, signals)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)

	// Never a partial set: either all three trials made it through before
	// the cancellation took hold, or the set is withheld.
	if s, ok := res.Summaries[1]; ok {
		assert.Equal(t, 3, s.Total)
	} else {
		assert.Contains(t, res.Skipped, 1)
	}
}

func TestRun_NoSignals(t *testing.T) {
	pipe := New(config.Default())
	res, err := pipe.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Summaries)
	assert.Empty(t, res.Combos)
	assert.Empty(t, res.Invalid)
	assert.Empty(t, res.Skipped)
}

func TestNew_CopiesConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Thresholds.SmallBand = 0.2
	cfg.Thresholds.LargeBand = 0.9
	cfg.Workers = 7

	pipe := New(cfg)
	assert.Equal(t, 0.2, pipe.Thresholds.SmallBand)
	assert.Equal(t, 0.9, pipe.Thresholds.LargeBand)
	assert.Equal(t, analysis.BaselineSetMedian, pipe.Policy)
	assert.Equal(t, 7, pipe.Workers)
}
