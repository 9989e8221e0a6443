package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatTrace builds a 100 samples/s trace at baseline volts with dips to 0 V
// over the given sample index ranges.
func flatTrace(n int, baseline float64, dips ...[2]int) *VoltageTrace {
	tr := &VoltageTrace{
		Key:        TrialKey{Set: 1, Combo: 1, Chamber: "A1"},
		Label:      "set001-1-A1",
		ArmRadiusM: 0.1,
	}
	tr.Times = make([]float64, n)
	tr.Volts = make([]float64, n)
	for i := 0; i < n; i++ {
		tr.Times[i] = float64(i) * 0.01
		tr.Volts[i] = baseline
	}
	for _, d := range dips {
		for i := d[0]; i <= d[1] && i < n; i++ {
			tr.Volts[i] = 0
		}
	}
	return tr
}

func TestStandardize_MarksDeepDipsAsTroughs(t *testing.T) {
	tr := flatTrace(500, 1.0, [2]int{100, 102}, [2]int{300, 302})
	sig := tr.Standardize(0.1, 0.1)

	require.Len(t, sig.Times, 2)
	assert.InDelta(t, 1.00, sig.Times[0], 1e-9)
	assert.InDelta(t, 3.00, sig.Times[1], 1e-9)
	assert.InDelta(t, 4.99, sig.Duration, 1e-9)
	assert.Equal(t, tr.Key, sig.Key)
	assert.Equal(t, tr.ArmRadiusM, sig.ArmRadiusM)
}

func TestStandardize_RebasesTimesToTraceStart(t *testing.T) {
	tr := flatTrace(500, 1.0, [2]int{100, 102})
	for i := range tr.Times {
		tr.Times[i] += 50 // logger clock does not start at zero
	}
	sig := tr.Standardize(0.1, 0.1)

	require.Len(t, sig.Times, 1)
	assert.InDelta(t, 1.00, sig.Times[0], 1e-9)
	assert.InDelta(t, 4.99, sig.Duration, 1e-9)
}

func TestStandardize_SuppressesDoubleTroughs(t *testing.T) {
	// Two dips five samples apart are an echo of the same arm passage; only
	// the first counts and the suppression window swallows the second.
	tr := flatTrace(500, 1.0, [2]int{100, 101}, [2]int{105, 106})
	sig := tr.Standardize(0.1, 0.1)

	require.Len(t, sig.Times, 1)
	assert.InDelta(t, 1.00, sig.Times[0], 1e-9)
}

func TestStandardize_QuietTraceYieldsNoTroughs(t *testing.T) {
	tr := flatTrace(200, 1.0)
	sig := tr.Standardize(0.1, 0.1)

	assert.Empty(t, sig.Times)
	assert.InDelta(t, 1.99, sig.Duration, 1e-9)
}

func TestStandardize_ShallowDipStaysInsideBand(t *testing.T) {
	tr := flatTrace(200, 1.0)
	tr.Volts[100] = 0.8 // noise, not a trough
	sig := tr.Standardize(0.1, 0.1)

	assert.Empty(t, sig.Times)
}

func TestStandardize_EmptyTrace(t *testing.T) {
	tr := &VoltageTrace{Key: TrialKey{Set: 1, Combo: 1, Chamber: "A1"}, ArmRadiusM: 0.1}
	sig := tr.Standardize(0.1, 0.1)

	assert.Empty(t, sig.Times)
	assert.Zero(t, sig.Duration)
	assert.Equal(t, tr.Key, sig.Key)
}
