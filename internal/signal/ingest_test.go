package signal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrialName(t *testing.T) {
	key, err := ParseTrialName("flight_set003-2-A1.txt")
	require.NoError(t, err)
	assert.Equal(t, TrialKey{Set: 3, Combo: 2, Chamber: "A1"}, key)

	key, err = ParseTrialName("run7_set120-11-B7.csv")
	require.NoError(t, err)
	assert.Equal(t, TrialKey{Set: 120, Combo: 11, Chamber: "B7"}, key)
}

func TestParseTrialName_Rejects(t *testing.T) {
	names := []string{
		"set003-2-A1.txt",       // no prefix
		"flight_set003-2.txt",   // no chamber
		"flight_set003-A1.txt",  // no combo
		"flight_set000-0-.txt",  // blank chamber
		"flight_set003-2-A1.md", // wrong extension
		"notes.txt",
	}
	for _, name := range names {
		_, err := ParseTrialName(name)
		require.Error(t, err, name)
		var ge *UnknownGroupingError
		assert.True(t, errors.As(err, &ge), name)
	}
}

func TestParseTrialName_ZeroIdentityRejected(t *testing.T) {
	_, err := ParseTrialName("flight_set000-1-A1.txt")
	require.Error(t, err)
	_, err = ParseTrialName("flight_set001-0-A1.txt")
	require.Error(t, err)
}

func TestReadTraceFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flight_set001-1-A1.txt")
	content := "0.00,1.02\n0.01,1.01\n\n0.02,0.03,extra\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tr, err := ReadTraceFile(path, 0.1)
	require.NoError(t, err)
	assert.Equal(t, TrialKey{Set: 1, Combo: 1, Chamber: "A1"}, tr.Key)
	assert.Equal(t, "set001-1-A1", tr.Label)
	assert.Equal(t, []float64{0.00, 0.01, 0.02}, tr.Times)
	assert.Equal(t, []float64{1.02, 1.01, 0.03}, tr.Volts)
	assert.Equal(t, 0.1, tr.ArmRadiusM)
}

func TestReadTraceFile_BadRows(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "flight_set001-1-A1.txt")
	require.NoError(t, os.WriteFile(path, []byte("0.00,notavolt\n"), 0o644))
	_, err := ReadTraceFile(path, 0.1)
	assert.Error(t, err)

	empty := filepath.Join(dir, "flight_set001-1-A2.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n\n"), 0o644))
	_, err = ReadTraceFile(empty, 0.1)
	assert.ErrorContains(t, err, "no samples")
}

func TestReadTraceFile_BadName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("0.0,1.0\n"), 0o644))

	_, err := ReadTraceFile(path, 0.1)
	var ge *UnknownGroupingError
	assert.True(t, errors.As(err, &ge))
}

func TestListRecordings(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"flight_set001-1-A2.txt", "flight_set001-1-A1.txt", "readme.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("0.0,1.0\n"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "flight_set002-1-A1.txt"), 0o755))

	paths, skipped, err := ListRecordings(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "flight_set001-1-A1.txt"),
		filepath.Join(dir, "flight_set001-1-A2.txt"),
	}, paths)
	assert.Equal(t, []string{"readme.md"}, skipped)
}
