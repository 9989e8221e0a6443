package signal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// trialNameRe matches recording filenames of the form
// "<prefix>_set<NNN>-<combo>-<chamber>.txt", e.g. "flight_set003-2-A1.txt".
var trialNameRe = regexp.MustCompile(`^[A-Za-z0-9]+_set(\d+)-(\d+)-([A-Za-z]+\d+)\.(?:txt|csv)$`)

// ParseTrialName extracts the structured trial identity from a recording
// filename. Identity is assigned here, once; nothing downstream re-parses it.
func ParseTrialName(name string) (TrialKey, error) {
	m := trialNameRe.FindStringSubmatch(name)
	if m == nil {
		return TrialKey{}, &UnknownGroupingError{Reason: fmt.Sprintf("filename %q does not match <prefix>_set<NNN>-<combo>-<chamber>", name)}
	}
	set, err := strconv.Atoi(m[1])
	if err != nil {
		return TrialKey{}, &UnknownGroupingError{Reason: fmt.Sprintf("bad set number in %q", name)}
	}
	combo, err := strconv.Atoi(m[2])
	if err != nil {
		return TrialKey{}, &UnknownGroupingError{Reason: fmt.Sprintf("bad combo number in %q", name)}
	}
	key := TrialKey{Set: set, Combo: combo, Chamber: m[3]}
	if err := key.Validate(); err != nil {
		return TrialKey{}, err
	}
	return key, nil
}

// ReadTraceFile reads a raw channel recording: CSV rows of
// "time,voltage[,...]", one sample per row. Extra columns are ignored and
// blank rows skipped, as produced by the logger's file splitter.
func ReadTraceFile(path string, armRadiusM float64) (*VoltageTrace, error) {
	name := filepath.Base(path)
	key, err := ParseTrialName(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read recording %s: %w", name, err)
	}

	tr := &VoltageTrace{Key: key, Label: key.String(), ArmRadiusM: armRadiusM}
	for i, row := range rows {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("recording %s row %d: want time,voltage, got %d columns", name, i+1, len(row))
		}
		t, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, fmt.Errorf("recording %s row %d: bad time %q: %w", name, i+1, row[0], err)
		}
		v, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("recording %s row %d: bad voltage %q: %w", name, i+1, row[1], err)
		}
		tr.Times = append(tr.Times, t)
		tr.Volts = append(tr.Volts, v)
	}
	if len(tr.Times) == 0 {
		return nil, fmt.Errorf("recording %s contains no samples", name)
	}
	return tr, nil
}

// ListRecordings returns the recording files under dir whose names parse as
// trial recordings, sorted by name. Non-matching files are reported in the
// second return so callers can log them without failing the run.
func ListRecordings(dir string) ([]string, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list recordings: %w", err)
	}
	var paths, skipped []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := ParseTrialName(e.Name()); err != nil {
			skipped = append(skipped, e.Name())
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, skipped, nil
}
