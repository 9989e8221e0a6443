// Package report serializes aggregation output into the artifacts consumed
// by the external plotting collaborator: the summary and combo CSV tables,
// plot images, a PDF report and an HTML chart page. No computation happens
// here beyond formatting and structural validation.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/user/flightmill_go/internal/aggregate"
)

// NoChamberPlaceholder is written to large_cIDs when a set contributed no
// large changes. It is a serialization convention for row alignment in the
// consuming scripts, not a chamber identity; it exists only at this boundary.
const NoChamberPlaceholder = "None"

var summaryHeader = []string{"set_id", "total", "small_changes", "large_changes", "large_cIDs"}

// MalformedAggregateError reports an aggregate that cannot be rendered
// (missing identity, inconsistent series). Rendering is all-or-nothing: a
// malformed aggregate means no partial table is emitted.
type MalformedAggregateError struct {
	Reason string
}

func (e *MalformedAggregateError) Error() string {
	return "malformed aggregate: " + e.Reason
}

// SummaryRow is one parsed row of the summary table.
type SummaryRow struct {
	SetID     int
	Total     int
	Small     int
	Large     int
	LargeCIDs string
}

// WriteSummaryTable renders the per-set summary table, one row per set in
// set-id order. The whole table is validated and built before any byte is
// written.
func WriteSummaryTable(w io.Writer, summaries map[int]aggregate.SetSummary) error {
	ids := make([]int, 0, len(summaries))
	for id := range summaries {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	rows := [][]string{summaryHeader}
	for _, id := range ids {
		s := summaries[id]
		if err := validateSummary(s); err != nil {
			return err
		}
		cids := NoChamberPlaceholder
		if len(s.LargeChambers) > 0 {
			cids = strings.Join(s.LargeChambers, ",")
		}
		rows = append(rows, []string{
			strconv.Itoa(s.SetID),
			strconv.Itoa(s.Total),
			strconv.Itoa(s.Small),
			strconv.Itoa(s.Large),
			cids,
		})
	}

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write summary table: %w", err)
	}
	return nil
}

// ReadSummaryTable parses a summary table back into rows, inverting
// WriteSummaryTable.
func ReadSummaryTable(r io.Reader) ([]SummaryRow, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read summary table: %w", err)
	}
	if len(records) == 0 {
		return nil, &MalformedAggregateError{Reason: "summary table is empty"}
	}
	if len(records[0]) != len(summaryHeader) || records[0][0] != summaryHeader[0] {
		return nil, &MalformedAggregateError{Reason: "summary table header missing expected columns"}
	}

	rows := make([]SummaryRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != len(summaryHeader) {
			return nil, &MalformedAggregateError{Reason: fmt.Sprintf("summary row %d has %d columns, want %d", i+1, len(rec), len(summaryHeader))}
		}
		var row SummaryRow
		var errs [4]error
		row.SetID, errs[0] = strconv.Atoi(rec[0])
		row.Total, errs[1] = strconv.Atoi(rec[1])
		row.Small, errs[2] = strconv.Atoi(rec[2])
		row.Large, errs[3] = strconv.Atoi(rec[3])
		for _, err := range errs {
			if err != nil {
				return nil, &MalformedAggregateError{Reason: fmt.Sprintf("summary row %d: %v", i+1, err)}
			}
		}
		row.LargeCIDs = rec[4]
		rows = append(rows, row)
	}
	return rows, nil
}

// comboStats is the fixed row order of each combo's triple.
var comboStats = []string{"trough", "speed", "distance"}

// WriteComboTable renders the combo table: a fixed triple of rows per combo
// (trough count, speed, distance series) prefixed by stat, set id, combo id
// and filename label, padded to a common width so the layout matches the
// by-metric plotting scripts.
func WriteComboTable(w io.Writer, combos map[aggregate.ComboKey]aggregate.ComboRecord) error {
	keys := make([]aggregate.ComboKey, 0, len(combos))
	width := 0
	for k, c := range combos {
		if err := validateCombo(c); err != nil {
			return err
		}
		if len(c.Troughs) > width {
			width = len(c.Troughs)
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Set != keys[j].Set {
			return keys[i].Set < keys[j].Set
		}
		return keys[i].Combo < keys[j].Combo
	})

	header := []string{"stat", "set_id", "combo_id", "filename"}
	for i := 1; i <= width; i++ {
		header = append(header, fmt.Sprintf("trial_%d", i))
	}

	rows := [][]string{header}
	for _, k := range keys {
		c := combos[k]
		for _, stat := range comboStats {
			row := []string{stat, strconv.Itoa(k.Set), strconv.Itoa(k.Combo), c.Label}
			var series []float64
			switch stat {
			case "trough":
				series = c.Troughs
			case "speed":
				series = c.Speeds
			case "distance":
				series = c.Distances
			}
			for _, v := range series {
				row = append(row, strconv.FormatFloat(v, 'f', 2, 64))
			}
			for len(row) < len(header) {
				row = append(row, "")
			}
			rows = append(rows, row)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write combo table: %w", err)
	}
	return nil
}

func validateSummary(s aggregate.SetSummary) error {
	if s.SetID <= 0 {
		return &MalformedAggregateError{Reason: "summary missing set id"}
	}
	if s.Total < 0 || s.Small < 0 || s.Large < 0 {
		return &MalformedAggregateError{Reason: fmt.Sprintf("set %d has negative counts", s.SetID)}
	}
	// Three classified metrics per trial bound the change counts.
	if s.Small+s.Large > 3*s.Total {
		return &MalformedAggregateError{Reason: fmt.Sprintf("set %d counts %d changes across %d trials", s.SetID, s.Small+s.Large, s.Total)}
	}
	return nil
}

func validateCombo(c aggregate.ComboRecord) error {
	if c.Key.Set <= 0 || c.Key.Combo <= 0 {
		return &MalformedAggregateError{Reason: "combo record missing identity"}
	}
	if c.Label == "" {
		return &MalformedAggregateError{Reason: fmt.Sprintf("combo %d/%d missing label", c.Key.Set, c.Key.Combo)}
	}
	if len(c.Speeds) != len(c.Troughs) || len(c.Distances) != len(c.Troughs) {
		return &MalformedAggregateError{Reason: fmt.Sprintf("combo %s series lengths differ", c.Label)}
	}
	return nil
}
