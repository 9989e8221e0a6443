package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/user/flightmill_go/internal/aggregate"
)

// WriteSummaryCharts renders the per-set change counts as a standalone HTML
// page with a stacked bar chart, for a quick visual pass before opening the
// CSV artifacts.
func WriteSummaryCharts(w io.Writer, runID string, summaries map[int]aggregate.SetSummary) error {
	ids := make([]int, 0, len(summaries))
	for id := range summaries {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	labels := make([]string, 0, len(ids))
	small := make([]opts.BarData, 0, len(ids))
	large := make([]opts.BarData, 0, len(ids))
	trials := make([]opts.BarData, 0, len(ids))
	for _, id := range ids {
		s := summaries[id]
		labels = append(labels, fmt.Sprintf("set %d", id))
		small = append(small, opts.BarData{Value: s.Small})
		large = append(large, opts.BarData{Value: s.Large})
		trials = append(trials, opts.BarData{Value: s.Total})
	}

	changes := charts.NewBar()
	changes.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Signal changes per set",
			Subtitle: "run " + runID,
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: "flagged metrics"}),
	)
	changes.SetXAxis(labels).
		AddSeries("small changes", small).
		AddSeries("large changes", large).
		SetSeriesOptions(charts.WithBarChartOpts(opts.BarChart{Stack: "changes"}))

	totals := charts.NewBar()
	totals.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Classified trials per set"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "trials"}),
	)
	totals.SetXAxis(labels).AddSeries("trials", trials)

	page := components.NewPage()
	page.AddCharts(changes, totals)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render summary charts: %w", err)
	}
	return nil
}
