package reporting

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cohort-retention/internal/aggregation"
	"cohort-retention/internal/cohort"
	"cohort-retention/internal/domain"
)

var pst = time.FixedZone("PST", -7*60*60)

func setupAggregator(t *testing.T) *aggregation.Aggregator {
	t.Helper()

	w, err := cohort.NewWindow(cohort.Config{
		Anchor:       time.Date(2020, 10, 18, 23, 47, 13, 0, pst),
		IntervalDays: 7,
		Intervals:    3,
	})
	require.NoError(t, err)

	r := cohort.NewRegistry(w)
	r.TrackAll([]domain.CustomerRecord{
		{CustomerID: "hujikolp", CreatedAt: "2020-10-17 08:24:52"},
		{CustomerID: "plokijuh", CreatedAt: "2020-10-09 08:44:02"},
		{CustomerID: "wassaw", CreatedAt: "2020-10-10 02:44:02"},
		{CustomerID: "qazaq", CreatedAt: "2020-09-30 18:24:52"},
		{CustomerID: "QaZaQ", CreatedAt: "2020-10-01 08:51:52"},
	})

	agg := aggregation.NewAggregator(r)
	agg.RecordAll([]domain.OrderRecord{
		{CustomerID: "qazaq", CreatedAt: "2020-10-06 20:43:17", Sequence: "2"},
		{CustomerID: "qazaq", CreatedAt: "2020-10-05 23:13:33", Sequence: "1"},
		{CustomerID: "plokijuh", CreatedAt: "2020-10-09 08:43:57", Sequence: "1"},
		{CustomerID: "plokijuh", CreatedAt: "2020-10-12 01:04:07", Sequence: "2"},
		{CustomerID: "qazaq", CreatedAt: "2020-10-14 21:34:07", Sequence: "3"},
		{CustomerID: "hujikolp", CreatedAt: "2020-10-17 12:21:32", Sequence: "1"},
		{CustomerID: "qazaq", CreatedAt: "2020-10-19 03:34:07", Sequence: "4"},
		{CustomerID: "wassaw", CreatedAt: "2020-10-11 00:00:01", Sequence: "1"},
	})
	return agg
}

func TestProject_HeaderAndOrder(t *testing.T) {
	table := Project(setupAggregator(t))

	assert.Equal(t, []string{"Cohort", "Customers", "0-6 days", "7-13 days", "14-20 days"}, table.Header)
	assert.Equal(t, 3, table.Intervals())
	require.Len(t, table.Rows, 6)

	assert.Equal(t, "2020/10/12-2020/10/18", table.Rows[0].CohortID)
	assert.Equal(t, RowOrderers, table.Rows[0].Kind)
	assert.Equal(t, RowFirstTime, table.Rows[1].Kind)
	assert.Equal(t, "2020/10/05-2020/10/11", table.Rows[2].CohortID)
	assert.Equal(t, "2020/09/28-2020/10/04", table.Rows[4].CohortID)
	assert.Equal(t, []int{1, 1, 0}, table.Rows[4].Counts)
	assert.Equal(t, []int{0, 1, 0}, table.Rows[5].Counts)
}

func TestTable_Records(t *testing.T) {
	records := Project(setupAggregator(t)).Records()

	want := [][]string{
		{"2020/10/12-2020/10/18", "1", "1 (100.00%)", "", ""},
		{"", "", "1 (100.00%)", "", ""},
		{"2020/10/05-2020/10/11", "2", "0 (0.00%)", "2 (100.00%)", ""},
		{"", "", "0 (0.00%)", "2 (100.00%)", ""},
		{"2020/09/28-2020/10/04", "2", "1 (50.00%)", "1 (50.00%)", "0 (0.00%)"},
		{"", "", "0 (0.00%)", "1 (50.00%)", "0 (0.00%)"},
	}
	assert.Equal(t, want, records)
}

func TestProject_NoOrders(t *testing.T) {
	w, err := cohort.NewWindow(cohort.Config{Anchor: time.Date(2020, 10, 18, 12, 0, 0, 0, time.UTC), IntervalDays: 14, Intervals: 2})
	require.NoError(t, err)
	table := Project(aggregation.NewAggregator(cohort.NewRegistry(w)))

	assert.Equal(t, []string{"Cohort", "Customers", "0-13 days", "14-27 days"}, table.Header)
	assert.Empty(t, table.Rows)
	assert.Empty(t, table.Records())
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "33.33", Percent(1, 3))
	assert.Equal(t, "66.67", Percent(2, 3))
	assert.Equal(t, "100.00", Percent(5, 5))
	assert.Equal(t, "0.00", Percent(0, 0))
}

func TestIntervalLabel(t *testing.T) {
	assert.Equal(t, "0-6 days", IntervalLabel(0, 7))
	assert.Equal(t, "14-20 days", IntervalLabel(2, 7))
	assert.Equal(t, "3-3 days", IntervalLabel(3, 1))
}

func TestRenderCSV_DeterministicOrder(t *testing.T) {
	agg := setupAggregator(t)

	first := RenderCSV(Project(agg))
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, RenderCSV(Project(agg)))
	}

	lines := strings.Split(strings.TrimSuffix(first, "\n"), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "Cohort,Customers,0-6 days,7-13 days,14-20 days", lines[0])
	assert.Equal(t, "2020/10/12-2020/10/18,1,1 (100.00%),,", lines[1])
	assert.Equal(t, ",,0 (0.00%),1 (50.00%),0 (0.00%)", lines[6])
}

func TestGenerate_WithClock(t *testing.T) {
	fixed := time.Date(2020, 10, 19, 8, 0, 0, 0, time.UTC)
	var quality DataQualitySection
	quality.Add("customers skipped (duplicate)", 2)

	r := NewGenerator().WithClock(func() time.Time { return fixed }).
		Generate(setupAggregator(t), "run-1", quality)

	assert.Equal(t, fixed, r.GeneratedAt)
	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, time.Date(2020, 10, 19, 0, 0, 0, 0, time.UTC), r.Window.Recent)
	assert.Equal(t, time.Date(2020, 9, 28, 0, 0, 0, 0, time.UTC), r.Window.Oldest)
	assert.Equal(t, -7*time.Hour, r.Window.Offset)
	assert.Equal(t, DataSummary{Customers: 5, Cohorts: 3, CohortsWithOrders: 3}, r.DataSummary)
	assert.Len(t, r.DataQuality.Rows, 1)
	assert.Len(t, r.Table.Rows, 6)
}

func TestRenderMarkdown_ContainsRequiredSections(t *testing.T) {
	var quality DataQualitySection
	quality.Add("orders read", 12345)

	r := NewGenerator().WithClock(func() time.Time { return time.Date(2020, 10, 19, 8, 0, 0, 0, time.UTC) }).
		Generate(setupAggregator(t), "run-1", quality)
	md := RenderMarkdown(r)

	for _, section := range []string{
		"# Cohort Retention Report",
		"## Study Window",
		"## Data Summary",
		"## Data Quality",
		"## Retention",
	} {
		assert.Contains(t, md, section)
	}
	assert.Contains(t, md, "Generated: 2020-10-19T08:00:00Z")
	assert.Contains(t, md, "| orders read | 12,345 |")
	assert.Contains(t, md, "| Cohort | Customers | 0-6 days | 7-13 days | 14-20 days |")
	assert.Contains(t, md, "| 2020/09/28-2020/10/04 | 2 | 1 (50.00%) | 1 (50.00%) | 0 (0.00%) |")
}

func TestRenderMarkdown_Empty(t *testing.T) {
	md := RenderMarkdown(&Report{Table: &Table{}})
	assert.Contains(t, md, "No ingestion counters recorded.")
	assert.Contains(t, md, "No orders recorded for any cohort.")
}

func TestCells(t *testing.T) {
	generated := time.Date(2020, 10, 19, 8, 0, 0, 0, time.UTC)
	cells := Cells(setupAggregator(t), "run-1", generated)
	require.Len(t, cells, 6)

	first := cells[0]
	assert.Equal(t, "run-1", first.RunID)
	assert.Equal(t, "2020/10/12-2020/10/18", first.CohortID)
	assert.Equal(t, time.Date(2020, 10, 12, 0, 0, 0, 0, time.UTC), first.CohortStart)
	assert.Equal(t, time.Date(2020, 10, 19, 0, 0, 0, 0, time.UTC), first.CohortEnd)
	assert.Equal(t, 1, first.Customers)
	assert.Equal(t, 0, first.IntervalIndex)
	assert.Equal(t, 1, first.Orderers)
	assert.Equal(t, generated, first.GeneratedAt)

	last := cells[5]
	assert.Equal(t, "2020/09/28-2020/10/04", last.CohortID)
	assert.Equal(t, 2, last.IntervalIndex)
	assert.Equal(t, 14, last.IntervalStartDay)
	assert.Equal(t, 20, last.IntervalEndDay)
	assert.Equal(t, 0, last.Orderers)
}
