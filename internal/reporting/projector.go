package reporting

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"cohort-retention/internal/aggregation"
	"cohort-retention/internal/domain"
)

// RowKind distinguishes the two rows rendered for every cohort.
type RowKind string

const (
	RowOrderers  RowKind = "orderers"
	RowFirstTime RowKind = "first_time"
)

// Table is the projected cohort-by-interval retention table.
type Table struct {
	Header []string // Cohort, Customers, then one label per interval
	Rows   []Row
}

// Row holds the counts of one cohort for one row kind.
type Row struct {
	CohortID  string
	Customers int
	Kind      RowKind
	Counts    []int // most recent interval first
}

var hundred = decimal.NewFromInt(100)

// IntervalLabel names interval i (0 = most recent) by its day offsets back from
// the recent boundary.
func IntervalLabel(i, intervalDays int) string {
	return fmt.Sprintf("%d-%d days", i*intervalDays, (i+1)*intervalDays-1)
}

// Percent formats count/total as a percentage with two decimals.
func Percent(count, total int) string {
	if total == 0 {
		return decimal.Zero.StringFixed(2)
	}
	return decimal.NewFromInt(int64(count)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		StringFixed(2)
}

// Project reduces the aggregator to a table: for every cohort with at least one
// recorded order, most recent cohort first, one row of distinct orderers and one
// row of distinct first-time orderers.
func Project(agg *aggregation.Aggregator) *Table {
	registry := agg.Registry()
	window := registry.Window()

	ids := agg.CohortIDs()
	columns := window.Intervals()
	rows := make([]Row, 0, 2*len(ids))

	for _, id := range ids {
		summary, _ := agg.SummaryForCohort(id)
		if len(summary) > columns {
			columns = len(summary)
		}

		orderers := make([]int, len(summary))
		firstTime := make([]int, len(summary))
		for i, c := range summary {
			orderers[i] = c.Orderers
			firstTime[i] = c.FirstTimeOrderers
		}

		customers := registry.Cardinality(id)
		rows = append(rows,
			Row{CohortID: id, Customers: customers, Kind: RowOrderers, Counts: orderers},
			Row{CohortID: id, Customers: customers, Kind: RowFirstTime, Counts: firstTime},
		)
	}

	header := make([]string, 0, columns+2)
	header = append(header, "Cohort", "Customers")
	for i := 0; i < columns; i++ {
		header = append(header, IntervalLabel(i, window.IntervalDays()))
	}

	return &Table{Header: header, Rows: rows}
}

// Intervals returns the number of interval columns.
func (t *Table) Intervals() int {
	return len(t.Header) - 2
}

// Records renders the table body as string cells: "count (pct%)" per interval,
// empty for intervals before the cohort started. The first-time row of a
// cohort leaves the Cohort and Customers cells empty.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make([]string, 0, len(t.Header))
		if row.Kind == RowOrderers {
			rec = append(rec, row.CohortID, strconv.Itoa(row.Customers))
		} else {
			rec = append(rec, "", "")
		}
		for i := 0; i < t.Intervals(); i++ {
			if i >= len(row.Counts) {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, fmt.Sprintf("%d (%s%%)", row.Counts[i], Percent(row.Counts[i], row.Customers)))
		}
		out = append(out, rec)
	}
	return out
}

// Cells flattens the aggregator into storable retention cells.
func Cells(agg *aggregation.Aggregator, runID string, generatedAt time.Time) []*domain.RetentionCell {
	registry := agg.Registry()
	intervalDays := registry.Window().IntervalDays()

	var cells []*domain.RetentionCell
	for _, id := range agg.CohortIDs() {
		c, _ := registry.Cohort(id)
		summary, _ := agg.SummaryForCohort(id)
		for i, counts := range summary {
			cells = append(cells, &domain.RetentionCell{
				RunID:             runID,
				CohortID:          id,
				CohortStart:       c.Start,
				CohortEnd:         c.End,
				Customers:         registry.Cardinality(id),
				IntervalIndex:     i,
				IntervalStartDay:  i * intervalDays,
				IntervalEndDay:    (i+1)*intervalDays - 1,
				Orderers:          counts.Orderers,
				FirstTimeOrderers: counts.FirstTimeOrderers,
				GeneratedAt:       generatedAt,
			})
		}
	}
	return cells
}
