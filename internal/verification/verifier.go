// Package verification checks that retention cells read back from a store
// match the cells a run produced.
package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cohort-retention/internal/domain"
	"cohort-retention/internal/storage"
)

// ErrMismatch is returned when stored cells diverge from the run's cells.
var ErrMismatch = errors.New("stored cells do not match run")

// TimePrecision is the precision timestamps are compared at.
// ClickHouse DateTime columns keep whole seconds.
const TimePrecision = time.Second

// FieldDivergence represents a mismatch between produced and stored values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // produced value
	Actual   interface{} // stored value
}

// CellResult contains the result of verifying a single cell.
type CellResult struct {
	CohortID      string
	IntervalIndex int
	Missing       bool              // true if the store has no such cell
	Divergences   []FieldDivergence // list of divergent fields
}

// Match reports whether the stored cell equals the produced one.
func (r CellResult) Match() bool {
	return !r.Missing && len(r.Divergences) == 0
}

// Report contains results for one run.
type Report struct {
	RunID           string
	TotalCells      int          // cells produced by the run
	MatchedCells    int          // cells stored exactly
	DivergentCells  int          // cells stored with divergences
	MissingCells    int          // produced cells absent from the store
	UnexpectedCells int          // stored cells the run did not produce
	Results         []CellResult // non-matching cells only
}

// OK reports whether the store holds exactly the produced cells.
func (r *Report) OK() bool {
	return r.MatchedCells == r.TotalCells && r.UnexpectedCells == 0
}

// Err returns nil for a matching report, otherwise an error wrapping ErrMismatch.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%w: run %s: %d divergent, %d missing, %d unexpected of %d cells",
		ErrMismatch, r.RunID, r.DivergentCells, r.MissingCells, r.UnexpectedCells, r.TotalCells)
}

// CompareCells compares a produced cell with its stored counterpart.
func CompareCells(expected, stored *domain.RetentionCell) []FieldDivergence {
	var divergences []FieldDivergence

	check := func(field string, equal bool, want, got interface{}) {
		if !equal {
			divergences = append(divergences, FieldDivergence{Field: field, Expected: want, Actual: got})
		}
	}

	check("RunID", expected.RunID == stored.RunID, expected.RunID, stored.RunID)
	check("CohortID", expected.CohortID == stored.CohortID, expected.CohortID, stored.CohortID)
	check("CohortStart", timeEquals(expected.CohortStart, stored.CohortStart), expected.CohortStart, stored.CohortStart)
	check("CohortEnd", timeEquals(expected.CohortEnd, stored.CohortEnd), expected.CohortEnd, stored.CohortEnd)
	check("Customers", expected.Customers == stored.Customers, expected.Customers, stored.Customers)
	check("IntervalIndex", expected.IntervalIndex == stored.IntervalIndex, expected.IntervalIndex, stored.IntervalIndex)
	check("IntervalStartDay", expected.IntervalStartDay == stored.IntervalStartDay, expected.IntervalStartDay, stored.IntervalStartDay)
	check("IntervalEndDay", expected.IntervalEndDay == stored.IntervalEndDay, expected.IntervalEndDay, stored.IntervalEndDay)
	check("Orderers", expected.Orderers == stored.Orderers, expected.Orderers, stored.Orderers)
	check("FirstTimeOrderers", expected.FirstTimeOrderers == stored.FirstTimeOrderers, expected.FirstTimeOrderers, stored.FirstTimeOrderers)
	check("GeneratedAt", timeEquals(expected.GeneratedAt, stored.GeneratedAt), expected.GeneratedAt, stored.GeneratedAt)

	return divergences
}

// VerifyRun reads the cells of runID back from store and compares them with expected.
func VerifyRun(ctx context.Context, store storage.RetentionStore, runID string, expected []*domain.RetentionCell) (*Report, error) {
	stored, err := store.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("read back run %s: %w", runID, err)
	}

	byKey := make(map[cellKey]*domain.RetentionCell, len(stored))
	for _, c := range stored {
		byKey[cellKey{c.CohortID, c.IntervalIndex}] = c
	}

	report := &Report{RunID: runID, TotalCells: len(expected)}
	for _, want := range expected {
		key := cellKey{want.CohortID, want.IntervalIndex}
		got, ok := byKey[key]
		if !ok {
			report.MissingCells++
			report.Results = append(report.Results, CellResult{
				CohortID:      want.CohortID,
				IntervalIndex: want.IntervalIndex,
				Missing:       true,
			})
			continue
		}
		delete(byKey, key)

		if d := CompareCells(want, got); len(d) > 0 {
			report.DivergentCells++
			report.Results = append(report.Results, CellResult{
				CohortID:      want.CohortID,
				IntervalIndex: want.IntervalIndex,
				Divergences:   d,
			})
			continue
		}
		report.MatchedCells++
	}
	report.UnexpectedCells = len(byKey)

	return report, nil
}

type cellKey struct {
	cohortID      string
	intervalIndex int
}

func timeEquals(a, b time.Time) bool {
	return a.Truncate(TimePrecision).Equal(b.Truncate(TimePrecision))
}
