// Package aggregation buckets order events into per-cohort, per-interval sets of
// distinct customers.
package aggregation

import (
	"sort"

	"cohort-retention/internal/cohort"
	"cohort-retention/internal/domain"
)

// Outcome reports what Record did with an order.
type Outcome int

const (
	Recorded        Outcome = iota // order added to its interval (possibly a no-op on the sets)
	UnknownCustomer                // customer not tracked in the registry
	OutOfWindow                    // order date unparseable or outside the window
	BeforeCohort                   // order predates its customer's cohort
)

func (o Outcome) String() string {
	switch o {
	case Recorded:
		return "recorded"
	case UnknownCustomer:
		return "unknown_customer"
	case OutOfWindow:
		return "out_of_window"
	case BeforeCohort:
		return "before_cohort"
	default:
		return "unknown"
	}
}

// Aggregator accumulates orders by the cohort of the ordering customer and by
// the interval the order falls in. The registry must be fully populated before
// the first call to Record.
// Aggregator is not safe for concurrent use.
type Aggregator struct {
	registry *cohort.Registry

	// Keyed by cohort id. One accumulator per interval between the cohort start
	// and the recent boundary, oldest first.
	intervals map[string][]accumulator
}

// NewAggregator creates an aggregator over registry.
func NewAggregator(registry *cohort.Registry) *Aggregator {
	return &Aggregator{
		registry:  registry,
		intervals: make(map[string][]accumulator),
	}
}

// Registry returns the customer registry orders are resolved against.
func (a *Aggregator) Registry() *cohort.Registry {
	return a.registry
}

// Record adds customerID to the orderers of the interval holding createdAt, and
// to its first-time orderers when sequence is "1". Recording the same customer
// in the same interval again has no effect on the counts.
func (a *Aggregator) Record(customerID, createdAt, sequence string) Outcome {
	member, ok := a.registry.MemberCohort(customerID)
	if !ok {
		return UnknownCustomer
	}

	window := a.registry.Window()
	ordered, ok := window.Normalize(createdAt)
	if !ok {
		return OutOfWindow
	}
	if ordered.Before(member.Start) {
		return BeforeCohort
	}

	slots := a.slots(member)
	idx := window.IntervalIndex(ordered)
	slots[len(slots)-1-idx].add(customerID, sequence == domain.FirstOrderSequence)
	return Recorded
}

// RecordOrder is Record for a raw order record.
func (a *Aggregator) RecordOrder(rec domain.OrderRecord) Outcome {
	return a.Record(rec.CustomerID, rec.CreatedAt, rec.Sequence)
}

// RecordAll records every order and returns how many were recorded.
func (a *Aggregator) RecordAll(records []domain.OrderRecord) int {
	recorded := 0
	for _, rec := range records {
		if a.RecordOrder(rec) == Recorded {
			recorded++
		}
	}
	return recorded
}

// slots returns the cohort's accumulators, allocating them on first use.
func (a *Aggregator) slots(c domain.Cohort) []accumulator {
	if s, ok := a.intervals[c.ID]; ok {
		return s
	}
	s := make([]accumulator, a.registry.Window().IntervalsSince(c.Start))
	a.intervals[c.ID] = s
	return s
}

// SummaryForCohort returns the distinct counts of each interval since the
// cohort started, most recent interval first. Returns false when no order was
// recorded for the cohort.
func (a *Aggregator) SummaryForCohort(cohortID string) ([]domain.IntervalCounts, bool) {
	s, ok := a.intervals[cohortID]
	if !ok {
		return nil, false
	}

	summary := make([]domain.IntervalCounts, len(s))
	for i := range s {
		summary[len(s)-1-i] = s[i].counts()
	}
	return summary, true
}

// CohortIDs returns the ids of cohorts with at least one recorded order, most
// recent first.
func (a *Aggregator) CohortIDs() []string {
	ids := make([]string, 0, len(a.intervals))
	for id := range a.intervals {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids
}
