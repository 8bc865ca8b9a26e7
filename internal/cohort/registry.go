package cohort

import (
	"fmt"
	"sort"

	"cohort-retention/internal/domain"
)

// SkipReason explains why a customer record was not tracked.
type SkipReason int

const (
	SkipNone        SkipReason = iota // record tracked
	SkipMissingID                     // empty customer id
	SkipDuplicate                     // customer id already tracked
	SkipOutOfWindow                   // creation date unparseable or outside the window
)

func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "none"
	case SkipMissingID:
		return "missing_id"
	case SkipDuplicate:
		return "duplicate"
	case SkipOutOfWindow:
		return "out_of_window"
	default:
		return "unknown"
	}
}

// Registry maps customers to their cohort and counts cohort members.
// A customer id is tracked at most once; the first occurrence wins.
// Registry is not safe for concurrent use.
type Registry struct {
	window      *Window
	members     map[string]domain.Cohort // keyed by customer_id
	cohorts     map[string]domain.Cohort // keyed by cohort id
	cardinality map[string]int           // keyed by cohort id
}

// NewRegistry creates an empty registry over window.
func NewRegistry(window *Window) *Registry {
	return &Registry{
		window:      window,
		members:     make(map[string]domain.Cohort),
		cohorts:     make(map[string]domain.Cohort),
		cardinality: make(map[string]int),
	}
}

// Window returns the study window the registry assigns cohorts in.
func (r *Registry) Window() *Window {
	return r.window
}

// Track records customerID in the cohort of its creation date and returns the
// cohort id. Returns false without mutation for an empty or already tracked id,
// or when the creation date is unparseable or outside the window.
func (r *Registry) Track(customerID, createdAt string) (string, bool) {
	id, reason := r.track(customerID, createdAt)
	return id, reason == SkipNone
}

// TrackRecord is Track for a raw record, reporting why the record was skipped.
func (r *Registry) TrackRecord(rec domain.CustomerRecord) (string, SkipReason) {
	return r.track(rec.CustomerID, rec.CreatedAt)
}

// TrackAll tracks every record and returns the number of distinct cohorts
// observed so far.
func (r *Registry) TrackAll(records []domain.CustomerRecord) int {
	for _, rec := range records {
		r.track(rec.CustomerID, rec.CreatedAt)
	}
	return len(r.cardinality)
}

func (r *Registry) track(customerID, createdAt string) (string, SkipReason) {
	if customerID == "" {
		return "", SkipMissingID
	}
	if _, exists := r.members[customerID]; exists {
		return "", SkipDuplicate
	}
	created, ok := r.window.Normalize(createdAt)
	if !ok {
		return "", SkipOutOfWindow
	}

	c := r.window.Assign(created)
	r.members[customerID] = c
	r.cohorts[c.ID] = c
	r.cardinality[c.ID]++
	return c.ID, SkipNone
}

// MemberCohort returns the cohort customerID was tracked in.
func (r *Registry) MemberCohort(customerID string) (domain.Cohort, bool) {
	c, ok := r.members[customerID]
	return c, ok
}

// Cohort returns the cohort with the given id, if any customer was tracked in it.
func (r *Registry) Cohort(cohortID string) (domain.Cohort, bool) {
	c, ok := r.cohorts[cohortID]
	return c, ok
}

// Cardinality returns the number of customers tracked in cohortID.
func (r *Registry) Cardinality(cohortID string) int {
	return r.cardinality[cohortID]
}

// CohortCount returns the number of distinct cohorts observed.
func (r *Registry) CohortCount() int {
	return len(r.cardinality)
}

// CustomerCount returns the number of tracked customers.
func (r *Registry) CustomerCount() int {
	return len(r.members)
}

// CohortIDs returns all observed cohort ids, most recent first.
func (r *Registry) CohortIDs() []string {
	ids := make([]string, 0, len(r.cardinality))
	for id := range r.cardinality {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids
}

func (r *Registry) String() string {
	return fmt.Sprintf("customer cohorts between %s and %s, with %d cohorts, on %d customers",
		r.window.Oldest().Format(TimestampLayout),
		r.window.Recent().Format(TimestampLayout),
		r.CohortCount(), r.CustomerCount())
}
