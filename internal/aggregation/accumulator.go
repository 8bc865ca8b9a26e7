package aggregation

import "cohort-retention/internal/domain"

// accumulator holds the distinct customers seen in one interval of a cohort.
type accumulator struct {
	orderers  map[string]struct{}
	firstTime map[string]struct{} // subset of orderers
}

func (a *accumulator) add(customerID string, first bool) {
	if a.orderers == nil {
		a.orderers = make(map[string]struct{})
	}
	a.orderers[customerID] = struct{}{}

	if !first {
		return
	}
	if a.firstTime == nil {
		a.firstTime = make(map[string]struct{})
	}
	a.firstTime[customerID] = struct{}{}
}

func (a *accumulator) counts() domain.IntervalCounts {
	return domain.IntervalCounts{
		Orderers:          len(a.orderers),
		FirstTimeOrderers: len(a.firstTime),
	}
}
