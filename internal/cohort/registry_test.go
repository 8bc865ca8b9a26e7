package cohort

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cohort-retention/internal/domain"
)

func newPSTRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(mustWindow(t, time.Date(2015, 7, 7, 23, 47, 13, 0, pst), DefaultIntervalDays, DefaultIntervals))
}

func TestRegistry_Track(t *testing.T) {
	r := newPSTRegistry(t)

	tracked := []struct {
		id, created, cohort string
	}{
		{"qazaq", "2015-07-07  06:21:42", "2015/07/01-2015/07/07"},
		{"QaZaQ", "2015-07-07  23:59:59", "2015/07/01-2015/07/07"},
		{"plokijuh", "2015-07-04  02:21:52", "2015/07/01-2015/07/07"},
		{"plokijuhy", "2015-07-01  13:10:55", "2015/07/01-2015/07/07"},
		{"plokijuhyg", "2015-07-01  07:00:00", "2015/07/01-2015/07/07"},
		{"hujikolp", "2015-05-23  21:08:56", "2015/05/20-2015/05/26"},
	}
	for _, tc := range tracked {
		got, ok := r.Track(tc.id, tc.created)
		require.True(t, ok, "customer %s", tc.id)
		assert.Equal(t, tc.cohort, got, "customer %s", tc.id)
	}

	_, ok := r.Track("tressert", "2015-03-21  19:43:27")
	assert.False(t, ok, "before the window")
	_, ok = r.Track("wassaw", "2015-07-09  00:00:00")
	assert.False(t, ok, "after the window")
	_, ok = r.Track("qazaq", "2015-07-06  07:47:27")
	assert.False(t, ok, "already tracked")

	member, ok := r.MemberCohort("qazaq")
	require.True(t, ok)
	assert.Equal(t, "2015/07/01-2015/07/07", member.ID)
	assert.Equal(t, naive(2015, 7, 1, 0, 0, 0), member.Start)
	assert.Equal(t, naive(2015, 7, 8, 0, 0, 0), member.End)

	plokijuh, _ := r.MemberCohort("plokijuh")
	assert.Equal(t, member, plokijuh)

	_, ok = r.MemberCohort("tressert")
	assert.False(t, ok)

	assert.Equal(t, 5, r.Cardinality("2015/07/01-2015/07/07"))
	assert.Equal(t, 1, r.Cardinality("2015/05/20-2015/05/26"))
	assert.Equal(t, 0, r.Cardinality("2015/06/24-2015/06/30"))
	assert.Equal(t, 6, r.CustomerCount())
	assert.Equal(t, 2, r.CohortCount())
}

func TestRegistry_TrackIsIdempotent(t *testing.T) {
	r := newPSTRegistry(t)

	id, ok := r.Track("qazaq", "2015-07-07 06:21:42")
	require.True(t, ok)

	for i := 0; i < 3; i++ {
		_, ok := r.Track("qazaq", "2015-07-07 06:21:42")
		assert.False(t, ok)
	}
	assert.Equal(t, 1, r.Cardinality(id))
	assert.Equal(t, 1, r.CustomerCount())
}

func TestRegistry_TrackRecordReasons(t *testing.T) {
	r := newPSTRegistry(t)

	tests := []struct {
		rec    domain.CustomerRecord
		reason SkipReason
	}{
		{domain.CustomerRecord{CustomerID: "a", CreatedAt: "2015-07-02 10:00:00"}, SkipNone},
		{domain.CustomerRecord{CustomerID: "", CreatedAt: "2015-07-02 10:00:00"}, SkipMissingID},
		{domain.CustomerRecord{CustomerID: "a", CreatedAt: "2015-07-03 10:00:00"}, SkipDuplicate},
		{domain.CustomerRecord{CustomerID: "b", CreatedAt: "not a date"}, SkipOutOfWindow},
		{domain.CustomerRecord{CustomerID: "c", CreatedAt: "2014-01-01 00:00:00"}, SkipOutOfWindow},
	}
	for _, tt := range tests {
		_, reason := r.TrackRecord(tt.rec)
		assert.Equal(t, tt.reason, reason, "record %+v", tt.rec)
	}

	// A rejected id can still be tracked later with a valid date.
	id, reason := r.TrackRecord(domain.CustomerRecord{CustomerID: "b", CreatedAt: "2015-06-30 12:00:00"})
	assert.Equal(t, SkipNone, reason)
	assert.Equal(t, "2015/06/24-2015/06/30", id)

	assert.Equal(t, "duplicate", SkipDuplicate.String())
	assert.Equal(t, "out_of_window", SkipOutOfWindow.String())
}

func TestRegistry_TrackAll(t *testing.T) {
	r := newPSTRegistry(t)

	n := r.TrackAll([]domain.CustomerRecord{
		{CustomerID: "a", CreatedAt: "2015-07-02 10:00:00"},
		{CustomerID: "b", CreatedAt: "2015-06-25 10:00:00"},
		{CustomerID: "c", CreatedAt: "garbage"},
		{CustomerID: "a", CreatedAt: "2015-05-25 10:00:00"},
	})
	assert.Equal(t, 2, n)

	n = r.TrackAll([]domain.CustomerRecord{
		{CustomerID: "d", CreatedAt: "2015-05-25 10:00:00"},
	})
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, r.CustomerCount())

	assert.Equal(t, []string{
		"2015/07/01-2015/07/07",
		"2015/06/24-2015/06/30",
		"2015/05/20-2015/05/26",
	}, r.CohortIDs())

	c, ok := r.Cohort("2015/06/24-2015/06/30")
	require.True(t, ok)
	assert.Equal(t, naive(2015, 6, 24, 0, 0, 0), c.Start)
}

func TestRegistry_String(t *testing.T) {
	r := newPSTRegistry(t)
	r.Track("a", "2015-07-02 10:00:00")

	assert.Equal(t,
		"customer cohorts between 2015-05-13 00:00:00 and 2015-07-08 00:00:00, with 1 cohorts, on 1 customers",
		r.String())
}
