package pipeline

import (
	"time"

	"cohort-retention/internal/domain"
)

// FixtureAnchor is the recent date the fixture data set is built around.
func FixtureAnchor() time.Time {
	return time.Date(2020, 10, 18, 23, 47, 13, 0, time.FixedZone("PDT", -7*60*60))
}

// FixtureCustomers returns the demonstration customer set. It contains one
// duplicate id, one missing id and one customer outside an 8 x 7 day window.
func FixtureCustomers() []domain.CustomerRecord {
	return []domain.CustomerRecord{
		{CustomerID: "hujikolp", CreatedAt: "2020-10-17 08:24:52"},
		{CustomerID: "plokijuh", CreatedAt: "2020-10-09 08:44:02"},
		{CustomerID: "wassaw", CreatedAt: "2020-10-10 02:44:02"},
		{CustomerID: "qazaq", CreatedAt: "2020-09-30 18:24:52"},
		{CustomerID: "QaZaQ", CreatedAt: "2020-10-01 08:51:52"},
		{CustomerID: "mnbvcx", CreatedAt: "2020-09-14 11:02:45"},
		{CustomerID: "lkjhgf", CreatedAt: "2020-09-16 22:17:09"},
		{CustomerID: "poiuyt", CreatedAt: "2020-08-27 05:40:31"},
		{CustomerID: "rewq", CreatedAt: "2020-08-25 13:13:13"},
		{CustomerID: "qazaq", CreatedAt: "2020-10-12 09:00:00"},
		{CustomerID: "", CreatedAt: "2020-10-02 10:10:10"},
		{CustomerID: "ancient", CreatedAt: "2019-12-31 23:59:59"},
	}
}

// FixtureOrders returns the demonstration order set. It contains one order of
// an unknown customer and one with an unparseable date.
func FixtureOrders() []domain.OrderRecord {
	return []domain.OrderRecord{
		{OrderID: "o-001", CustomerID: "qazaq", CreatedAt: "2020-10-06 20:43:17", Sequence: "2"},
		{OrderID: "o-002", CustomerID: "qazaq", CreatedAt: "2020-10-05 23:13:33", Sequence: "1"},
		{OrderID: "o-003", CustomerID: "plokijuh", CreatedAt: "2020-10-09 08:43:57", Sequence: "1"},
		{OrderID: "o-004", CustomerID: "plokijuh", CreatedAt: "2020-10-12 01:04:07", Sequence: "2"},
		{OrderID: "o-005", CustomerID: "qazaq", CreatedAt: "2020-10-14 21:34:07", Sequence: "3"},
		{OrderID: "o-006", CustomerID: "hujikolp", CreatedAt: "2020-10-17 12:21:32", Sequence: "1"},
		{OrderID: "o-007", CustomerID: "qazaq", CreatedAt: "2020-10-19 03:34:07", Sequence: "4"},
		{OrderID: "o-008", CustomerID: "wassaw", CreatedAt: "2020-10-11 00:00:01", Sequence: "1"},
		{OrderID: "o-009", CustomerID: "mnbvcx", CreatedAt: "2020-09-15 09:30:00", Sequence: "1"},
		{OrderID: "o-010", CustomerID: "mnbvcx", CreatedAt: "2020-10-03 18:45:12", Sequence: "2"},
		{OrderID: "o-011", CustomerID: "lkjhgf", CreatedAt: "2020-09-29 07:07:07", Sequence: "1"},
		{OrderID: "o-012", CustomerID: "poiuyt", CreatedAt: "2020-08-28 16:20:00", Sequence: "1"},
		{OrderID: "o-013", CustomerID: "rewq", CreatedAt: "2020-09-21 12:00:00", Sequence: "1"},
		{OrderID: "o-014", CustomerID: "rewq", CreatedAt: "2020-10-16 12:00:00", Sequence: "2"},
		{OrderID: "o-015", CustomerID: "stranger", CreatedAt: "2020-10-10 10:10:10", Sequence: "1"},
		{OrderID: "o-016", CustomerID: "poiuyt", CreatedAt: "2020/10/01 10:00:00", Sequence: "2"},
	}
}
