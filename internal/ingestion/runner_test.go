package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cohort-retention/internal/aggregation"
	"cohort-retention/internal/cohort"
	"cohort-retention/internal/domain"
	"cohort-retention/internal/observability"
)

var pst = time.FixedZone("PST", -7*60*60)

func newTestRunner(t *testing.T) (*Runner, *observability.Metrics, *logtest.Hook) {
	t.Helper()

	w, err := cohort.NewWindow(cohort.Config{
		Anchor:       time.Date(2020, 10, 18, 23, 47, 13, 0, pst),
		IntervalDays: 7,
		Intervals:    3,
	})
	require.NoError(t, err)

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())

	return NewRunner(RunnerOptions{
		Registry: cohort.NewRegistry(w),
		Metrics:  metrics,
		Logger:   logger,
	}), metrics, hook
}

var testCustomers = []domain.CustomerRecord{
	{CustomerID: "hujikolp", CreatedAt: "2020-10-17 08:24:52"},
	{CustomerID: "plokijuh", CreatedAt: "2020-10-09 08:44:02"},
	{CustomerID: "wassaw", CreatedAt: "2020-10-10 02:44:02"},
	{CustomerID: "qazaq", CreatedAt: "2020-09-30 18:24:52"},
	{CustomerID: "QaZaQ", CreatedAt: "2020-10-01 08:51:52"},
	{CustomerID: "qazaq", CreatedAt: "2020-10-02 08:51:52"},
	{CustomerID: "", CreatedAt: "2020-10-02 08:51:52"},
	{CustomerID: "old", CreatedAt: "2019-01-01 00:00:00"},
}

var testOrders = []domain.OrderRecord{
	{OrderID: "1", CustomerID: "qazaq", CreatedAt: "2020-10-05 23:13:33", Sequence: "1"},
	{OrderID: "2", CustomerID: "qazaq", CreatedAt: "2020-10-14 21:34:07", Sequence: "2"},
	{OrderID: "3", CustomerID: "hujikolp", CreatedAt: "2020-10-17 12:21:32", Sequence: "1"},
	{OrderID: "4", CustomerID: "ghost", CreatedAt: "2020-10-17 12:21:32", Sequence: "1"},
	{OrderID: "5", CustomerID: "qazaq", CreatedAt: "not a date", Sequence: "3"},
}

func TestRunner_BuildAndAggregate(t *testing.T) {
	runner, metrics, hook := newTestRunner(t)
	ctx := context.Background()

	build, err := runner.BuildCohorts(ctx, NewMemoryCustomerSource("mem", testCustomers))
	require.NoError(t, err)

	assert.Equal(t, 8, build.Read)
	assert.Equal(t, 5, build.Tracked)
	assert.Equal(t, 3, build.Cohorts)
	assert.Equal(t, 1, build.Skipped[cohort.SkipDuplicate])
	assert.Equal(t, 1, build.Skipped[cohort.SkipMissingID])
	assert.Equal(t, 1, build.Skipped[cohort.SkipOutOfWindow])

	agg, err := runner.AggregateOrders(ctx, NewMemoryOrderSource("mem", testOrders))
	require.NoError(t, err)

	assert.Equal(t, 5, agg.Read)
	assert.Equal(t, 3, agg.Recorded)
	assert.Equal(t, 1, agg.Skipped[aggregation.UnknownCustomer])
	assert.Equal(t, 1, agg.Skipped[aggregation.OutOfWindow])

	summary, ok := runner.Aggregator().SummaryForCohort("2020/09/28-2020/10/04")
	require.True(t, ok)
	assert.Equal(t, []domain.IntervalCounts{
		{Orderers: 1, FirstTimeOrderers: 0},
		{Orderers: 1, FirstTimeOrderers: 1},
		{Orderers: 0, FirstTimeOrderers: 0},
	}, summary)

	assert.Equal(t, 8.0, testutil.ToFloat64(metrics.CustomersRead.WithLabelValues("mem")))
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.CustomersTracked))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CustomersSkipped.WithLabelValues("duplicate")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.Cohorts))
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.TrackedCustomers))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.OrdersRecorded))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OrdersSkipped.WithLabelValues("unknown_customer")))

	var skips int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.DebugLevel {
			skips++
		}
	}
	assert.Equal(t, 5, skips)
	assert.Equal(t, "orders aggregated", hook.LastEntry().Message)
}

func TestRunner_MultipleSourcesKeepOrder(t *testing.T) {
	runner, _, _ := newTestRunner(t)
	ctx := context.Background()

	first := NewMemoryCustomerSource("a", []domain.CustomerRecord{{CustomerID: "x", CreatedAt: "2020-10-17 08:24:52"}})
	second := NewMemoryCustomerSource("b", []domain.CustomerRecord{{CustomerID: "x", CreatedAt: "2020-09-30 08:24:52"}})

	stats, err := runner.BuildCohorts(ctx, first, second)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Tracked)

	c, ok := runner.Registry().MemberCohort("x")
	require.True(t, ok)
	assert.Equal(t, "2020/10/12-2020/10/18", c.ID)
}

func TestRunner_PhaseOrder(t *testing.T) {
	runner, _, _ := newTestRunner(t)
	ctx := context.Background()

	_, err := runner.AggregateOrders(ctx, NewMemoryOrderSource("mem", testOrders))
	assert.ErrorIs(t, err, ErrPhaseOrder)

	_, err = runner.BuildCohorts(ctx, NewMemoryCustomerSource("mem", testCustomers))
	require.NoError(t, err)
	_, err = runner.BuildCohorts(ctx, NewMemoryCustomerSource("more", nil))
	require.NoError(t, err)

	_, err = runner.AggregateOrders(ctx, NewMemoryOrderSource("mem", testOrders))
	require.NoError(t, err)
	_, err = runner.AggregateOrders(ctx, NewMemoryOrderSource("again", nil))
	require.NoError(t, err)

	_, err = runner.BuildCohorts(ctx, NewMemoryCustomerSource("late", testCustomers))
	assert.ErrorIs(t, err, ErrPhaseOrder)
}

type failingOrderSource struct{}

func (failingOrderSource) Name() string { return "broken" }

func (failingOrderSource) ReadOrders(_ context.Context, fn func(domain.OrderRecord)) error {
	fn(domain.OrderRecord{CustomerID: "qazaq", CreatedAt: "2020-10-05 23:13:33", Sequence: "1"})
	return errors.New("connection reset")
}

func TestRunner_SourceError(t *testing.T) {
	runner, metrics, _ := newTestRunner(t)
	ctx := context.Background()

	_, err := runner.BuildCohorts(ctx, NewMemoryCustomerSource("mem", testCustomers))
	require.NoError(t, err)

	stats, err := runner.AggregateOrders(ctx, failingOrderSource{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read orders from broken")
	assert.Equal(t, 1, stats.Recorded)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SourceErrors.WithLabelValues("broken")))
}

func TestRunner_Cancelled(t *testing.T) {
	runner, _, _ := newTestRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.BuildCohorts(ctx, NewMemoryCustomerSource("mem", testCustomers))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRunner_FromAggregator(t *testing.T) {
	w, err := cohort.NewWindow(cohort.Config{Anchor: time.Date(2020, 10, 18, 0, 0, 0, 0, time.UTC), IntervalDays: 7, Intervals: 1})
	require.NoError(t, err)
	agg := aggregation.NewAggregator(cohort.NewRegistry(w))

	runner := NewRunner(RunnerOptions{Aggregator: agg})
	assert.Same(t, agg, runner.Aggregator())
	assert.Same(t, agg.Registry(), runner.Registry())
}
