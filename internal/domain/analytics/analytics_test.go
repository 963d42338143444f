package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-api/internal/domain/order"
)

type mockRepo struct {
	sales     decimal.Decimal
	count     int
	breakdown map[order.Status]int
	series    []DailySales

	total    int
	pending  int
	delivered int
	revenue  decimal.Decimal
	recent   []order.Order

	err error
}

func (m *mockRepo) SalesTotals(_ context.Context, _ time.Time) (decimal.Decimal, int, error) {
	return m.sales, m.count, m.err
}

func (m *mockRepo) StatusBreakdown(_ context.Context, _ time.Time) (map[order.Status]int, error) {
	return m.breakdown, m.err
}

func (m *mockRepo) SalesByDate(_ context.Context, _ time.Time) ([]DailySales, error) {
	return m.series, m.err
}

func (m *mockRepo) DashboardCounts(_ context.Context) (int, int, int, decimal.Decimal, error) {
	return m.total, m.pending, m.delivered, m.revenue, m.err
}

func (m *mockRepo) RecentOrders(_ context.Context, limit int) ([]order.Order, error) {
	if len(m.recent) > limit {
		return m.recent[:limit], m.err
	}
	return m.recent, m.err
}

func TestParsePeriod(t *testing.T) {
	assert.Equal(t, PeriodDay, ParsePeriod("day"))
	assert.Equal(t, PeriodWeek, ParsePeriod("week"))
	assert.Equal(t, PeriodMonth, ParsePeriod("month"))
	assert.Equal(t, PeriodYear, ParsePeriod("year"))

	assert.Equal(t, PeriodMonth, ParsePeriod(""))
	assert.Equal(t, PeriodMonth, ParsePeriod("quarter"))
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2025, 6, 15, 13, 45, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), PeriodDay.Start(now))
	assert.Equal(t, now.AddDate(0, 0, -7), PeriodWeek.Start(now))
	assert.Equal(t, now.AddDate(0, -1, 0), PeriodMonth.Start(now))
	assert.Equal(t, now.AddDate(-1, 0, 0), PeriodYear.Start(now))
}

func TestSalesReport(t *testing.T) {
	repo := &mockRepo{
		sales: decimal.RequireFromString("150.00"),
		count: 4,
		breakdown: map[order.Status]int{
			order.StatusOrdered:   3,
			order.StatusDelivered: 1,
		},
		series: []DailySales{
			{Date: "2025-06-14", Sales: decimal.RequireFromString("100.00"), Orders: 2},
			{Date: "2025-06-15", Sales: decimal.RequireFromString("50.00"), Orders: 2},
		},
	}
	svc := NewService(repo)

	report, err := svc.SalesReport(context.Background(), PeriodWeek)
	require.NoError(t, err)

	assert.Equal(t, PeriodWeek, report.Period)
	assert.Equal(t, 4, report.TotalOrders)
	assert.True(t, report.TotalSales.Equal(decimal.RequireFromString("150.00")))
	assert.True(t, report.AverageOrderValue.Equal(decimal.RequireFromString("37.50")),
		"expected 37.50, got %s", report.AverageOrderValue)
	assert.Len(t, report.SalesByDate, 2)

	// Statuses with no orders are still present with a zero count.
	require.Len(t, report.StatusBreakdown, len(order.Statuses))
	assert.Equal(t, 3, report.StatusBreakdown[order.StatusOrdered])
	assert.Equal(t, 0, report.StatusBreakdown[order.StatusShipped])
	assert.Equal(t, 0, report.StatusBreakdown[order.StatusOutForDelivery])
	assert.Equal(t, 1, report.StatusBreakdown[order.StatusDelivered])
}

func TestSalesReport_NoOrders(t *testing.T) {
	svc := NewService(&mockRepo{sales: decimal.Zero})

	report, err := svc.SalesReport(context.Background(), PeriodMonth)
	require.NoError(t, err)

	assert.Equal(t, 0, report.TotalOrders)
	assert.True(t, report.AverageOrderValue.IsZero())
	require.Len(t, report.StatusBreakdown, len(order.Statuses))
}

func TestSalesReport_RepoError(t *testing.T) {
	svc := NewService(&mockRepo{err: errors.New("db down")})

	_, err := svc.SalesReport(context.Background(), PeriodMonth)
	require.Error(t, err)
}

func TestDashboard(t *testing.T) {
	repo := &mockRepo{
		total:    10,
		pending:  6,
		delivered: 4,
		revenue:  decimal.RequireFromString("999.90"),
		recent: []order.Order{
			{ID: "o6"}, {ID: "o5"}, {ID: "o4"}, {ID: "o3"}, {ID: "o2"}, {ID: "o1"},
		},
	}
	svc := NewService(repo)

	stats, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, stats.TotalOrders)
	assert.Equal(t, 6, stats.PendingOrders)
	assert.Equal(t, 4, stats.DeliveredOrders)
	assert.True(t, stats.TotalRevenue.Equal(decimal.RequireFromString("999.90")))
	assert.Len(t, stats.RecentOrders, 5, "dashboard caps recent orders at five")
}
