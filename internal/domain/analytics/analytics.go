package analytics

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-api/internal/domain/order"
)

// Period selects the time window for sales rollups.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod maps a raw query value to a Period, defaulting to month for
// empty or unrecognized input.
func ParsePeriod(s string) Period {
	switch Period(s) {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return Period(s)
	default:
		return PeriodMonth
	}
}

// Start returns the beginning of the window ending at now.
func (p Period) Start(now time.Time) time.Time {
	switch p {
	case PeriodDay:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	case PeriodYear:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, -1, 0)
	}
}

// DailySales is one calendar day of the sales series.
type DailySales struct {
	Date   string
	Sales  decimal.Decimal
	Orders int
}

// SalesReport is the rollup for one period window.
type SalesReport struct {
	Period            Period
	TotalSales        decimal.Decimal
	TotalOrders       int
	AverageOrderValue decimal.Decimal
	StatusBreakdown   map[order.Status]int
	SalesByDate       []DailySales
}

// DashboardStats is the admin landing-page summary.
type DashboardStats struct {
	TotalOrders     int
	PendingOrders   int
	DeliveredOrders int
	TotalRevenue    decimal.Decimal
	RecentOrders    []order.Order
}

// Repository defines the read-only aggregation queries over the order log.
type Repository interface {
	// SalesTotals returns the sales sum and order count since the given time.
	SalesTotals(ctx context.Context, since time.Time) (decimal.Decimal, int, error)

	// StatusBreakdown returns order counts grouped by status since the
	// given time. Statuses with no orders are absent from the map.
	StatusBreakdown(ctx context.Context, since time.Time) (map[order.Status]int, error)

	// SalesByDate returns the per-calendar-day series since the given
	// time, oldest day first.
	SalesByDate(ctx context.Context, since time.Time) ([]DailySales, error)

	// DashboardCounts returns the all-time order count, pending count,
	// delivered count, and revenue sum.
	DashboardCounts(ctx context.Context) (total, pending, delivered int, revenue decimal.Decimal, err error)

	// RecentOrders returns the most recently created orders, newest first.
	RecentOrders(ctx context.Context, limit int) ([]order.Order, error)
}

// Service composes the aggregation queries into reports.
type Service struct {
	repo Repository
}

// NewService creates an analytics Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SalesReport computes the rollup for the given period. The three
// independent aggregations run concurrently.
func (s *Service) SalesReport(ctx context.Context, period Period) (*SalesReport, error) {
	since := period.Start(time.Now().UTC())
	report := &SalesReport{Period: period}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sales, count, err := s.repo.SalesTotals(gctx, since)
		if err != nil {
			return errors.Wrap(err, "sales totals")
		}
		report.TotalSales = sales
		report.TotalOrders = count
		return nil
	})
	g.Go(func() error {
		breakdown, err := s.repo.StatusBreakdown(gctx, since)
		if err != nil {
			return errors.Wrap(err, "status breakdown")
		}
		report.StatusBreakdown = breakdown
		return nil
	})
	g.Go(func() error {
		series, err := s.repo.SalesByDate(gctx, since)
		if err != nil {
			return errors.Wrap(err, "sales by date")
		}
		report.SalesByDate = series
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Every recognized status appears in the breakdown, zero or not.
	if report.StatusBreakdown == nil {
		report.StatusBreakdown = make(map[order.Status]int, len(order.Statuses))
	}
	for _, st := range order.Statuses {
		if _, ok := report.StatusBreakdown[st]; !ok {
			report.StatusBreakdown[st] = 0
		}
	}

	if report.TotalOrders > 0 {
		report.AverageOrderValue = report.TotalSales.
			Div(decimal.NewFromInt(int64(report.TotalOrders))).
			Round(2)
	} else {
		report.AverageOrderValue = decimal.Zero
	}

	return report, nil
}

// Dashboard computes the admin summary. The counts and the recent-orders
// fetch run concurrently.
func (s *Service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, pending, delivered, revenue, err := s.repo.DashboardCounts(gctx)
		if err != nil {
			return errors.Wrap(err, "dashboard counts")
		}
		stats.TotalOrders = total
		stats.PendingOrders = pending
		stats.DeliveredOrders = delivered
		stats.TotalRevenue = revenue
		return nil
	})
	g.Go(func() error {
		recent, err := s.repo.RecentOrders(gctx, 5)
		if err != nil {
			return errors.Wrap(err, "recent orders")
		}
		stats.RecentOrders = recent
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return stats, nil
}
