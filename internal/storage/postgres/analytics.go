package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/analytics"
	"github.com/xenking/storefront-api/internal/domain/order"
)

const (
	salesTotalsSQL = `SELECT COALESCE(SUM(total_price), 0), count(*)
		FROM orders WHERE created_at >= $1`

	statusBreakdownSQL = `SELECT order_status, count(*)
		FROM orders WHERE created_at >= $1
		GROUP BY order_status`

	salesByDateSQL = `SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
		COALESCE(SUM(total_price), 0), count(*)
		FROM orders WHERE created_at >= $1
		GROUP BY day ORDER BY day`

	dashboardCountsSQL = `SELECT count(*),
		count(*) FILTER (WHERE order_status = 'Ordered'),
		count(*) FILTER (WHERE order_status = 'Delivered'),
		COALESCE(SUM(total_price), 0)
		FROM orders`

	recentOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		ORDER BY created_at DESC LIMIT $1`
)

var _ analytics.Repository = (*AnalyticsRepository)(nil)

// AnalyticsRepository implements the read-only aggregation queries over the
// order log.
type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository returns an AnalyticsRepository that uses the given
// pool.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// SalesTotals returns the sales sum and order count since the given time.
func (r *AnalyticsRepository) SalesTotals(ctx context.Context, since time.Time) (decimal.Decimal, int, error) {
	var (
		sales decimal.Decimal
		count int
	)
	if err := r.pool.QueryRow(ctx, salesTotalsSQL, since).Scan(&sales, &count); err != nil {
		return decimal.Zero, 0, fmt.Errorf("querying sales totals: %w", err)
	}
	return sales, count, nil
}

// StatusBreakdown returns order counts grouped by status since the given time.
func (r *AnalyticsRepository) StatusBreakdown(ctx context.Context, since time.Time) (map[order.Status]int, error) {
	rows, err := r.pool.Query(ctx, statusBreakdownSQL, since)
	if err != nil {
		return nil, fmt.Errorf("querying status breakdown: %w", err)
	}
	defer rows.Close()

	breakdown := make(map[order.Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning status breakdown: %w", err)
		}
		breakdown[order.Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying status breakdown: %w", err)
	}
	return breakdown, nil
}

// SalesByDate returns the per-calendar-day series since the given time.
func (r *AnalyticsRepository) SalesByDate(ctx context.Context, since time.Time) ([]analytics.DailySales, error) {
	rows, err := r.pool.Query(ctx, salesByDateSQL, since)
	if err != nil {
		return nil, fmt.Errorf("querying sales by date: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (analytics.DailySales, error) {
		var d analytics.DailySales
		err := row.Scan(&d.Date, &d.Sales, &d.Orders)
		return d, err
	})
}

// DashboardCounts returns the all-time order counts and revenue sum.
func (r *AnalyticsRepository) DashboardCounts(ctx context.Context) (total, pending, delivered int, revenue decimal.Decimal, err error) {
	if err = r.pool.QueryRow(ctx, dashboardCountsSQL).Scan(&total, &pending, &delivered, &revenue); err != nil {
		err = fmt.Errorf("querying dashboard counts: %w", err)
	}
	return
}

// RecentOrders returns the most recently created orders, newest first.
func (r *AnalyticsRepository) RecentOrders(ctx context.Context, limit int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, recentOrdersSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}
