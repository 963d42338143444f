package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/order"
)

const (
	orderColumns = `id, user_id, items, ship_street, ship_city, ship_state, ship_zip, ship_country,
		payment_method, total_price, order_status, delivered_at, created_at`

	createOrderSQL = `INSERT INTO orders (id, user_id, items, ship_street, ship_city, ship_state, ship_zip, ship_country,
		payment_method, total_price, order_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`

	// Conditional decrement: zero rows affected means the product cannot
	// cover the requested quantity, and the whole placement aborts.
	decrementStockSQL = `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 AND ($2::text IS NULL OR order_status = $2)
		ORDER BY created_at DESC`

	listAllOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE ($1::text IS NULL OR order_status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	countOrdersSQL = `SELECT count(*) FROM orders WHERE ($1::text IS NULL OR order_status = $1)`

	// delivered_at stamps on the first transition to Delivered and is
	// never cleared afterwards.
	updateOrderStatusSQL = `UPDATE orders SET order_status = $2,
		delivered_at = CASE WHEN $3::timestamptz IS NULL THEN delivered_at ELSE COALESCE(delivered_at, $3) END
		WHERE id = $1
		RETURNING ` + orderColumns
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order and decrements stock for every line item in a
// single transaction. The items are serialized to JSON for storage in the
// JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		addr := o.ShippingAddress
		err := tx.QueryRow(ctx, createOrderSQL,
			o.ID, o.UserID, itemsJSON,
			addr.Street, addr.City, addr.State, addr.ZipCode, addr.Country,
			o.PaymentMethod, o.TotalPrice, o.Status,
		).Scan(&o.CreatedAt)
		if err != nil {
			return fmt.Errorf("creating order %q: %w", o.ID, err)
		}

		for _, item := range o.Items {
			tag, err := tx.Exec(ctx, decrementStockSQL, item.ProductID, item.Quantity)
			if err != nil {
				return fmt.Errorf("decrementing stock for %q: %w", item.ProductID, err)
			}
			if tag.RowsAffected() == 0 {
				return &order.InsufficientStockError{ProductID: item.ProductID, Name: item.Name}
			}
		}
		return nil
	})
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByUser returns a user's orders newest-first, optionally filtered by
// status.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, status *order.Status) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID, statusArg(status))
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListAll returns one page of all orders newest-first plus the total
// matching count.
func (r *OrderRepository) ListAll(ctx context.Context, params order.ListAllParams) ([]order.Order, int, error) {
	status := statusArg(params.Status)
	offset := (params.Page - 1) * params.Limit

	rows, err := r.pool.Query(ctx, listAllOrdersSQL, status, params.Limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing all orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("listing all orders: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countOrdersSQL, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}
	return orders, total, nil
}

// UpdateStatus sets the order's status, stamping delivered_at when a
// delivery time is provided and none is stored yet.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status, deliveredAt *time.Time) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, updateOrderStatusSQL, id, status, deliveredAt)
	if err != nil {
		return nil, fmt.Errorf("updating order %q status: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("updating order %q status: %w", id, err)
	}
	return &o, nil
}

func statusArg(status *order.Status) *string {
	if status == nil {
		return nil
	}
	s := string(*status)
	return &s
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
		total     decimal.Decimal
	)
	err := row.Scan(
		&o.ID, &o.UserID, &itemsJSON,
		&o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.State,
		&o.ShippingAddress.ZipCode, &o.ShippingAddress.Country,
		&o.PaymentMethod, &total, &o.Status, &o.DeliveredAt, &o.CreatedAt,
	)
	if err != nil {
		return order.Order{}, err
	}
	o.TotalPrice = total

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling order items: %w", err)
	}
	return o, nil
}
