package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/cart"
)

const (
	getCartItemsSQL = `SELECT product_id, quantity FROM cart_items
		WHERE user_id = $1 ORDER BY created_at, product_id`

	// Repeat adds of the same product accumulate quantity.
	addCartItemSQL = `INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`

	setCartQuantitySQL = `UPDATE cart_items SET quantity = $3
		WHERE user_id = $1 AND product_id = $2`

	removeCartItemSQL = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	clearCartSQL = `DELETE FROM cart_items WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Items returns the user's cart items in insertion order.
func (r *CartRepository) Items(ctx context.Context, userID string) ([]cart.Item, error) {
	rows, err := r.pool.Query(ctx, getCartItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("getting cart items for %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Item, error) {
		var item cart.Item
		err := row.Scan(&item.ProductID, &item.Quantity)
		return item, err
	})
}

// AddItem upserts a cart row, accumulating quantity on conflict.
func (r *CartRepository) AddItem(ctx context.Context, userID string, item cart.Item) error {
	_, err := r.pool.Exec(ctx, addCartItemSQL, userID, item.ProductID, item.Quantity)
	if err != nil {
		return fmt.Errorf("adding cart item for %q: %w", userID, err)
	}
	return nil
}

// SetQuantity replaces the quantity of an existing row.
func (r *CartRepository) SetQuantity(ctx context.Context, userID, productID string, quantity int) (bool, error) {
	tag, err := r.pool.Exec(ctx, setCartQuantitySQL, userID, productID, quantity)
	if err != nil {
		return false, fmt.Errorf("setting cart quantity for %q: %w", userID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// RemoveItem deletes one cart row.
func (r *CartRepository) RemoveItem(ctx context.Context, userID, productID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, removeCartItemSQL, userID, productID)
	if err != nil {
		return false, fmt.Errorf("removing cart item for %q: %w", userID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Clear removes every item from the user's cart.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, clearCartSQL, userID); err != nil {
		return fmt.Errorf("clearing cart for %q: %w", userID, err)
	}
	return nil
}
