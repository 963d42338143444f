package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/wishlist"
)

const (
	getWishlistItemsSQL = `SELECT product_id FROM wishlist_items
		WHERE user_id = $1 ORDER BY created_at, product_id`

	// Repeat adds are a no-op; the caller inspects the affected row count.
	addWishlistItemSQL = `INSERT INTO wishlist_items (user_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING`

	removeWishlistItemSQL = `DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`
)

var _ wishlist.Repository = (*WishlistRepository)(nil)

// WishlistRepository implements wishlist.Repository backed by PostgreSQL.
type WishlistRepository struct {
	pool *pgxpool.Pool
}

// NewWishlistRepository returns a WishlistRepository that uses the given pool.
func NewWishlistRepository(pool *pgxpool.Pool) *WishlistRepository {
	return &WishlistRepository{pool: pool}
}

// ProductIDs returns the user's wishlisted product ids in insertion order.
func (r *WishlistRepository) ProductIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, getWishlistItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("getting wishlist items for %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
}

// Add inserts a wishlist row, reporting whether one was created.
func (r *WishlistRepository) Add(ctx context.Context, userID, productID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, addWishlistItemSQL, userID, productID)
	if err != nil {
		return false, fmt.Errorf("adding wishlist item for %q: %w", userID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Remove deletes one wishlist row.
func (r *WishlistRepository) Remove(ctx context.Context, userID, productID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, removeWishlistItemSQL, userID, productID)
	if err != nil {
		return false, fmt.Errorf("removing wishlist item for %q: %w", userID, err)
	}
	return tag.RowsAffected() > 0, nil
}
