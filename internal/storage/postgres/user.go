package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/user"
)

const (
	findUserByKeyHashSQL = `SELECT u.id, u.name, u.email, u.role, k.key_hash
		FROM api_keys k
		JOIN users u ON u.id = k.user_id
		WHERE k.key_hash = $1 AND k.active = TRUE`

	findUsersByRoleSQL = `SELECT id, name, email, role FROM users WHERE role = $1 ORDER BY id`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// FindByKeyHash resolves the user owning an active API key with the given
// HMAC-SHA256 hash.
func (r *UserRepository) FindByKeyHash(ctx context.Context, hash string) (*user.User, string, error) {
	var (
		u          user.User
		storedHash string
	)
	err := r.pool.QueryRow(ctx, findUserByKeyHashSQL, hash).Scan(
		&u.ID, &u.Name, &u.Email, &u.Role, &storedHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", user.ErrNotFound
		}
		return nil, "", fmt.Errorf("finding user by key hash: %w", err)
	}
	return &u, storedHash, nil
}

// FindByRole returns every user holding the given role.
func (r *UserRepository) FindByRole(ctx context.Context, role user.Role) ([]user.User, error) {
	rows, err := r.pool.Query(ctx, findUsersByRoleSQL, role)
	if err != nil {
		return nil, fmt.Errorf("finding users by role %q: %w", role, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (user.User, error) {
		var u user.User
		err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role)
		return u, err
	})
}
