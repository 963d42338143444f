package user

import (
	"context"

	"github.com/go-faster/errors"
)

// Role classifies what a user is allowed to do.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// ErrNotFound is returned when no user matches the lookup.
var ErrNotFound = errors.New("user not found")

// User is an authenticated storefront identity.
type User struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Repository provides user lookups.
type Repository interface {
	// FindByKeyHash resolves the user owning an active API key with the
	// given HMAC-SHA256 hash, together with the stored hash for
	// constant-time verification.
	FindByKeyHash(ctx context.Context, hash string) (*User, string, error)

	// FindByRole returns every user holding the given role.
	FindByRole(ctx context.Context, role Role) ([]User, error)
}
