package wishlist

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-api/internal/domain/product"
)

var (
	// ErrAlreadyExists is returned when the product is already on the
	// user's wishlist.
	ErrAlreadyExists = errors.New("product already in wishlist")
	// ErrItemNotFound is returned when the referenced product is not on
	// the user's wishlist.
	ErrItemNotFound = errors.New("product not in wishlist")
)

// Wishlist is a user's saved-for-later product list. Like the cart it is
// implicit; a user with no stored items has an empty wishlist.
type Wishlist struct {
	UserID   string
	Products []product.Product
}

// Repository defines persistence operations for wishlist items.
type Repository interface {
	// ProductIDs returns the user's wishlisted product ids in insertion
	// order.
	ProductIDs(ctx context.Context, userID string) ([]string, error)

	// Add inserts the product, reporting whether a new row was created.
	// Adding a product that is already present is a no-op.
	Add(ctx context.Context, userID, productID string) (bool, error)

	// Remove deletes the row for the given product, reporting whether
	// one existed.
	Remove(ctx context.Context, userID, productID string) (bool, error)
}

// Service implements wishlist operations with catalog-backed lookups.
type Service struct {
	wishlists Repository
	products  product.Repository
}

// NewService creates a wishlist Service.
func NewService(wishlists Repository, products product.Repository) *Service {
	return &Service{wishlists: wishlists, products: products}
}

// Get returns the user's wishlist with current catalog details joined in.
// Items whose product has been removed from the catalog are dropped.
func (s *Service) Get(ctx context.Context, userID string) (*Wishlist, error) {
	ids, err := s.wishlists.ProductIDs(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get wishlist items")
	}

	wl := &Wishlist{UserID: userID, Products: []product.Product{}}
	if len(ids) == 0 {
		return wl, nil
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get wishlist products")
	}

	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			continue
		}
		wl.Products = append(wl.Products, p)
	}
	return wl, nil
}

// Add puts a product onto the user's wishlist. The product must exist in
// the catalog; adding it twice is rejected.
func (s *Service) Add(ctx context.Context, userID, productID string) (*Wishlist, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}

	added, err := s.wishlists.Add(ctx, userID, productID)
	if err != nil {
		return nil, errors.Wrap(err, "add wishlist item")
	}
	if !added {
		return nil, ErrAlreadyExists
	}
	return s.Get(ctx, userID)
}

// Remove deletes a product from the user's wishlist.
func (s *Service) Remove(ctx context.Context, userID, productID string) (*Wishlist, error) {
	removed, err := s.wishlists.Remove(ctx, userID, productID)
	if err != nil {
		return nil, errors.Wrap(err, "remove wishlist item")
	}
	if !removed {
		return nil, ErrItemNotFound
	}
	return s.Get(ctx, userID)
}
