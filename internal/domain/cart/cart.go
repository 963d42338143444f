package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-api/internal/domain/product"
)

var (
	// ErrItemNotFound is returned when the referenced product is not in
	// the user's cart.
	ErrItemNotFound = errors.New("item not found in cart")
	// ErrInvalidQuantity is returned for non-positive quantities.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	// ErrInsufficientStock is returned when the catalog cannot cover the
	// requested quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Item is one (product, quantity) pair in a user's cart.
type Item struct {
	ProductID string
	Quantity  int
}

// Line is a cart item joined with its current catalog snapshot for
// presentation. Unlike order items this is not a historical snapshot; it
// always reflects the catalog as of the read.
type Line struct {
	Product  product.Product
	Quantity int
}

// Cart is a user's scratch list of intended purchases. A user with no
// stored items has an empty cart; carts are never explicitly created.
type Cart struct {
	UserID string
	Lines  []Line
}

// Repository defines persistence operations for cart items.
type Repository interface {
	// Items returns the user's cart items in insertion order.
	Items(ctx context.Context, userID string) ([]Item, error)

	// AddItem inserts the item or accumulates quantity onto an existing
	// row for the same product.
	AddItem(ctx context.Context, userID string, item Item) error

	// SetQuantity replaces the quantity of an existing row. It reports
	// whether a row was updated.
	SetQuantity(ctx context.Context, userID, productID string, quantity int) (bool, error)

	// RemoveItem deletes the row for the given product, reporting whether
	// one existed.
	RemoveItem(ctx context.Context, userID, productID string) (bool, error)

	// Clear removes every item from the user's cart.
	Clear(ctx context.Context, userID string) error
}

// Service implements cart operations with catalog-backed stock checks.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{carts: carts, products: products}
}

// Get returns the user's cart with current catalog details joined in.
// Items whose product has been removed from the catalog are dropped.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	items, err := s.carts.Items(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart items")
	}

	c := &Cart{UserID: userID, Lines: []Line{}}
	if len(items) == 0 {
		return c, nil
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get cart products")
	}

	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	for _, item := range items {
		p, ok := byID[item.ProductID]
		if !ok {
			continue
		}
		c.Lines = append(c.Lines, Line{Product: p, Quantity: item.Quantity})
	}
	return c, nil
}

// Add puts quantity units of a product into the user's cart, accumulating
// onto any existing line for the same product.
func (s *Service) Add(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Stock < quantity {
		return nil, ErrInsufficientStock
	}

	if err := s.carts.AddItem(ctx, userID, Item{ProductID: productID, Quantity: quantity}); err != nil {
		return nil, errors.Wrap(err, "add cart item")
	}
	return s.Get(ctx, userID)
}

// UpdateQuantity replaces the quantity of an existing cart line.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Stock < quantity {
		return nil, ErrInsufficientStock
	}

	updated, err := s.carts.SetQuantity(ctx, userID, productID, quantity)
	if err != nil {
		return nil, errors.Wrap(err, "set cart quantity")
	}
	if !updated {
		return nil, ErrItemNotFound
	}
	return s.Get(ctx, userID)
}

// Remove deletes a cart line.
func (s *Service) Remove(ctx context.Context, userID, productID string) (*Cart, error) {
	removed, err := s.carts.RemoveItem(ctx, userID, productID)
	if err != nil {
		return nil, errors.Wrap(err, "remove cart item")
	}
	if !removed {
		return nil, ErrItemNotFound
	}
	return s.Get(ctx, userID)
}
