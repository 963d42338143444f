package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/notification"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/user"
)

// Sentinel errors for order operations.
var (
	ErrEmptyItems    = errors.New("items required")
	ErrNotFound      = errors.New("order not found")
	ErrForbidden     = errors.New("not authorized to view this order")
	ErrTotalMismatch = errors.New("total price does not match catalog prices")
)

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InsufficientStockError indicates a product cannot cover the requested
// quantity. It is returned both by pre-validation and by the conditional
// stock decrement inside the placement transaction.
type InsufficientStockError struct {
	ProductID string
	Name      string
}

func (e *InsufficientStockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("insufficient stock for %s", name)
}

// RequestedItem is one line of a place-order request.
type RequestedItem struct {
	ProductID string
	Quantity  int
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Items           []RequestedItem
	ShippingAddress Address

	// ClientTotal is the total the client computed for display. When set,
	// it must equal the server-computed total; the stored total is always
	// the server's.
	ClientTotal *decimal.Decimal
}

// Service encapsulates the order placement and fulfillment workflow.
type Service struct {
	products      product.Repository
	orders        Repository
	carts         cart.Repository
	users         user.Repository
	notifications notification.Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	orders Repository,
	carts cart.Repository,
	users user.Repository,
	notifications notification.Repository,
) *Service {
	return &Service{
		products:      products,
		orders:        orders,
		carts:         carts,
		users:         users,
		notifications: notifications,
	}
}

// PlaceOrder validates the requested items against a single batched catalog
// read, recomputes the total from catalog prices, and persists the order
// together with the stock decrements in one transaction. After the order is
// durable it clears the actor's cart and fans out notifications to the actor
// and every admin; those follow-on steps are best-effort and never fail an
// already-placed order.
func (s *Service) PlaceOrder(ctx context.Context, actor user.User, req PlaceOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if err := req.ShippingAddress.Validate(); err != nil {
		return nil, err
	}

	// Validate quantities and collect product IDs.
	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	// Batch fetch all products in a single query.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	// Verify existence and stock before touching anything. The decrement
	// inside Create re-checks stock atomically; this pass exists so that a
	// doomed request mutates nothing at all.
	items := make([]Item, len(req.Items))
	total := decimal.Zero
	for i, item := range req.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		if p.Stock < item.Quantity {
			return nil, &InsufficientStockError{ProductID: p.ID, Name: p.Name}
		}

		items[i] = Item{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
			Image:     p.Image,
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	total = total.Round(2)

	// The client's display total is advisory; a disagreement means the
	// client saw stale prices and must re-confirm.
	if req.ClientTotal != nil && !req.ClientTotal.Equal(total) {
		return nil, ErrTotalMismatch
	}

	o := &Order{
		ID:              uuid.New().String(),
		UserID:          actor.ID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   PaymentCOD,
		TotalPrice:      total,
		Status:          StatusOrdered,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	// The order is durable from here on. Cart cleanup and notification
	// fan-out may lag or fail independently.
	lg := zctx.From(ctx)
	if err := s.carts.Clear(ctx, actor.ID); err != nil {
		lg.Warn("Clear cart after order", zap.String("order_id", o.ID), zap.Error(err))
	}
	s.notifyPlaced(ctx, actor, o)

	return o, nil
}

// notifyPlaced writes one notification to the placing user and one to every
// admin, all in a single bulk insert. Failures are logged, not returned.
func (s *Service) notifyPlaced(ctx context.Context, actor user.User, o *Order) {
	lg := zctx.From(ctx)

	admins, err := s.users.FindByRole(ctx, user.RoleAdmin)
	if err != nil {
		lg.Warn("Find admins for order notification", zap.String("order_id", o.ID), zap.Error(err))
		admins = nil
	}

	notifications := make([]notification.Notification, 0, 1+len(admins))
	notifications = append(notifications, notification.Notification{
		ID:        uuid.New().String(),
		UserID:    actor.ID,
		Message:   fmt.Sprintf("Your order #%s has been placed successfully", o.ShortID()),
		Type:      notification.TypeOrder,
		RelatedID: o.ID,
	})
	for _, admin := range admins {
		notifications = append(notifications, notification.Notification{
			ID:        uuid.New().String(),
			UserID:    admin.ID,
			Message:   fmt.Sprintf("New order #%s received from %s", o.ShortID(), actor.Name),
			Type:      notification.TypeOrder,
			RelatedID: o.ID,
		})
	}

	if err := s.notifications.InsertMany(ctx, notifications); err != nil {
		lg.Warn("Insert order notifications", zap.String("order_id", o.ID), zap.Error(err))
	}
}

// UpdateStatus moves an existing order to the target status. Reaching
// Delivered stamps the delivery time once; moving away later never clears
// it. The order's owner is always notified of the new status.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (*Order, error) {
	var deliveredAt *time.Time
	if status == StatusDelivered {
		now := time.Now().UTC()
		deliveredAt = &now
	}

	o, err := s.orders.UpdateStatus(ctx, id, status, deliveredAt)
	if err != nil {
		return nil, err
	}

	n := notification.Notification{
		ID:        uuid.New().String(),
		UserID:    o.UserID,
		Message:   fmt.Sprintf("Your order #%s status updated to: %s", o.ShortID(), status),
		Type:      notification.TypeOrder,
		RelatedID: o.ID,
	}
	if err := s.notifications.InsertMany(ctx, []notification.Notification{n}); err != nil {
		zctx.From(ctx).Warn("Insert status notification", zap.String("order_id", o.ID), zap.Error(err))
	}

	return o, nil
}

// Get returns a single order, enforcing that the requester owns it or is
// an admin.
func (s *Service) Get(ctx context.Context, actor user.User, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return o, nil
}

// ListByUser returns the actor's own orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string, status *Status) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID, status)
}

// ListAll returns one page of all orders for the admin dashboard, plus the
// total matching count and the derived page count.
func (s *Service) ListAll(ctx context.Context, params ListAllParams) ([]Order, int, int, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = 20
	}

	orders, total, err := s.orders.ListAll(ctx, params)
	if err != nil {
		return nil, 0, 0, err
	}

	pages := (total + params.Limit - 1) / params.Limit
	return orders, total, pages, nil
}
