package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the fulfillment state of an order. The set is closed: handlers
// must go through ParseStatus so an unrecognized value never reaches storage.
type Status string

const (
	StatusOrdered        Status = "Ordered"
	StatusShipped        Status = "Shipped"
	StatusOutForDelivery Status = "Out for Delivery"
	StatusDelivered      Status = "Delivered"
)

// Statuses lists every recognized status in fulfillment order.
var Statuses = []Status{StatusOrdered, StatusShipped, StatusOutForDelivery, StatusDelivered}

// ErrUnknownStatus is returned by ParseStatus for values outside the
// recognized set.
var ErrUnknownStatus = errors.New("unknown order status")

// ErrInvalidAddress is wrapped by Address.Validate for any missing field.
var ErrInvalidAddress = errors.New("invalid shipping address")

// ParseStatus validates a raw status string against the recognized set.
func ParseStatus(s string) (Status, error) {
	for _, known := range Statuses {
		if Status(s) == known {
			return known, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownStatus, "%q", s)
}

// PaymentCOD is the only supported payment method: cash on delivery.
const PaymentCOD = "COD"

// Item is a single order line, snapshotted from the catalog at placement
// time. Later catalog changes never alter historical orders.
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Image     string          `json:"image,omitempty"`
}

// Address is the shipping destination, copied by value onto the order.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

// Validate reports the first missing required field, if any.
func (a Address) Validate() error {
	switch {
	case a.Street == "":
		return errors.Wrap(ErrInvalidAddress, "street is required")
	case a.City == "":
		return errors.Wrap(ErrInvalidAddress, "city is required")
	case a.State == "":
		return errors.Wrap(ErrInvalidAddress, "state is required")
	case a.ZipCode == "":
		return errors.Wrap(ErrInvalidAddress, "zipCode is required")
	case a.Country == "":
		return errors.Wrap(ErrInvalidAddress, "country is required")
	}
	return nil
}

// Order represents one placed purchase.
type Order struct {
	ID              string
	UserID          string
	Items           []Item
	ShippingAddress Address
	PaymentMethod   string
	TotalPrice      decimal.Decimal
	Status          Status
	DeliveredAt     *time.Time
	CreatedAt       time.Time
}

// ShortID returns the trailing id fragment used in human-readable
// notification messages.
func (o *Order) ShortID() string {
	return ShortID(o.ID)
}

// ShortID returns the last six characters of an order id.
func ShortID(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}

// ListAllParams selects a page of the admin order listing.
type ListAllParams struct {
	Page   int
	Limit  int
	Status *Status
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists the order and decrements stock for every line item in
	// a single transaction. A line whose product no longer has sufficient
	// stock aborts the whole transaction with InsufficientStockError.
	Create(ctx context.Context, o *Order) error

	GetByID(ctx context.Context, id string) (*Order, error)

	// ListByUser returns a user's orders newest-first, optionally filtered
	// by status.
	ListByUser(ctx context.Context, userID string, status *Status) ([]Order, error)

	// ListAll returns one page of all orders newest-first plus the total
	// matching count.
	ListAll(ctx context.Context, params ListAllParams) ([]Order, int, error)

	// UpdateStatus sets the order's status and, when deliveredAt is
	// non-nil, stamps the delivery time. It returns the updated order.
	UpdateStatus(ctx context.Context, id string, status Status, deliveredAt *time.Time) (*Order, error)
}
