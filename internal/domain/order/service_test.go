package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/notification"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/user"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID   map[string]*product.Product
	getErr error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockOrderRepo struct {
	lastCreated *Order
	createErr   error

	byID map[string]*Order

	updatedStatus      Status
	updatedDeliveredAt *time.Time
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.lastCreated = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string, _ *Status) ([]Order, error) {
	var out []Order
	for _, o := range m.byID {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListAll(_ context.Context, _ ListAllParams) ([]Order, int, error) {
	var out []Order
	for _, o := range m.byID {
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, status Status, deliveredAt *time.Time) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	m.updatedStatus = status
	m.updatedDeliveredAt = deliveredAt
	o.Status = status
	if deliveredAt != nil && o.DeliveredAt == nil {
		o.DeliveredAt = deliveredAt
	}
	return o, nil
}

type mockCartRepo struct {
	cleared  []string
	clearErr error
}

func (m *mockCartRepo) Items(_ context.Context, _ string) ([]cart.Item, error) { return nil, nil }

func (m *mockCartRepo) AddItem(_ context.Context, _ string, _ cart.Item) error { return nil }

func (m *mockCartRepo) SetQuantity(_ context.Context, _, _ string, _ int) (bool, error) {
	return false, nil
}

func (m *mockCartRepo) RemoveItem(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

func (m *mockCartRepo) Clear(_ context.Context, userID string) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.cleared = append(m.cleared, userID)
	return nil
}

type mockUserRepo struct {
	admins []user.User
}

func (m *mockUserRepo) FindByKeyHash(_ context.Context, _ string) (*user.User, string, error) {
	return nil, "", user.ErrNotFound
}

func (m *mockUserRepo) FindByRole(_ context.Context, role user.Role) ([]user.User, error) {
	if role == user.RoleAdmin {
		return m.admins, nil
	}
	return nil, nil
}

type mockNotificationRepo struct {
	inserted  []notification.Notification
	insertErr error
}

func (m *mockNotificationRepo) InsertMany(_ context.Context, ns []notification.Notification) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, ns...)
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, _ string, _ int) ([]notification.Notification, int, error) {
	return nil, 0, nil
}

func (m *mockNotificationRepo) GetByID(_ context.Context, _ string) (*notification.Notification, error) {
	return nil, notification.ErrNotFound
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, _ string) (*notification.Notification, error) {
	return nil, notification.ErrNotFound
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, _ string) error { return nil }

// --- Helpers ---

type testDeps struct {
	products      *mockProductRepo
	orders        *mockOrderRepo
	carts         *mockCartRepo
	users         *mockUserRepo
	notifications *mockNotificationRepo
}

func newTestService(products ...product.Product) (*Service, *testDeps) {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	deps := &testDeps{
		products:      &mockProductRepo{byID: byID},
		orders:        &mockOrderRepo{byID: make(map[string]*Order)},
		carts:         &mockCartRepo{},
		users:         &mockUserRepo{},
		notifications: &mockNotificationRepo{},
	}
	svc := NewService(deps.products, deps.orders, deps.carts, deps.users, deps.notifications)
	return svc, deps
}

func newTestProduct(id, name string, price string, stock int) product.Product {
	return product.Product{
		ID:       id,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: "test",
		Image:    "image.jpg",
		Stock:    stock,
	}
}

func validAddress() Address {
	return Address{
		Street:  "1 Main St",
		City:    "Springfield",
		State:   "IL",
		ZipCode: "62701",
		Country: "USA",
	}
}

var customer = user.User{ID: "u1", Name: "Alice", Role: user.RoleCustomer}

// --- PlaceOrder ---

func TestPlaceOrder_EmptyItems(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.PlaceOrder(context.Background(), customer, PlaceOrderRequest{
		ShippingAddress: validAddress(),
	})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestPlaceOrder_MissingAddressField(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "10.00", 5)
	svc, _ := newTestService(p1)

	addr := validAddress()
	addr.City = ""

	_, err := svc.PlaceOrder(context.Background(), customer, PlaceOrderRequest{
		Items:           []RequestedItem{{ProductID: "p1", Quantity: 1}},
		ShippingAddress: addr,
	})
	require.ErrorIs(t, err, ErrInvalidAddress)
}

func TestPlaceOrder_InvalidQuantity(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "10.00", 5)
	svc, _ := newTestService(p1)

	_, err := svc.PlaceOrder(context.Background(), customer, PlaceOrderRequest{
		Items:           []RequestedItem{{ProductID: "p1", Quantity: 0}},
		ShippingAddress: validAddress(),
	})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "p1", iqErr.ProductID)
}

func TestPlaceOrder_ProductNotFound(t *testing.T) {
	svc, deps := newTestService()

	_, err := svc.PlaceOrder(context.Background(), customer, PlaceOrderRequest{
		Items:           []RequestedItem{{ProductID: "missing", Quantity: 1}},
		ShippingAddress: validAddress(),
	})

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, "missing", pnfErr.ProductID)
	assert.Nil(t, deps.orders.lastCreated, "nothing should be persisted")
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "10.00", 2)
	svc, deps := newTestService(p1)

	_, err := svc.PlaceOrder(context.Background(), customer, PlaceOrderRequest{
		Items:           []RequestedItem{{ProductID: "p1", Quantity: 3}},
		ShippingAddress: validAddress(),
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p1", stockErr.ProductID)
	assert.Equal(t, "Widget", stockErr.Name)

	assert.Nil(t, deps.orders.lastCreated)
	assert.Empty(t, deps.carts.cleared, "cart must survive a failed placement")
	assert.Empty(t, deps.notifications.inserted)
}

func TestPlaceOrder_Success(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "10.00", 5)
	p2 := newTestProduct("p2", "Gadget", "19.99", 10)
	svc, deps := newTestService(p1, p2)
	deps.users.admins = []user.User{
		{ID: "a1", Name: "Admin One", Role: user.RoleAdmin},
		{ID: "a2", Name: "Admin Two", Role: user.RoleAdmin},
	}

	o, err := svc.PlaceOrder(context.Background(), customer, PlaceOrderRequest{
		Items: []RequestedItem{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
		ShippingAddress: validAddress(),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, customer.ID, o.UserID)
	assert.Equal(t, StatusOrdered, o.Status)
	assert.Equal(t, PaymentCOD, o.PaymentMethod)
	assert.True(t, o.TotalPrice.Equal(decimal.RequireFromString("39.99")),
		"expected 39.99, got %s", o.TotalPrice)

	require.Len(t, o.Items, 2)
	assert.Equal(t, "Widget", o.Items[0].Name)
	assert.True(t, o.Items[0].UnitPrice.Equal(decimal.RequireFromString("10.00")))

	require.NotNil(t, deps.orders.lastCreated)
	assert.Equal(t, o.ID, deps.orders.lastCreated.ID)

	assert.Equal(t, []string{customer.ID}, deps.carts.cleared)

	// One notification to the buyer plus one per admin.
	require.Len(t, deps.notifications.inserted, 3)
	assert.Equal(t, customer.ID, deps.notifications.inserted[0].UserID)
	assert.Contains(t, deps.notifications.inserted[0].Message, "has been placed successfully")
	assert.Equal(t, "a1", deps.notifications.inserted[1].UserID)
	assert.Contains(t, deps.notifications.inserted[1].Message, "from Alice")
	for _, n := range deps.notifications.inserted {
		assert.Equal(t, notification.TypeOrder, n.Type)
		assert.Equal(t, o.ID, n.RelatedID)
	}
}

func TestPlaceOrder_ClientTotalMatch(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "10.00", 5)
	svc, _ := newTestService(p1)

	clientTotal := decimal.RequireFromString("20.00")
	o, err := svc.PlaceOrder(context.Background(), customer, PlaceOrderRequest{
		Items:           []RequestedItem{{ProductID: "p1", Quantity: 2}},
		ShippingAddress: validAddress(),
		ClientTotal:     &clientTotal,
	})
	require.NoError(t, err)
	assert.True(t, o.TotalPrice.Equal(clientTotal))
}

func TestPlaceOrder_ClientTotalMismatch(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "10.00", 5)
	svc, deps := newTestService(p1)

	staleTotal := decimal.RequireFromString("15.00")
	_, err := svc.PlaceOrder(context.Background(), customer, PlaceOrderRequest{
		Items:           []RequestedItem{{ProductID: "p1", Quantity: 2}},
		ShippingAddress: validAddress(),
		ClientTotal:     &staleTotal,
	})
	require.ErrorIs(t, err, ErrTotalMismatch)
	assert.Nil(t, deps.orders.lastCreated)
}

func TestPlaceOrder_CartClearFailureDoesNotFailOrder(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "10.00", 5)
	svc, deps := newTestService(p1)
	deps.carts.clearErr = errors.New("db down")

	o, err := svc.PlaceOrder(context.Background(), customer, PlaceOrderRequest{
		Items:           []RequestedItem{{ProductID: "p1", Quantity: 1}},
		ShippingAddress: validAddress(),
	})
	require.NoError(t, err)
	assert.NotNil(t, o)
}

func TestPlaceOrder_NotificationFailureDoesNotFailOrder(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "10.00", 5)
	svc, deps := newTestService(p1)
	deps.notifications.insertErr = errors.New("db down")

	o, err := svc.PlaceOrder(context.Background(), customer, PlaceOrderRequest{
		Items:           []RequestedItem{{ProductID: "p1", Quantity: 1}},
		ShippingAddress: validAddress(),
	})
	require.NoError(t, err)
	assert.NotNil(t, o)
}

func TestPlaceOrder_CreateError(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "10.00", 5)
	svc, deps := newTestService(p1)
	deps.orders.createErr = &InsufficientStockError{ProductID: "p1", Name: "Widget"}

	_, err := svc.PlaceOrder(context.Background(), customer, PlaceOrderRequest{
		Items:           []RequestedItem{{ProductID: "p1", Quantity: 1}},
		ShippingAddress: validAddress(),
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Empty(t, deps.carts.cleared, "cart must survive a failed placement")
}

// --- UpdateStatus ---

func TestUpdateStatus_NotifiesOwner(t *testing.T) {
	svc, deps := newTestService()
	deps.orders.byID["o1"] = &Order{ID: "o1", UserID: "u1", Status: StatusOrdered}

	o, err := svc.UpdateStatus(context.Background(), "o1", StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, o.Status)
	assert.Nil(t, o.DeliveredAt)

	require.Len(t, deps.notifications.inserted, 1)
	n := deps.notifications.inserted[0]
	assert.Equal(t, "u1", n.UserID)
	assert.Contains(t, n.Message, "status updated to: Shipped")
	assert.Equal(t, "o1", n.RelatedID)
}

func TestUpdateStatus_DeliveredStampsTime(t *testing.T) {
	svc, deps := newTestService()
	deps.orders.byID["o1"] = &Order{ID: "o1", UserID: "u1", Status: StatusOutForDelivery}

	before := time.Now().UTC()
	o, err := svc.UpdateStatus(context.Background(), "o1", StatusDelivered)
	require.NoError(t, err)

	require.NotNil(t, o.DeliveredAt)
	assert.False(t, o.DeliveredAt.Before(before))
	require.NotNil(t, deps.orders.updatedDeliveredAt)
}

func TestUpdateStatus_NonDeliveredOmitsTime(t *testing.T) {
	svc, deps := newTestService()
	deps.orders.byID["o1"] = &Order{ID: "o1", UserID: "u1", Status: StatusOrdered}

	_, err := svc.UpdateStatus(context.Background(), "o1", StatusOutForDelivery)
	require.NoError(t, err)
	assert.Nil(t, deps.orders.updatedDeliveredAt)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.UpdateStatus(context.Background(), "missing", StatusShipped)
	require.ErrorIs(t, err, ErrNotFound)
}

// --- Get ---

func TestGet_OwnerAllowed(t *testing.T) {
	svc, deps := newTestService()
	deps.orders.byID["o1"] = &Order{ID: "o1", UserID: "u1"}

	o, err := svc.Get(context.Background(), customer, "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)
}

func TestGet_AdminAllowed(t *testing.T) {
	svc, deps := newTestService()
	deps.orders.byID["o1"] = &Order{ID: "o1", UserID: "u1"}

	admin := user.User{ID: "a1", Role: user.RoleAdmin}
	o, err := svc.Get(context.Background(), admin, "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)
}

func TestGet_StrangerForbidden(t *testing.T) {
	svc, deps := newTestService()
	deps.orders.byID["o1"] = &Order{ID: "o1", UserID: "u1"}

	stranger := user.User{ID: "u2", Role: user.RoleCustomer}
	_, err := svc.Get(context.Background(), stranger, "o1")
	require.ErrorIs(t, err, ErrForbidden)
}

// --- ListAll ---

func TestListAll_DerivesPages(t *testing.T) {
	svc, deps := newTestService()
	for _, id := range []string{"o1", "o2", "o3"} {
		deps.orders.byID[id] = &Order{ID: id, UserID: "u1"}
	}

	_, total, pages, err := svc.ListAll(context.Background(), ListAllParams{Page: 0, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, pages)
}

// --- Status parsing ---

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses {
		parsed, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseStatus("Cancelled")
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", ShortID("abc"))
	assert.Equal(t, "345678", ShortID("12345678"))
}
