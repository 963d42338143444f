package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/order"
)

type orderItemDTO struct {
	Product   string  `json:"product"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"price"`
	Image     string  `json:"image,omitempty"`
}

type addressDTO struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

type orderDTO struct {
	ID              string         `json:"id"`
	User            string         `json:"user"`
	Items           []orderItemDTO `json:"items"`
	ShippingAddress addressDTO     `json:"shippingAddress"`
	PaymentMethod   string         `json:"paymentMethod"`
	TotalPrice      float64        `json:"totalPrice"`
	OrderStatus     string         `json:"orderStatus"`
	DeliveredAt     *time.Time     `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}

func toOrderDTO(o *order.Order) orderDTO {
	items := make([]orderItemDTO, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemDTO{
			Product:   item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.InexactFloat64(),
			Image:     item.Image,
		}
	}
	return orderDTO{
		ID:    o.ID,
		User:  o.UserID,
		Items: items,
		ShippingAddress: addressDTO{
			Street:  o.ShippingAddress.Street,
			City:    o.ShippingAddress.City,
			State:   o.ShippingAddress.State,
			ZipCode: o.ShippingAddress.ZipCode,
			Country: o.ShippingAddress.Country,
		},
		PaymentMethod: o.PaymentMethod,
		TotalPrice:    o.TotalPrice.InexactFloat64(),
		OrderStatus:   string(o.Status),
		DeliveredAt:   o.DeliveredAt,
		CreatedAt:     o.CreatedAt,
	}
}

func toOrderDTOs(orders []order.Order) []orderDTO {
	out := make([]orderDTO, len(orders))
	for i := range orders {
		out[i] = toOrderDTO(&orders[i])
	}
	return out
}

type createOrderRequest struct {
	Items []struct {
		Product  string `json:"product"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
	ShippingAddress addressDTO `json:"shippingAddress"`
	TotalPrice      *float64   `json:"totalPrice"`
}

// CreateOrder places an order from the submitted cart snapshot.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	items := make([]order.RequestedItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.RequestedItem{ProductID: item.Product, Quantity: item.Quantity}
	}

	placeReq := order.PlaceOrderRequest{
		Items: items,
		ShippingAddress: order.Address{
			Street:  req.ShippingAddress.Street,
			City:    req.ShippingAddress.City,
			State:   req.ShippingAddress.State,
			ZipCode: req.ShippingAddress.ZipCode,
			Country: req.ShippingAddress.Country,
		},
	}
	if req.TotalPrice != nil {
		total := decimal.NewFromFloat(*req.TotalPrice)
		placeReq.ClientTotal = &total
	}

	o, err := h.orders.PlaceOrder(r.Context(), actor, placeReq)
	if err != nil {
		respondOrderError(w, err)
		return
	}

	respondData(w, http.StatusCreated, toOrderDTO(o))
}

type orderListResponse struct {
	Success bool       `json:"success"`
	Count   int        `json:"count"`
	Data    []orderDTO `json:"data"`
}

// ListOwnOrders returns the actor's orders, optionally filtered by status.
func (h *Handler) ListOwnOrders(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	status, ok := statusFilter(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), actor.ID, status)
	if err != nil {
		respondInternal(w, err)
		return
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Success: true,
		Count:   len(orders),
		Data:    toOrderDTOs(orders),
	})
}

// GetOrder returns a single order to its owner or an admin.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	o, err := h.orders.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		respondOrderError(w, err)
		return
	}

	respondData(w, http.StatusOK, toOrderDTO(o))
}

type orderPageResponse struct {
	Success bool       `json:"success"`
	Count   int        `json:"count"`
	Total   int        `json:"total"`
	Page    int        `json:"page"`
	Pages   int        `json:"pages"`
	Data    []orderDTO `json:"data"`
}

// ListAllOrders returns one page of every order for the admin dashboard.
func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	status, ok := statusFilter(w, r)
	if !ok {
		return
	}

	params := order.ListAllParams{
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", 20),
		Status: status,
	}

	orders, total, pages, err := h.orders.ListAll(r.Context(), params)
	if err != nil {
		respondInternal(w, err)
		return
	}

	writeJSON(w, http.StatusOK, orderPageResponse{
		Success: true,
		Count:   len(orders),
		Total:   total,
		Page:    params.Page,
		Pages:   pages,
		Data:    toOrderDTOs(orders),
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus moves an order to the requested fulfillment state.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	status, err := order.ParseStatus(req.Status)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), status)
	if err != nil {
		respondOrderError(w, err)
		return
	}

	respondData(w, http.StatusOK, toOrderDTO(o))
}

// respondOrderError maps order workflow errors onto the envelope.
func respondOrderError(w http.ResponseWriter, err error) {
	var (
		iqErr  *order.InvalidQuantityError
		pnfErr *order.ProductNotFoundError
		isErr  *order.InsufficientStockError
	)
	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrTotalMismatch),
		errors.Is(err, order.ErrInvalidAddress),
		errors.As(err, &iqErr),
		errors.As(err, &isErr):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &pnfErr), errors.Is(err, order.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	default:
		respondInternal(w, err)
	}
}

// statusFilter parses the optional ?status= query value, rejecting
// unrecognized statuses.
func statusFilter(w http.ResponseWriter, r *http.Request) (*order.Status, bool) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil, true
	}
	status, err := order.ParseStatus(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &status, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
