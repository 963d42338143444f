package handler

import (
	"encoding/json"
	"net/http"

	"github.com/xenking/storefront-api/internal/domain/analytics"
	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/notification"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/wishlist"
)

// Handler serves the storefront REST API. Every response uses the shared
// {success, data?, message?} envelope.
type Handler struct {
	products      product.Repository
	carts         *cart.Service
	wishlists     *wishlist.Service
	orders        *order.Service
	notifications notification.Repository
	analytics     *analytics.Service
}

// New constructs a Handler with the required domain dependencies.
func New(
	products product.Repository,
	carts *cart.Service,
	wishlists *wishlist.Service,
	orders *order.Service,
	notifications notification.Repository,
	analyticsSvc *analytics.Service,
) *Handler {
	return &Handler{
		products:      products,
		carts:         carts,
		wishlists:     wishlists,
		orders:        orders,
		notifications: notifications,
		analytics:     analyticsSvc,
	}
}

// Routes builds the API mux. Catalog reads are public; everything else goes
// through the security layer, with admin routes additionally role-checked.
func (h *Handler) Routes(sec *Security) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)

	mux.Handle("GET /api/cart", sec.Require(h.GetCart))
	mux.Handle("POST /api/cart", sec.Require(h.AddToCart))
	mux.Handle("PUT /api/cart/{productId}", sec.Require(h.UpdateCartItem))
	mux.Handle("DELETE /api/cart/{productId}", sec.Require(h.RemoveCartItem))

	mux.Handle("GET /api/wishlist", sec.Require(h.GetWishlist))
	mux.Handle("POST /api/wishlist", sec.Require(h.AddToWishlist))
	mux.Handle("DELETE /api/wishlist/{productId}", sec.Require(h.RemoveFromWishlist))

	mux.Handle("POST /api/orders", sec.Require(h.CreateOrder))
	mux.Handle("GET /api/orders", sec.Require(h.ListOwnOrders))
	mux.Handle("GET /api/orders/admin/all", sec.RequireAdmin(h.ListAllOrders))
	mux.Handle("GET /api/orders/{id}", sec.Require(h.GetOrder))
	mux.Handle("PUT /api/orders/{id}/status", sec.RequireAdmin(h.UpdateOrderStatus))

	mux.Handle("GET /api/notifications", sec.Require(h.ListNotifications))
	mux.Handle("PUT /api/notifications/read-all", sec.Require(h.MarkAllNotificationsRead))
	mux.Handle("PUT /api/notifications/{id}/read", sec.Require(h.MarkNotificationRead))

	mux.Handle("GET /api/analytics/sales", sec.RequireAdmin(h.SalesAnalytics))
	mux.Handle("GET /api/analytics/dashboard", sec.RequireAdmin(h.DashboardStats))

	return mux
}

// envelope is the shared response shape. List endpoints extend it with
// their metadata fields.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already out; nothing to do about encode failures.
	_ = json.NewEncoder(w).Encode(body)
}

func respondData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message})
}

func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

func respondInternal(w http.ResponseWriter, err error) {
	respondError(w, http.StatusInternalServerError, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
