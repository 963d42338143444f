package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/product"
)

type cartLineDTO struct {
	Product  productDTO `json:"product"`
	Quantity int        `json:"quantity"`
}

type cartDTO struct {
	User  string        `json:"user"`
	Items []cartLineDTO `json:"items"`
}

func toCartDTO(c *cart.Cart) cartDTO {
	items := make([]cartLineDTO, len(c.Lines))
	for i, line := range c.Lines {
		items[i] = cartLineDTO{
			Product:  toProductDTO(line.Product),
			Quantity: line.Quantity,
		}
	}
	return cartDTO{User: c.UserID, Items: items}
}

// GetCart returns the actor's cart, which may be empty.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	c, err := h.carts.Get(r.Context(), actor.ID)
	if err != nil {
		respondInternal(w, err)
		return
	}

	respondData(w, http.StatusOK, toCartDTO(c))
}

type addToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// AddToCart puts a product into the actor's cart, accumulating quantity on
// repeat adds.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	var req addToCartRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := h.carts.Add(r.Context(), actor.ID, req.ProductID, req.Quantity)
	if err != nil {
		respondCartError(w, err)
		return
	}

	respondData(w, http.StatusOK, toCartDTO(c))
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateCartItem replaces the quantity of one cart line.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	var req updateCartItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := h.carts.UpdateQuantity(r.Context(), actor.ID, r.PathValue("productId"), req.Quantity)
	if err != nil {
		respondCartError(w, err)
		return
	}

	respondData(w, http.StatusOK, toCartDTO(c))
}

// RemoveCartItem deletes one cart line.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	c, err := h.carts.Remove(r.Context(), actor.ID, r.PathValue("productId"))
	if err != nil {
		respondCartError(w, err)
		return
	}

	respondData(w, http.StatusOK, toCartDTO(c))
}

func respondCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrInsufficientStock):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, product.ErrNotFound), errors.Is(err, cart.ErrItemNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondInternal(w, err)
	}
}
