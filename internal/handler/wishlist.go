package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/wishlist"
)

type wishlistDTO struct {
	User     string       `json:"user"`
	Products []productDTO `json:"products"`
}

func toWishlistDTO(wl *wishlist.Wishlist) wishlistDTO {
	products := make([]productDTO, len(wl.Products))
	for i, p := range wl.Products {
		products[i] = toProductDTO(p)
	}
	return wishlistDTO{User: wl.UserID, Products: products}
}

// GetWishlist returns the actor's wishlist, which may be empty.
func (h *Handler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	wl, err := h.wishlists.Get(r.Context(), actor.ID)
	if err != nil {
		respondInternal(w, err)
		return
	}

	respondData(w, http.StatusOK, toWishlistDTO(wl))
}

type addToWishlistRequest struct {
	ProductID string `json:"productId"`
}

// AddToWishlist puts a product onto the actor's wishlist.
func (h *Handler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	var req addToWishlistRequest
	if !decodeBody(w, r, &req) {
		return
	}

	wl, err := h.wishlists.Add(r.Context(), actor.ID, req.ProductID)
	if err != nil {
		respondWishlistError(w, err)
		return
	}

	respondData(w, http.StatusOK, toWishlistDTO(wl))
}

// RemoveFromWishlist deletes one product from the actor's wishlist.
func (h *Handler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	wl, err := h.wishlists.Remove(r.Context(), actor.ID, r.PathValue("productId"))
	if err != nil {
		respondWishlistError(w, err)
		return
	}

	respondData(w, http.StatusOK, toWishlistDTO(wl))
}

func respondWishlistError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, wishlist.ErrAlreadyExists):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, product.ErrNotFound), errors.Is(err, wishlist.ErrItemNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondInternal(w, err)
	}
}
