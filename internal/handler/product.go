package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-api/internal/domain/product"
)

type productDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Stock       int     `json:"stock"`
}

func toProductDTO(p product.Product) productDTO {
	return productDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Category:    p.Category,
		Image:       p.Image,
		Stock:       p.Stock,
	}
}

type productListResponse struct {
	Success bool         `json:"success"`
	Count   int          `json:"count"`
	Data    []productDTO `json:"data"`
}

// ListProducts returns every product in the catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondInternal(w, err)
		return
	}

	out := make([]productDTO, len(products))
	for i, p := range products {
		out[i] = toProductDTO(p)
	}

	writeJSON(w, http.StatusOK, productListResponse{
		Success: true,
		Count:   len(out),
		Data:    out,
	})
}

// GetProduct returns a single product by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		respondInternal(w, err)
		return
	}

	respondData(w, http.StatusOK, toProductDTO(*p))
}
