package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/pizza-cart/internal/api"
)

// ListProducts returns the catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, p := range products {
			api.EncodeProduct(e, p, h.imageBaseURL)
		}
		e.ArrEnd()
	})
}

// GetProduct returns one product with its options.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, func(e *jx.Encoder) {
		api.EncodeProduct(e, *p, h.imageBaseURL)
	})
}

// checkOptions verifies the item's product exists and offers the selected
// variant and addons.
func (h *Handler) checkOptions(r *http.Request, productID, variantID string, addons map[string]int) error {
	p, err := h.products.GetByID(r.Context(), productID)
	if err != nil {
		return err
	}
	_, err = p.UnitPrice(variantID, addons)
	return err
}

