package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/pizza-cart/internal/api"
	"github.com/xenking/pizza-cart/internal/domain/cart"
	"github.com/xenking/pizza-cart/internal/domain/product"
)

// ListCart returns the items of the session given by ?sessionId=.
func (h *Handler) ListCart(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeError(w, r, cart.ErrMissingSession)
		return
	}
	items, err := h.items.ListBySession(r.Context(), sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, func(e *jx.Encoder) {
		api.EncodeCartItems(e, items)
	})
}

// AddCartItem creates a cart item and responds 201 with the stored copy.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var it cart.Item
	if err := h.decodeBody(w, r, func(d *jx.Decoder) (err error) {
		it, err = api.DecodeCartItem(d)
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}
	it.ID = ""

	if err := it.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.checkOptions(r, it.ProductID, it.VariantID, it.Addons); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			// The body references it, so this is a semantic error.
			writeMessage(w, r, http.StatusUnprocessableEntity, "Product "+it.ProductID+" not found")
			return
		}
		writeError(w, r, err)
		return
	}
	if err := h.items.Create(r.Context(), &it); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, func(e *jx.Encoder) {
		api.EncodeCartItem(e, it)
	})
}

// UpdateCartItem applies a partial update to a cart item.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch api.CartItemPatch
	if err := h.decodeBody(w, r, func(d *jx.Decoder) (err error) {
		patch, err = api.DecodeCartItemPatch(d)
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}

	found, err := h.items.GetByIDs(r.Context(), []string{id})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(found) == 0 {
		writeError(w, r, cart.ErrItemNotFound)
		return
	}
	it := found[0]
	patch.Apply(&it)

	if err := it.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.checkOptions(r, it.ProductID, it.VariantID, it.Addons); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.items.Update(r.Context(), &it); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, func(e *jx.Encoder) {
		api.EncodeCartItem(e, it)
	})
}

// RemoveCartItem deletes a cart item.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.items.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(id)
		e.ObjEnd()
	})
}
