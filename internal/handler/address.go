package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/pizza-cart/internal/api"
	"github.com/xenking/pizza-cart/internal/domain/address"
	"github.com/xenking/pizza-cart/internal/domain/cart"
)

func (h *Handler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeError(w, r, cart.ErrMissingSession)
		return
	}
	list, err := h.addresses.ListBySession(r.Context(), sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, func(e *jx.Encoder) {
		api.EncodeAddresses(e, list)
	})
}

func (h *Handler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	a, ok := h.readAddress(w, r)
	if !ok {
		return
	}
	a.ID = ""
	if err := a.Validate(); err != nil {
		writeError(w, r, invalid("invalid address", err))
		return
	}
	if err := h.addresses.Create(r.Context(), &a); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, func(e *jx.Encoder) {
		api.EncodeAddress(e, a)
	})
}

// UpdateAddress replaces the editable fields of an address. The owning
// session cannot change.
func (h *Handler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	a, ok := h.readAddress(w, r)
	if !ok {
		return
	}
	current, err := h.addresses.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.ID = current.ID
	a.SessionID = current.SessionID
	if err := a.Validate(); err != nil {
		writeError(w, r, invalid("invalid address", err))
		return
	}
	if err := h.addresses.Update(r.Context(), &a); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, func(e *jx.Encoder) {
		api.EncodeAddress(e, a)
	})
}

func (h *Handler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.addresses.Delete(r.Context(), id); err != nil {
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

func (h *Handler) readAddress(w http.ResponseWriter, r *http.Request) (address.Address, bool) {
	var a address.Address
	if err := h.decodeBody(w, r, func(d *jx.Decoder) (err error) {
		a, err = api.DecodeAddress(d)
		return err
	}); err != nil {
		writeError(w, r, err)
		return a, false
	}
	return a, true
}
