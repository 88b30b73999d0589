package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/pizza-cart/internal/api"
	"github.com/xenking/pizza-cart/internal/domain/pricing"
)

// Summary prices the given cart items and responds 201 with the breakdown.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	var req pricing.Request
	if err := h.decodeBody(w, r, func(d *jx.Decoder) (err error) {
		req, err = api.DecodeSummaryRequest(d)
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}

	sum, err := h.pricing.Summarize(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, func(e *jx.Encoder) {
		api.EncodeSummary(e, *sum)
	})
}

// ApplicableDiscounts lists the discount rules the cart satisfies.
func (h *Handler) ApplicableDiscounts(w http.ResponseWriter, r *http.Request) {
	var req pricing.ApplicableRequest
	if err := h.decodeBody(w, r, func(d *jx.Decoder) (err error) {
		req, err = api.DecodeApplicableRequest(d)
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}

	rules, err := h.pricing.Applicable(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, func(e *jx.Encoder) {
		api.EncodeRules(e, rules)
	})
}
