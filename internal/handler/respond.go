package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/pizza-cart/internal/api"
	"github.com/xenking/pizza-cart/internal/domain/address"
	"github.com/xenking/pizza-cart/internal/domain/cart"
	"github.com/xenking/pizza-cart/internal/domain/delivery"
	"github.com/xenking/pizza-cart/internal/domain/discount"
	"github.com/xenking/pizza-cart/internal/domain/location"
	"github.com/xenking/pizza-cart/internal/domain/pricing"
	"github.com/xenking/pizza-cart/internal/domain/product"
)

// badRequest marks a malformed or incomplete request.
type badRequest struct {
	msg string
	err error
}

func (e *badRequest) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *badRequest) Unwrap() error { return e.err }

func invalid(msg string, err error) error {
	return &badRequest{msg: msg, err: err}
}

// mapError converts domain errors to an envelope status and message.
// Unknown errors map to 500 with a generic message.
func mapError(err error) (int, string) {
	var (
		br     *badRequest
		qty    *cart.InvalidQuantityError
		noItem *pricing.CartItemNotFoundError
		noProd *pricing.ProductNotFoundError
		unsup  *pricing.UnsupportedDeliveryError
		noDisc *discount.NotFoundError
	)
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest, br.Error()
	case errors.Is(err, cart.ErrMissingSession),
		errors.Is(err, pricing.ErrEmptyCart),
		errors.Is(err, pricing.ErrStoreRequired),
		errors.Is(err, delivery.ErrUnknownType):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, "Product not found"
	case errors.Is(err, cart.ErrItemNotFound):
		return http.StatusNotFound, "Cart item not found"
	case errors.Is(err, address.ErrNotFound):
		return http.StatusNotFound, "Address not found"
	case errors.Is(err, location.ErrNotFound):
		return http.StatusNotFound, "Store not found"
	case errors.As(err, &qty):
		return http.StatusUnprocessableEntity, qty.Error()
	case errors.As(err, &noItem):
		return http.StatusUnprocessableEntity, noItem.Error()
	case errors.As(err, &noProd):
		return http.StatusUnprocessableEntity, noProd.Error()
	case errors.As(err, &unsup):
		return http.StatusUnprocessableEntity, unsup.Error()
	case errors.As(err, &noDisc):
		return http.StatusUnprocessableEntity, noDisc.Error()
	case errors.Is(err, product.ErrUnknownVariant),
		errors.Is(err, product.ErrUnknownAddon),
		errors.Is(err, pricing.ErrOutOfDeliveryRange),
		errors.Is(err, discount.ErrNotApplicable),
		errors.Is(err, discount.ErrExpired):
		return http.StatusUnprocessableEntity, err.Error()
	}
	return http.StatusInternalServerError, "Internal server error"
}

func writeEnvelope(w http.ResponseWriter, status int, msg string, data func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	api.EncodeEnvelope(e, status, msg, data)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(e.Bytes())))
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeData(w http.ResponseWriter, status int, data func(e *jx.Encoder)) {
	writeEnvelope(w, status, "", data)
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	zctx.From(r.Context()).Debug("Request rejected",
		zap.Int("status", status),
		zap.String("message", msg),
	)
	writeEnvelope(w, status, msg, nil)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapError(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeEnvelope(w, status, msg, nil)
		return
	}
	writeMessage(w, r, status, msg)
}

// decodeBody reads the request body with the size limit applied and decodes
// it with fn.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder) error) error {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return invalid("request body too large", nil)
		}
		return invalid("read body", err)
	}
	if len(b) == 0 {
		return invalid("request body required", nil)
	}
	if err := fn(jx.DecodeBytes(b)); err != nil {
		return invalid("invalid request body", err)
	}
	return nil
}
