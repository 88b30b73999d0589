// Package mutation implements the cart, discount and address operations of a
// session. Each operation calls the Backend API and reconciles the store only
// after a successful response.
package mutation

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/pizza-cart/internal/api"
	"github.com/xenking/pizza-cart/internal/backend"
	"github.com/xenking/pizza-cart/internal/domain/address"
	"github.com/xenking/pizza-cart/internal/domain/cart"
	"github.com/xenking/pizza-cart/internal/domain/discount"
	"github.com/xenking/pizza-cart/internal/domain/pricing"
	"github.com/xenking/pizza-cart/internal/session/notify"
	"github.com/xenking/pizza-cart/internal/session/state"
)

// API is the part of the Backend API the hooks call.
type API interface {
	ListCart(ctx context.Context, sessionID string) ([]cart.Item, error)
	AddCartItem(ctx context.Context, it cart.Item) (*cart.Item, error)
	UpdateCartItem(ctx context.Context, id string, patch api.CartItemPatch) (*cart.Item, error)
	RemoveCartItem(ctx context.Context, id string) error
	ApplicableDiscounts(ctx context.Context, req pricing.ApplicableRequest) ([]discount.Rule, error)
	CreateAddress(ctx context.Context, a address.Address) (*address.Address, error)
	DeleteAddress(ctx context.Context, id string) error
}

// Result is the outcome of one hook call. Err is a *backend.Failure when
// Success is false.
type Result struct {
	Success bool
	Err     error
}

// Failure returns the failure behind a failed result.
func (r Result) Failure() *backend.Failure {
	return backend.AsFailure(r.Err)
}

// Options tune hook behaviour.
type Options struct {
	SessionID string
	StoreID   string
	// RefetchAfterMutation reloads the whole cart after every successful
	// cart mutation.
	RefetchAfterMutation bool
}

// Hooks runs mutations for one session.
type Hooks struct {
	api    API
	store  *state.Store
	notify notify.Notifier
	opts   Options

	mu       sync.Mutex
	inflight int
}

// New creates Hooks. A nil notifier discards notifications.
func New(client API, store *state.Store, n notify.Notifier, opts Options) *Hooks {
	if n == nil {
		n = notify.Discard
	}
	return &Hooks{
		api:    client,
		store:  store,
		notify: n,
		opts:   opts,
	}
}

// Operation names reported in notifications.
const (
	OpAddToCart      = "cart.add"
	OpUpdateCartItem = "cart.update"
	OpRemoveCartItem = "cart.remove"
	OpRefetchCart    = "cart.refetch"
	OpApplyDiscount  = "discount.apply"
	OpRemoveDiscount = "discount.remove"
	OpCreateAddress  = "address.create"
	OpDeleteAddress  = "address.delete"
	OpSelectAddress  = "address.select"
)

// begin marks the store as loading for the duration of a Backend API call.
func (h *Hooks) begin() (end func()) {
	h.mu.Lock()
	h.inflight++
	if h.inflight == 1 {
		h.store.SetLoading(true)
	}
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		h.inflight--
		if h.inflight == 0 {
			h.store.SetLoading(false)
		}
		h.mu.Unlock()
	}
}

func (h *Hooks) succeed(op, msg string) Result {
	h.notify.Notify(notify.Notification{Level: notify.LevelSuccess, Op: op, Message: msg})
	return Result{Success: true}
}

func (h *Hooks) fail(ctx context.Context, op string, err error) Result {
	f := backend.AsFailure(err)
	zctx.From(ctx).Debug("Mutation failed",
		zap.String("op", op),
		zap.Stringer("kind", f.Kind),
		zap.Int("status", f.StatusCode),
		zap.Error(err),
	)
	h.notify.Notify(notify.Notification{Level: notify.LevelError, Op: op, Message: f.Message, Err: f})
	return Result{Err: f}
}

// AddToCart creates a cart item on the server and appends the server's copy.
func (h *Hooks) AddToCart(ctx context.Context, it cart.Item) Result {
	if it.SessionID == "" {
		it.SessionID = h.opts.SessionID
	}
	if err := it.Validate(); err != nil {
		return h.fail(ctx, OpAddToCart, backend.Validation(err.Error()))
	}

	end := h.begin()
	created, err := h.api.AddCartItem(ctx, it)
	end()
	if err != nil {
		return h.fail(ctx, OpAddToCart, err)
	}

	h.store.PutItemAt(h.store.BeginMutation(created.ID), *created)
	h.afterCartMutation(ctx)
	return h.succeed(OpAddToCart, "Added to cart")
}

// UpdateCartItem patches a cart item. A response for an older mutation of
// the same item is discarded when it arrives after a newer one.
func (h *Hooks) UpdateCartItem(ctx context.Context, id string, patch api.CartItemPatch) Result {
	if patch.Quantity != nil && *patch.Quantity <= 0 {
		return h.fail(ctx, OpUpdateCartItem, backend.Validation("Quantity must be at least 1"))
	}

	seq := h.store.BeginMutation(id)
	end := h.begin()
	updated, err := h.api.UpdateCartItem(ctx, id, patch)
	end()
	if err != nil {
		return h.fail(ctx, OpUpdateCartItem, err)
	}

	updated.ID = id
	h.store.PutItemAt(seq, *updated)
	h.afterCartMutation(ctx)
	return h.succeed(OpUpdateCartItem, "Cart updated")
}

// RemoveCartItem deletes a cart item.
func (h *Hooks) RemoveCartItem(ctx context.Context, id string) Result {
	seq := h.store.BeginMutation(id)
	end := h.begin()
	err := h.api.RemoveCartItem(ctx, id)
	end()
	if err != nil {
		return h.fail(ctx, OpRemoveCartItem, err)
	}

	h.store.RemoveItemAt(seq, id)
	h.afterCartMutation(ctx)
	return h.succeed(OpRemoveCartItem, "Removed from cart")
}

// RefetchCart replaces the store's cart with the server's.
func (h *Hooks) RefetchCart(ctx context.Context) Result {
	if err := h.refetch(ctx); err != nil {
		return h.fail(ctx, OpRefetchCart, err)
	}
	return h.succeed(OpRefetchCart, "Cart refreshed")
}

func (h *Hooks) refetch(ctx context.Context) error {
	end := h.begin()
	items, err := h.api.ListCart(ctx, h.opts.SessionID)
	end()
	if err != nil {
		return err
	}
	h.store.SetItems(items)
	return nil
}

func (h *Hooks) afterCartMutation(ctx context.Context) {
	if !h.opts.RefetchAfterMutation {
		return
	}
	// The mutation itself succeeded, so a failed refetch only leaves the
	// optimistic state in place.
	if err := h.refetch(ctx); err != nil {
		zctx.From(ctx).Warn("Refetch after mutation failed", zap.Error(err))
	}
}

// ApplyDiscount selects a discount after the server confirms it applies to
// the current cart. Selecting an already applied discount fails locally
// without calling the server.
func (h *Hooks) ApplyDiscount(ctx context.Context, id string) Result {
	if h.store.HasDiscount(id) {
		return h.fail(ctx, OpApplyDiscount, backend.Validation("Discount already applied"))
	}
	ids := h.store.CartIDs()
	if len(ids) == 0 {
		return h.fail(ctx, OpApplyDiscount, backend.Validation("Add items to the cart before applying a discount"))
	}

	req := pricing.ApplicableRequest{CartIDs: ids, StoreID: h.opts.StoreID}
	if d := h.store.Delivery(); d.Selected {
		req.DeliveryType = d.Type
	}

	end := h.begin()
	rules, err := h.api.ApplicableDiscounts(ctx, req)
	end()
	if err != nil {
		return h.fail(ctx, OpApplyDiscount, err)
	}
	if !slices.ContainsFunc(rules, func(r discount.Rule) bool { return r.ID == id }) {
		return h.fail(ctx, OpApplyDiscount, &backend.Failure{
			Kind:    backend.KindDomain,
			Message: "Discount is not applicable to this cart",
		})
	}

	h.store.AddDiscount(id)
	return h.succeed(OpApplyDiscount, "Discount applied")
}

// RemoveDiscount deselects a discount. It is local only; the server checks
// discounts when pricing.
func (h *Hooks) RemoveDiscount(_ context.Context, id string) Result {
	h.store.RemoveDiscount(id)
	return h.succeed(OpRemoveDiscount, "Discount removed")
}

// CreateAddress saves an address and selects it.
func (h *Hooks) CreateAddress(ctx context.Context, a address.Address) (address.Address, Result) {
	if a.SessionID == "" {
		a.SessionID = h.opts.SessionID
	}
	if err := a.Validate(); err != nil {
		return address.Address{}, h.fail(ctx, OpCreateAddress, backend.Validation(err.Error()))
	}

	end := h.begin()
	created, err := h.api.CreateAddress(ctx, a)
	end()
	if err != nil {
		return address.Address{}, h.fail(ctx, OpCreateAddress, err)
	}

	h.store.SetAddress(created.ID)
	return *created, h.succeed(OpCreateAddress, "Address saved")
}

// DeleteAddress removes an address, clearing the selection if it was
// selected.
func (h *Hooks) DeleteAddress(ctx context.Context, id string) Result {
	end := h.begin()
	err := h.api.DeleteAddress(ctx, id)
	end()
	if err != nil {
		return h.fail(ctx, OpDeleteAddress, err)
	}

	if h.store.Delivery().AddressID == id {
		h.store.ClearAddress()
	}
	return h.succeed(OpDeleteAddress, "Address deleted")
}

// SelectAddress selects a saved address. An empty id clears the selection.
func (h *Hooks) SelectAddress(_ context.Context, id string) Result {
	h.store.SetAddress(id)
	if id == "" {
		return h.succeed(OpSelectAddress, "Address cleared")
	}
	return h.succeed(OpSelectAddress, "Address selected")
}
