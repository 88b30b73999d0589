// Package deliveryswitch guards delivery type changes. Before a switch it
// finds the cart items the new type cannot fulfil and asks for confirmation
// before removing them.
package deliveryswitch

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/pizza-cart/internal/domain/cart"
	"github.com/xenking/pizza-cart/internal/domain/delivery"
	"github.com/xenking/pizza-cart/internal/session/mutation"
	"github.com/xenking/pizza-cart/internal/session/state"
)

// State of the Coordinator.
type State int

const (
	Idle State = iota
	PendingConfirmation
	Applying
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingConfirmation:
		return "pending_confirmation"
	case Applying:
		return "applying"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrNothingPending is returned by Confirm outside PendingConfirmation.
	ErrNothingPending = errors.New("no delivery type change pending")
	// ErrBusy is returned while a confirmed change is being applied.
	ErrBusy = errors.New("delivery type change in progress")
)

// Checker finds cart items that cannot be fulfilled with a delivery type.
type Checker interface {
	Incompatible(ctx context.Context, items []cart.Item, t delivery.Type) []cart.Item
}

// Remover deletes a cart item through the Backend API.
type Remover interface {
	RemoveCartItem(ctx context.Context, id string) mutation.Result
}

// Coordinator is the confirm-before-switch state machine for delivery types.
type Coordinator struct {
	store   *state.Store
	checker Checker
	remover Remover
	lg      *zap.Logger

	mu       sync.Mutex
	state    State
	target   delivery.Type
	affected []cart.Item
	// attempt identifies the newest RequestChange call.
	attempt uint64
}

// NewCoordinator creates an idle Coordinator.
func NewCoordinator(store *state.Store, checker Checker, remover Remover, lg *zap.Logger) *Coordinator {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Coordinator{
		store:   store,
		checker: checker,
		remover: remover,
		lg:      lg,
	}
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns the requested type and the items that confirming would
// remove. It returns no items outside PendingConfirmation.
func (c *Coordinator) Pending() (delivery.Type, []cart.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != PendingConfirmation {
		return "", nil
	}
	return c.target, slices.Clone(c.affected)
}

// RequestChange asks to switch to t and returns the resulting state. The
// switch is applied right away when the cart is empty, t is already the
// current type or every item supports t. Otherwise the Coordinator waits in
// PendingConfirmation for Confirm or Cancel. A request made while another is
// pending replaces it.
func (c *Coordinator) RequestChange(ctx context.Context, t delivery.Type) (State, error) {
	// Compare and store only canonical values, "Dine-In" is dine_in.
	t, err := delivery.Parse(string(t))
	if err != nil {
		return c.State(), err
	}

	c.mu.Lock()
	if c.state == Applying {
		c.mu.Unlock()
		return Applying, ErrBusy
	}
	c.attempt++
	attempt := c.attempt
	c.mu.Unlock()

	items := c.store.Items()
	if len(items) == 0 || c.store.Delivery().Type == t {
		return c.apply(attempt, t), nil
	}

	affected := c.checker.Incompatible(ctx, items, t)
	if len(affected) == 0 {
		return c.apply(attempt, t), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if attempt != c.attempt || c.state == Applying {
		// A newer request or a confirmation won the race.
		return c.state, nil
	}
	c.state = PendingConfirmation
	c.target = t
	c.affected = affected
	c.lg.Debug("Delivery type change needs confirmation",
		zap.String("delivery_type", string(t)),
		zap.Int("affected", len(affected)),
	)
	return PendingConfirmation, nil
}

// apply switches the type directly unless a newer request superseded this
// one.
func (c *Coordinator) apply(attempt uint64, t delivery.Type) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if attempt != c.attempt || c.state == Applying {
		return c.state
	}
	c.store.SetDeliveryType(t)
	c.resetLocked()
	return Idle
}

// Confirm removes the affected items and then switches the delivery type. If
// a removal fails the type is left unchanged and the Coordinator returns to
// PendingConfirmation with the items still in the cart.
func (c *Coordinator) Confirm(ctx context.Context) error {
	c.mu.Lock()
	if c.state != PendingConfirmation {
		c.mu.Unlock()
		return ErrNothingPending
	}
	c.state = Applying
	target := c.target
	affected := slices.Clone(c.affected)
	c.mu.Unlock()

	for _, it := range affected {
		if _, ok := c.store.Item(it.ID); !ok {
			continue
		}
		if res := c.remover.RemoveCartItem(ctx, it.ID); !res.Success {
			c.mu.Lock()
			c.state = PendingConfirmation
			c.affected = c.stillPresent(affected)
			c.mu.Unlock()
			return errors.Wrapf(res.Err, "remove cart item %s", it.ID)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.SetDeliveryType(target)
	c.resetLocked()
	return nil
}

// Cancel abandons a pending change without touching the cart or the type.
// It reports whether a change was pending.
func (c *Coordinator) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != PendingConfirmation {
		return false
	}
	c.resetLocked()
	return true
}

func (c *Coordinator) resetLocked() {
	c.state = Idle
	c.target = ""
	c.affected = nil
}

func (c *Coordinator) stillPresent(items []cart.Item) []cart.Item {
	var out []cart.Item
	for _, it := range items {
		if _, ok := c.store.Item(it.ID); ok {
			out = append(out, it)
		}
	}
	return out
}
