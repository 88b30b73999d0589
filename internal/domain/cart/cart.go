// Package cart holds the line items of an in-progress order.
package cart

import (
	"context"
	"fmt"
	"maps"

	"github.com/go-faster/errors"
)

var (
	// ErrItemNotFound is returned when a cart item id does not exist.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrMissingSession is returned when an item is created without a session.
	ErrMissingSession = errors.New("session id required")
)

// InvalidQuantityError indicates a non-positive unit or addon quantity.
type InvalidQuantityError struct {
	Field    string
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("%s must be greater than 0, got %d", e.Field, e.Quantity)
}

// Item is one line of the cart: a product with its selected variant, addon
// quantities and unit quantity.
type Item struct {
	ID        string
	SessionID string
	ProductID string
	VariantID string
	// Addons maps addon id to quantity.
	Addons   map[string]int
	Quantity int
}

// Clone returns a deep copy of the item.
func (i Item) Clone() Item {
	i.Addons = maps.Clone(i.Addons)
	return i
}

// Validate checks the fields a client controls.
func (i Item) Validate() error {
	if i.SessionID == "" {
		return ErrMissingSession
	}
	if i.ProductID == "" {
		return errors.New("product id required")
	}
	if i.Quantity <= 0 {
		return &InvalidQuantityError{Field: "quantity", Quantity: i.Quantity}
	}
	for id, qty := range i.Addons {
		if qty <= 0 {
			return &InvalidQuantityError{Field: "addon " + id, Quantity: qty}
		}
	}
	return nil
}

// IDs returns the identities of items in order.
func IDs(items []Item) []string {
	ids := make([]string, len(items))
	for n, it := range items {
		ids[n] = it.ID
	}
	return ids
}

// Repository persists cart items on the server side.
type Repository interface {
	ListBySession(ctx context.Context, sessionID string) ([]Item, error)
	GetByIDs(ctx context.Context, ids []string) ([]Item, error)
	Create(ctx context.Context, item *Item) error
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id string) error
}
