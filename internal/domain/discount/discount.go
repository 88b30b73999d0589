// Package discount evaluates promotional rules against a priced cart.
package discount

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/pizza-cart/internal/domain/delivery"
)

// Type enumerates the supported discount strategies.
type Type string

const (
	// Percentage takes a percentage off the subtotal.
	Percentage Type = "percentage"
	// Fixed takes a fixed amount off, capped at the subtotal.
	Fixed Type = "fixed"
	// FreeLowest removes the unit price of the cheapest line.
	FreeLowest Type = "free_lowest"
	// FreeDelivery waives the delivery fee.
	FreeDelivery Type = "free_delivery"
)

var (
	// ErrNotApplicable is returned when the cart does not satisfy a rule.
	ErrNotApplicable = errors.New("discount not applicable")
	// ErrExpired is returned when a rule is outside its valid time window.
	ErrExpired = errors.New("discount expired")
)

// NotFoundError indicates a requested discount id does not exist or is inactive.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("discount %s not found", e.ID)
}

// Rule defines a discount's behaviour and eligibility constraints.
type Rule struct {
	ID          string
	Code        string
	Type        Type
	Value       decimal.Decimal
	MinItems    int
	MinSubtotal decimal.Decimal
	// DeliveryTypes restricts the rule to these fulfilment modes. Empty means any.
	DeliveryTypes delivery.Set
	ValidFrom     *time.Time
	ValidUntil    *time.Time
	// MaxDiscount caps the computed amount when positive.
	MaxDiscount decimal.Decimal
	Description string
}

// Line is a priced cart line used for discount calculation.
type Line struct {
	ProductID string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Cart is the evaluation context for a rule.
type Cart struct {
	Lines        []Line
	DeliveryType delivery.Type
	Now          time.Time
}

// Discount is the outcome of applying a rule.
type Discount struct {
	RuleID      string
	Code        string
	Amount      decimal.Decimal
	Description string
	// WaivesDeliveryFee is set by free-delivery rules.
	WaivesDeliveryFee bool
}

// Repository provides lookup of discount rules.
type Repository interface {
	ListActive(ctx context.Context) ([]Rule, error)
	GetByIDs(ctx context.Context, ids []string) ([]Rule, error)
}
