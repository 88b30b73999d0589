// Package pricing computes the billing breakdown for a cart.
package pricing

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/pizza-cart/internal/domain/delivery"
	"github.com/xenking/pizza-cart/internal/domain/discount"
)

// Sentinel errors for summary requests.
var (
	ErrEmptyCart          = errors.New("cart ids required")
	ErrStoreRequired      = errors.New("store id required")
	ErrOutOfDeliveryRange = errors.New("address is outside the store's delivery radius")
)

// CartItemNotFoundError indicates a requested cart item does not exist.
type CartItemNotFoundError struct {
	ID string
}

func (e *CartItemNotFoundError) Error() string {
	return fmt.Sprintf("cart item %s not found", e.ID)
}

// ProductNotFoundError indicates a cart item references a missing product.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// UnsupportedDeliveryError indicates that a product or store cannot fulfil
// the requested delivery type.
type UnsupportedDeliveryError struct {
	Subject string
	Type    delivery.Type
}

func (e *UnsupportedDeliveryError) Error() string {
	return fmt.Sprintf("%s does not support %s", e.Subject, e.Type)
}

// Request identifies the inputs of a billing summary. Optional fields are
// left empty when not provided.
type Request struct {
	CartIDs      []string
	StoreID      string
	DiscountIDs  []string
	DeliveryType delivery.Type
	AddressID    string
}

// ApplicableRequest identifies the cart for an applicable-discounts query.
type ApplicableRequest struct {
	CartIDs      []string
	StoreID      string
	Search       string
	DeliveryType delivery.Type
}

// Line is a priced cart item.
type Line struct {
	CartItemID string
	ProductID  string
	Name       string
	VariantID  string
	Quantity   int
	UnitPrice  decimal.Decimal
	LineTotal  decimal.Decimal
}

// Summary is the server-computed price breakdown.
type Summary struct {
	Lines            []Line
	Subtotal         decimal.Decimal
	Discount         decimal.Decimal
	DeliveryFee      decimal.Decimal
	Tax              decimal.Decimal
	Total            decimal.Decimal
	AppliedDiscounts []discount.Discount
	DeliveryType     delivery.Type
}
