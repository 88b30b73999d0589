package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/pizza-cart/internal/domain/delivery"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrUnknownVariant is returned when a variant id does not belong to the product.
	ErrUnknownVariant = errors.New("unknown product variant")
	// ErrUnknownAddon is returned when an addon id does not belong to the product.
	ErrUnknownAddon = errors.New("unknown product addon")
)

// Product is a menu item that can be added to the cart.
type Product struct {
	ID       string
	Name     string
	Category string
	// Price is the base price before variant and addon adjustments.
	Price                  decimal.Decimal
	Variants               []Variant
	Addons                 []Addon
	AvailableDeliveryTypes delivery.Set
	Image                  Image
}

// Variant is a size or crust option that adjusts the base price.
type Variant struct {
	ID         string
	Name       string
	PriceDelta decimal.Decimal
}

// Addon is an optional topping priced per unit.
type Addon struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// Image holds responsive image URLs for a product.
type Image struct {
	Thumbnail string
	Mobile    string
	Tablet    string
	Desktop   string
}

// Variant returns the variant with the given id. An empty id selects no
// variant and yields a zero delta.
func (p *Product) Variant(id string) (Variant, error) {
	if id == "" {
		return Variant{PriceDelta: decimal.Zero}, nil
	}
	for _, v := range p.Variants {
		if v.ID == id {
			return v, nil
		}
	}
	return Variant{}, errors.Wrapf(ErrUnknownVariant, "%s/%s", p.ID, id)
}

// Addon returns the addon with the given id.
func (p *Product) Addon(id string) (Addon, error) {
	for _, a := range p.Addons {
		if a.ID == id {
			return a, nil
		}
	}
	return Addon{}, errors.Wrapf(ErrUnknownAddon, "%s/%s", p.ID, id)
}

// UnitPrice returns the price of one unit with the given variant and addon
// quantities applied.
func (p *Product) UnitPrice(variantID string, addons map[string]int) (decimal.Decimal, error) {
	v, err := p.Variant(variantID)
	if err != nil {
		return decimal.Zero, err
	}
	price := p.Price.Add(v.PriceDelta)
	for id, qty := range addons {
		if qty <= 0 {
			continue
		}
		a, err := p.Addon(id)
		if err != nil {
			return decimal.Zero, err
		}
		price = price.Add(a.Price.Mul(decimal.NewFromInt(int64(qty))))
	}
	return price, nil
}

// Supports reports whether the product can be fulfilled with t. Products
// without any declared delivery types are treated as available everywhere.
func (p *Product) Supports(t delivery.Type) bool {
	if len(p.AvailableDeliveryTypes) == 0 {
		return true
	}
	return p.AvailableDeliveryTypes.Has(t)
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
