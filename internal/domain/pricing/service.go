package pricing

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/pizza-cart/internal/domain/address"
	"github.com/xenking/pizza-cart/internal/domain/cart"
	"github.com/xenking/pizza-cart/internal/domain/delivery"
	"github.com/xenking/pizza-cart/internal/domain/discount"
	"github.com/xenking/pizza-cart/internal/domain/location"
	"github.com/xenking/pizza-cart/internal/domain/product"
)

// DiscountResolver finds and applies discount rules.
type DiscountResolver interface {
	Applicable(ctx context.Context, c discount.Cart, search string) ([]discount.Rule, error)
	Resolve(ctx context.Context, ids []string, c discount.Cart) ([]discount.Discount, error)
}

// Service encapsulates billing summary computation.
type Service struct {
	items     cart.Repository
	products  product.Repository
	locations location.Repository
	addresses address.Repository
	discounts DiscountResolver
	now       func() time.Time
}

// NewService creates a pricing Service with the required domain dependencies.
func NewService(
	items cart.Repository,
	products product.Repository,
	locations location.Repository,
	addresses address.Repository,
	discounts DiscountResolver,
) *Service {
	return &Service{
		items:     items,
		products:  products,
		locations: locations,
		addresses: addresses,
		discounts: discounts,
		now:       time.Now,
	}
}

// Summarize prices the cart items, applies the selected discounts and adds
// delivery fee and tax for the store.
func (s *Service) Summarize(ctx context.Context, req Request) (*Summary, error) {
	if len(req.CartIDs) == 0 {
		return nil, ErrEmptyCart
	}
	if req.StoreID == "" {
		return nil, ErrStoreRequired
	}

	loc, err := s.locations.GetByID(ctx, req.StoreID)
	if err != nil {
		return nil, errors.Wrap(err, "get store")
	}
	if req.DeliveryType != "" && !loc.DeliveryTypes.Has(req.DeliveryType) {
		return nil, &UnsupportedDeliveryError{Subject: "store " + loc.ID, Type: req.DeliveryType}
	}

	lines, err := s.priceLines(ctx, req.CartIDs, req.DeliveryType)
	if err != nil {
		return nil, err
	}

	if req.AddressID != "" && req.DeliveryType == delivery.Delivery {
		if err := s.checkRange(ctx, req.AddressID, loc); err != nil {
			return nil, err
		}
	}

	dc := discountCart(lines, req.DeliveryType, s.now())
	applied, err := s.discounts.Resolve(ctx, req.DiscountIDs, dc)
	if err != nil {
		return nil, errors.Wrap(err, "resolve discounts")
	}

	subtotal := discount.Subtotal(dc.Lines)

	// Discounts stack but never exceed the subtotal.
	discountTotal := decimal.Zero
	waiveFee := false
	for _, d := range applied {
		discountTotal = discountTotal.Add(d.Amount)
		waiveFee = waiveFee || d.WaivesDeliveryFee
	}
	discountTotal = decimal.Min(discountTotal, subtotal).Round(2)

	fee := decimal.Zero
	if req.DeliveryType == delivery.Delivery && !waiveFee {
		fee = loc.DeliveryFee
	}

	taxable := subtotal.Sub(discountTotal)
	tax := taxable.Mul(loc.TaxRate).Round(2)

	total := taxable.Add(fee).Add(tax)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return &Summary{
		Lines:            lines,
		Subtotal:         subtotal.Round(2),
		Discount:         discountTotal,
		DeliveryFee:      fee.Round(2),
		Tax:              tax,
		Total:            total.Round(2),
		AppliedDiscounts: applied,
		DeliveryType:     req.DeliveryType,
	}, nil
}

// Applicable returns the discount rules the cart currently satisfies.
func (s *Service) Applicable(ctx context.Context, req ApplicableRequest) ([]discount.Rule, error) {
	if len(req.CartIDs) == 0 {
		return nil, ErrEmptyCart
	}
	if req.StoreID == "" {
		return nil, ErrStoreRequired
	}
	if _, err := s.locations.GetByID(ctx, req.StoreID); err != nil {
		return nil, errors.Wrap(err, "get store")
	}

	lines, err := s.priceLines(ctx, req.CartIDs, "")
	if err != nil {
		return nil, err
	}

	rules, err := s.discounts.Applicable(ctx, discountCart(lines, req.DeliveryType, s.now()), req.Search)
	if err != nil {
		return nil, errors.Wrap(err, "find applicable discounts")
	}
	return rules, nil
}

// priceLines batch-loads cart items and their products and prices each line.
// When dt is set every product must support it.
func (s *Service) priceLines(ctx context.Context, ids []string, dt delivery.Type) ([]Line, error) {
	items, err := s.items.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get cart items")
	}
	byID := make(map[string]cart.Item, len(items))
	productIDs := make([]string, 0, len(items))
	for _, it := range items {
		byID[it.ID] = it
		productIDs = append(productIDs, it.ProductID)
	}

	products, err := s.products.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	productMap := make(map[string]*product.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	lines := make([]Line, 0, len(ids))
	for _, id := range ids {
		it, ok := byID[id]
		if !ok {
			return nil, &CartItemNotFoundError{ID: id}
		}
		p, ok := productMap[it.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: it.ProductID}
		}
		if dt != "" && !p.Supports(dt) {
			return nil, &UnsupportedDeliveryError{Subject: "product " + p.Name, Type: dt}
		}

		unit, err := p.UnitPrice(it.VariantID, it.Addons)
		if err != nil {
			return nil, errors.Wrapf(err, "price cart item %s", it.ID)
		}
		lines = append(lines, Line{
			CartItemID: it.ID,
			ProductID:  p.ID,
			Name:       p.Name,
			VariantID:  it.VariantID,
			Quantity:   it.Quantity,
			UnitPrice:  unit,
			LineTotal:  unit.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2),
		})
	}
	return lines, nil
}

func (s *Service) checkRange(ctx context.Context, addressID string, loc *location.Location) error {
	addr, err := s.addresses.GetByID(ctx, addressID)
	if err != nil {
		return errors.Wrap(err, "get address")
	}
	if addr.Lat == 0 && addr.Lng == 0 {
		// Not geocoded.
		return nil
	}
	if loc.DeliveryRadiusKm > 0 && location.DistanceKm(addr.Lat, addr.Lng, loc.Lat, loc.Lng) > loc.DeliveryRadiusKm {
		return ErrOutOfDeliveryRange
	}
	return nil
}

func discountCart(lines []Line, dt delivery.Type, now time.Time) discount.Cart {
	dl := make([]discount.Line, len(lines))
	for i, l := range lines {
		dl[i] = discount.Line{
			ProductID: l.ProductID,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		}
	}
	return discount.Cart{Lines: dl, DeliveryType: dt, Now: now}
}
