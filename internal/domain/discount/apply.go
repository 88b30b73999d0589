package discount

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/pizza-cart/internal/domain/delivery"
)

var hundred = decimal.NewFromInt(100)

// Check reports whether the rule can be applied to c. It returns ErrExpired
// outside the validity window and ErrNotApplicable for unmet constraints.
func (r *Rule) Check(c Cart) error {
	if r.ValidFrom != nil && c.Now.Before(*r.ValidFrom) {
		return ErrExpired
	}
	if r.ValidUntil != nil && c.Now.After(*r.ValidUntil) {
		return ErrExpired
	}
	if len(r.DeliveryTypes) > 0 && !r.DeliveryTypes.Has(c.DeliveryType) {
		return errors.Wrapf(ErrNotApplicable, "%s requires %v", r.Code, r.DeliveryTypes.Strings())
	}
	if r.Type == FreeDelivery && c.DeliveryType != delivery.Delivery {
		return errors.Wrapf(ErrNotApplicable, "%s only applies to delivery orders", r.Code)
	}
	if r.MinItems > 0 && Quantity(c.Lines) < r.MinItems {
		return errors.Wrapf(ErrNotApplicable, "%s requires %d items", r.Code, r.MinItems)
	}
	if r.MinSubtotal.IsPositive() && Subtotal(c.Lines).LessThan(r.MinSubtotal) {
		return errors.Wrapf(ErrNotApplicable, "%s requires subtotal of %s", r.Code, r.MinSubtotal.StringFixed(2))
	}
	return nil
}

// Apply checks the rule against c and computes the discount amount.
func Apply(r *Rule, c Cart) (Discount, error) {
	if err := r.Check(c); err != nil {
		return Discount{}, err
	}

	subtotal := Subtotal(c.Lines)
	d := Discount{
		RuleID:      r.ID,
		Code:        r.Code,
		Description: r.Description,
	}

	switch r.Type {
	case Percentage:
		d.Amount = subtotal.Mul(r.Value).Div(hundred)
	case Fixed:
		d.Amount = decimal.Min(r.Value, subtotal)
	case FreeLowest:
		d.Amount = lowestUnitPrice(c.Lines)
	case FreeDelivery:
		d.Amount = decimal.Zero
		d.WaivesDeliveryFee = true
	default:
		return Discount{}, errors.Errorf("unsupported discount type: %q", r.Type)
	}

	if r.MaxDiscount.IsPositive() {
		d.Amount = decimal.Min(d.Amount, r.MaxDiscount)
	}
	d.Amount = floorAtZero(d.Amount).Round(2)
	return d, nil
}

// Subtotal returns the sum of unit price * quantity across lines.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Quantity returns the number of units across lines.
func Quantity(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

func lowestUnitPrice(lines []Line) decimal.Decimal {
	if len(lines) == 0 {
		return decimal.Zero
	}
	lowest := lines[0].UnitPrice
	for _, l := range lines[1:] {
		if l.UnitPrice.LessThan(lowest) {
			lowest = l.UnitPrice
		}
	}
	return lowest
}

func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
