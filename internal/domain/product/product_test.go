package product

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pizza-cart/internal/domain/delivery"
)

func margherita() Product {
	return Product{
		ID:    "margherita",
		Name:  "Margherita",
		Price: decimal.RequireFromString("9.50"),
		Variants: []Variant{
			{ID: "large", Name: "Large", PriceDelta: decimal.RequireFromString("3.00")},
		},
		Addons: []Addon{
			{ID: "olives", Name: "Olives", Price: decimal.RequireFromString("0.75")},
		},
		AvailableDeliveryTypes: delivery.NewSet(delivery.Delivery, delivery.Pickup),
	}
}

func TestUnitPrice(t *testing.T) {
	p := margherita()

	tests := []struct {
		name    string
		variant string
		addons  map[string]int
		want    string
		wantErr error
	}{
		{name: "base", want: "9.50"},
		{name: "large", variant: "large", want: "12.50"},
		{name: "large with olives", variant: "large", addons: map[string]int{"olives": 2}, want: "14.00"},
		{name: "zero addon quantity ignored", addons: map[string]int{"olives": 0}, want: "9.50"},
		{name: "unknown variant", variant: "tiny", wantErr: ErrUnknownVariant},
		{name: "unknown addon", addons: map[string]int{"gold": 1}, wantErr: ErrUnknownAddon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.UnitPrice(tt.variant, tt.addons)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestSupports(t *testing.T) {
	p := margherita()
	assert.True(t, p.Supports(delivery.Pickup))
	assert.False(t, p.Supports(delivery.DineIn))

	var open Product
	assert.True(t, open.Supports(delivery.DineIn))
}
