package main

import (
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pizza-cart/internal/domain/delivery"
	"github.com/xenking/pizza-cart/internal/domain/discount"
)

func TestParseCatalog_SeedFile(t *testing.T) {
	data, err := os.ReadFile("../../db/seed/catalog.json")
	require.NoError(t, err)

	c, err := parseCatalog(data)
	require.NoError(t, err)
	require.Len(t, c.Products, 6)
	require.Len(t, c.Locations, 3)
	require.Len(t, c.Discounts, 4)

	margherita := c.Products[0]
	assert.Equal(t, "margherita", margherita.ID)
	assert.True(t, decimal.RequireFromString("9.50").Equal(margherita.Price))
	require.Len(t, margherita.Variants, 3)
	assert.True(t, decimal.RequireFromString("-1.50").Equal(margherita.Variants[0].PriceDelta))
	assert.Len(t, margherita.Addons, 3)
	assert.True(t, margherita.AvailableDeliveryTypes.Has(delivery.Delivery))

	calzone := c.Products[2]
	assert.False(t, calzone.AvailableDeliveryTypes.Has(delivery.Delivery))

	assert.Equal(t, "ber-airport", c.Locations[2].ID)
	assert.True(t, decimal.RequireFromString("0.19").Equal(c.Locations[2].TaxRate))

	happy := c.Discounts[0]
	assert.Equal(t, discount.Percentage, happy.Type)
	assert.True(t, decimal.NewFromInt(15).Equal(happy.MaxDiscount))
	assert.True(t, c.Discounts[2].DeliveryTypes.Has(delivery.Delivery))
}

func TestParseCatalog_Invalid(t *testing.T) {
	for _, tt := range []struct {
		name string
		data string
	}{
		{name: "NotObject", data: `[]`},
		{name: "MissingPrice", data: `{"products":[{"id":"p1","name":"Bare"}]}`},
		{name: "UnknownDeliveryType", data: `{"products":[{"id":"p1","name":"X","price":"1","availableDeliveryTypes":["drone"]}]}`},
		{name: "BadDecimal", data: `{"discounts":[{"id":"d","code":"D","type":"fixed","value":"ten"}]}`},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCatalog([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}
