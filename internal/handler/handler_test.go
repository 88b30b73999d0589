package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pizza-cart/internal/api"
	"github.com/xenking/pizza-cart/internal/backend"
	"github.com/xenking/pizza-cart/internal/domain/address"
	"github.com/xenking/pizza-cart/internal/domain/cart"
	"github.com/xenking/pizza-cart/internal/domain/delivery"
	"github.com/xenking/pizza-cart/internal/domain/discount"
	"github.com/xenking/pizza-cart/internal/domain/location"
	"github.com/xenking/pizza-cart/internal/domain/pricing"
	"github.com/xenking/pizza-cart/internal/domain/product"
)

func serve(t *testing.T, h http.Handler, method, target, body string) api.Envelope {
	t.Helper()

	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	env, err := api.DecodeEnvelope(w.Body.Bytes())
	require.NoError(t, err, w.Body.String())
	require.Equal(t, w.Code, env.StatusCode, "HTTP status mirrors statusCode")
	return env
}

const addMargherita = `{"sessionId":"s1","productId":"margherita","variantId":"large","addons":{"olives":2},"quantity":2}`

func TestProducts(t *testing.T) {
	h := newFixture().handler.Router()

	env := serve(t, h, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, env.StatusCode)
	var list []product.Product
	require.NoError(t, env.DecodeData(func(d *jx.Decoder) (err error) {
		list, err = api.DecodeProducts(d)
		return err
	}))
	require.Len(t, list, 2)
	assert.Equal(t, "https://cdn.test/img/margherita-thumb.jpg", list[0].Image.Thumbnail)
	assert.Equal(t, "13", list[0].Price.Add(list[0].Variants[0].PriceDelta).String())
	assert.True(t, list[1].AvailableDeliveryTypes.Has(delivery.DineIn))

	env = serve(t, h, http.MethodGet, "/api/products/margherita", "")
	require.Equal(t, http.StatusOK, env.StatusCode)

	env = serve(t, h, http.MethodGet, "/api/products/calzone", "")
	assert.Equal(t, http.StatusNotFound, env.StatusCode)
	assert.Equal(t, "Product not found", env.ErrorMessage)
	assert.Nil(t, env.Data)
}

func TestCart_Lifecycle(t *testing.T) {
	f := newFixture()
	h := f.handler.Router()

	env := serve(t, h, http.MethodPost, "/api/cart", addMargherita)
	require.Equal(t, http.StatusCreated, env.StatusCode, env.ErrorMessage)
	var created cart.Item
	require.NoError(t, env.DecodeData(func(d *jx.Decoder) (err error) {
		created, err = api.DecodeCartItem(d)
		return err
	}))
	assert.Equal(t, "item-1", created.ID)
	assert.Equal(t, map[string]int{"olives": 2}, created.Addons)

	env = serve(t, h, http.MethodGet, "/api/cart?sessionId=s1", "")
	require.Equal(t, http.StatusOK, env.StatusCode)
	var items []cart.Item
	require.NoError(t, env.DecodeData(func(d *jx.Decoder) (err error) {
		items, err = api.DecodeCartItems(d)
		return err
	}))
	require.Len(t, items, 1)

	env = serve(t, h, http.MethodGet, "/api/cart?sessionId=other", "")
	require.Equal(t, http.StatusOK, env.StatusCode)
	assert.Equal(t, "[]", string(env.Data))

	env = serve(t, h, http.MethodPatch, "/api/cart/item-1", `{"quantity":3}`)
	require.Equal(t, http.StatusOK, env.StatusCode, env.ErrorMessage)
	var updated cart.Item
	require.NoError(t, env.DecodeData(func(d *jx.Decoder) (err error) {
		updated, err = api.DecodeCartItem(d)
		return err
	}))
	assert.Equal(t, 3, updated.Quantity)
	assert.Equal(t, "large", updated.VariantID)
	assert.Equal(t, map[string]int{"olives": 2}, updated.Addons)

	env = serve(t, h, http.MethodDelete, "/api/cart/item-1", "")
	require.Equal(t, http.StatusOK, env.StatusCode)
	env = serve(t, h, http.MethodDelete, "/api/cart/item-1", "")
	assert.Equal(t, http.StatusNotFound, env.StatusCode)
	assert.Equal(t, "Cart item not found", env.ErrorMessage)
}

func TestCart_Errors(t *testing.T) {
	for _, tt := range []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{"MissingSession", http.MethodPost, "/api/cart", `{"productId":"margherita","quantity":1}`, http.StatusBadRequest},
		{"ZeroQuantity", http.MethodPost, "/api/cart", `{"sessionId":"s1","productId":"margherita","quantity":0}`, http.StatusUnprocessableEntity},
		{"UnknownProduct", http.MethodPost, "/api/cart", `{"sessionId":"s1","productId":"calzone","quantity":1}`, http.StatusUnprocessableEntity},
		{"UnknownVariant", http.MethodPost, "/api/cart", `{"sessionId":"s1","productId":"margherita","variantId":"xxl","quantity":1}`, http.StatusUnprocessableEntity},
		{"UnknownAddon", http.MethodPost, "/api/cart", `{"sessionId":"s1","productId":"margherita","addons":{"pineapple":1},"quantity":1}`, http.StatusUnprocessableEntity},
		{"Malformed", http.MethodPost, "/api/cart", `{"sessionId":`, http.StatusBadRequest},
		{"EmptyBody", http.MethodPost, "/api/cart", "", http.StatusBadRequest},
		{"ListWithoutSession", http.MethodGet, "/api/cart", "", http.StatusBadRequest},
		{"EmptyPatch", http.MethodPatch, "/api/cart/item-1", `{}`, http.StatusBadRequest},
		{"PatchUnknownItem", http.MethodPatch, "/api/cart/item-9", `{"quantity":2}`, http.StatusNotFound},
		{"PatchZeroQuantity", http.MethodPatch, "/api/cart/item-1", `{"quantity":0}`, http.StatusUnprocessableEntity},
		{"UnknownRoute", http.MethodGet, "/api/orders", "", http.StatusNotFound},
		{"MethodNotAllowed", http.MethodPut, "/api/cart/item-1", `{}`, http.StatusMethodNotAllowed},
	} {
		t.Run(tt.name, func(t *testing.T) {
			h := newFixture().handler.Router()
			env := serve(t, h, http.MethodPost, "/api/cart", addMargherita)
			require.Equal(t, http.StatusCreated, env.StatusCode)

			env = serve(t, h, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, env.StatusCode)
			assert.NotEmpty(t, env.ErrorMessage)
		})
	}
}

func TestSummary(t *testing.T) {
	f := newFixture()
	h := f.handler.Router()
	env := serve(t, h, http.MethodPost, "/api/cart", addMargherita)
	require.Equal(t, http.StatusCreated, env.StatusCode)

	body := `{"cartIds":["item-1"],"storeId":"downtown","discountIds":["d-ten"],"deliveryType":"delivery"}`
	env = serve(t, h, http.MethodPost, "/api/cart/summary", body)
	require.Equal(t, http.StatusCreated, env.StatusCode, env.ErrorMessage)

	var sum pricing.Summary
	require.NoError(t, env.DecodeData(func(d *jx.Decoder) (err error) {
		sum, err = api.DecodeSummary(d)
		return err
	}))
	// (10 + 3 + 2*1.50) * 2 = 32, 10% off, 10% tax on 28.80, 4.00 fee.
	assert.Equal(t, "32", sum.Subtotal.String())
	assert.Equal(t, "3.2", sum.Discount.String())
	assert.Equal(t, "2.88", sum.Tax.String())
	assert.Equal(t, "4", sum.DeliveryFee.String())
	assert.Equal(t, "35.68", sum.Total.String())
	assert.Equal(t, delivery.Delivery, sum.DeliveryType)
	require.Len(t, sum.AppliedDiscounts, 1)
	assert.Equal(t, "TENOFF", sum.AppliedDiscounts[0].Code)
	require.Len(t, sum.Lines, 1)
	assert.Equal(t, "16", sum.Lines[0].UnitPrice.String())

	env = serve(t, h, http.MethodPost, "/api/cart/summary", `{"cartIds":["item-1"],"storeId":"downtown"}`)
	require.Equal(t, http.StatusCreated, env.StatusCode, env.ErrorMessage)
	require.NoError(t, env.DecodeData(func(d *jx.Decoder) (err error) {
		sum, err = api.DecodeSummary(d)
		return err
	}))
	assert.Equal(t, "35.2", sum.Total.String())
	assert.True(t, sum.DeliveryFee.IsZero())
}

func TestSummary_Errors(t *testing.T) {
	f := newFixture()
	h := f.handler.Router()
	env := serve(t, h, http.MethodPost, "/api/cart", addMargherita)
	require.Equal(t, http.StatusCreated, env.StatusCode)
	env = serve(t, h, http.MethodPost, "/api/cart", `{"sessionId":"s1","productId":"tiramisu","quantity":1}`)
	require.Equal(t, http.StatusCreated, env.StatusCode)
	far := address.Address{ID: "far", SessionID: "s1", Line1: "Lakeside 1", City: "Potsdam", Lat: 52.39, Lng: 13.06}
	f.addresses.list = append(f.addresses.list, far)

	for _, tt := range []struct {
		name   string
		body   string
		status int
	}{
		{"EmptyCart", `{"cartIds":[],"storeId":"downtown"}`, http.StatusBadRequest},
		{"MissingStore", `{"cartIds":["item-1"]}`, http.StatusBadRequest},
		{"UnknownDeliveryType", `{"cartIds":["item-1"],"storeId":"downtown","deliveryType":"drone"}`, http.StatusBadRequest},
		{"UnknownStore", `{"cartIds":["item-1"],"storeId":"nowhere"}`, http.StatusNotFound},
		{"UnknownItem", `{"cartIds":["item-7"],"storeId":"downtown"}`, http.StatusUnprocessableEntity},
		{"ProductUnsupported", `{"cartIds":["item-2"],"storeId":"downtown","deliveryType":"delivery"}`, http.StatusUnprocessableEntity},
		{"StoreUnsupported", `{"cartIds":["item-1"],"storeId":"airport","deliveryType":"delivery"}`, http.StatusUnprocessableEntity},
		{"UnknownDiscount", `{"cartIds":["item-1"],"storeId":"downtown","discountIds":["d-none"]}`, http.StatusUnprocessableEntity},
		{"DiscountNotApplicable", `{"cartIds":["item-1"],"storeId":"downtown","discountIds":["d-big"]}`, http.StatusUnprocessableEntity},
		{"OutOfRange", `{"cartIds":["item-1"],"storeId":"downtown","deliveryType":"delivery","addressId":"far"}`, http.StatusUnprocessableEntity},
	} {
		t.Run(tt.name, func(t *testing.T) {
			env := serve(t, h, http.MethodPost, "/api/cart/summary", tt.body)
			assert.Equal(t, tt.status, env.StatusCode, env.ErrorMessage)
			assert.NotEmpty(t, env.ErrorMessage)
		})
	}
}

func TestApplicableDiscounts(t *testing.T) {
	h := newFixture().handler.Router()
	env := serve(t, h, http.MethodPost, "/api/cart", addMargherita)
	require.Equal(t, http.StatusCreated, env.StatusCode)

	env = serve(t, h, http.MethodPost, "/api/discounts/applicable", `{"cartIds":["item-1"],"storeId":"downtown"}`)
	require.Equal(t, http.StatusCreated, env.StatusCode, env.ErrorMessage)
	var rules []discount.Rule
	require.NoError(t, env.DecodeData(func(d *jx.Decoder) (err error) {
		rules, err = api.DecodeRules(d)
		return err
	}))
	require.Len(t, rules, 1)
	assert.Equal(t, "d-ten", rules[0].ID)

	env = serve(t, h, http.MethodPost, "/api/discounts/applicable", `{"cartIds":["item-1"],"storeId":"downtown","search":"big"}`)
	require.Equal(t, http.StatusCreated, env.StatusCode)
	assert.Equal(t, "[]", string(env.Data))
}

func TestAddresses(t *testing.T) {
	h := newFixture().handler.Router()

	env := serve(t, h, http.MethodPost, "/api/addresses", `{"sessionId":"s1","line1":"","city":"Berlin"}`)
	assert.Equal(t, http.StatusBadRequest, env.StatusCode)
	assert.Contains(t, env.ErrorMessage, "line1")

	env = serve(t, h, http.MethodPost, "/api/addresses",
		`{"sessionId":"s1","label":"Home","line1":"Unter den Linden 1","city":"Berlin","lat":52.517,"lng":13.389}`)
	require.Equal(t, http.StatusCreated, env.StatusCode, env.ErrorMessage)
	var a address.Address
	require.NoError(t, env.DecodeData(func(d *jx.Decoder) (err error) {
		a, err = api.DecodeAddress(d)
		return err
	}))
	assert.Equal(t, "addr-1", a.ID)

	env = serve(t, h, http.MethodPatch, "/api/addresses/addr-1",
		`{"sessionId":"hijack","label":"Office","line1":"Friedrichstr. 2","city":"Berlin"}`)
	require.Equal(t, http.StatusOK, env.StatusCode, env.ErrorMessage)
	require.NoError(t, env.DecodeData(func(d *jx.Decoder) (err error) {
		a, err = api.DecodeAddress(d)
		return err
	}))
	assert.Equal(t, "Office", a.Label)
	assert.Equal(t, "s1", a.SessionID)

	env = serve(t, h, http.MethodGet, "/api/addresses?sessionId=s1", "")
	require.Equal(t, http.StatusOK, env.StatusCode)
	var list []address.Address
	require.NoError(t, env.DecodeData(func(d *jx.Decoder) (err error) {
		list, err = api.DecodeAddresses(d)
		return err
	}))
	require.Len(t, list, 1)

	env = serve(t, h, http.MethodDelete, "/api/addresses/addr-1", "")
	require.Equal(t, http.StatusOK, env.StatusCode)
	env = serve(t, h, http.MethodDelete, "/api/addresses/addr-1", "")
	assert.Equal(t, http.StatusNotFound, env.StatusCode)
}

func TestLocations(t *testing.T) {
	h := newFixture().handler.Router()

	env := serve(t, h, http.MethodGet, "/api/locations?lat=52.3670&lng=13.5030", "")
	require.Equal(t, http.StatusOK, env.StatusCode)
	var list []location.Nearby
	require.NoError(t, env.DecodeData(func(d *jx.Decoder) (err error) {
		list, err = api.DecodeNearby(d)
		return err
	}))
	require.Len(t, list, 2)
	assert.Equal(t, "airport", list[0].ID)
	assert.False(t, list[0].WithinDeliveryRadius, "airport does not deliver")
	assert.Less(t, list[0].DistanceKm, 1.0)

	env = serve(t, h, http.MethodGet, "/api/locations?lat=52.52&lng=13.40", "")
	require.NoError(t, env.DecodeData(func(d *jx.Decoder) (err error) {
		list, err = api.DecodeNearby(d)
		return err
	}))
	assert.Equal(t, "downtown", list[0].ID)
	assert.True(t, list[0].WithinDeliveryRadius)

	env = serve(t, h, http.MethodGet, "/api/locations", "")
	require.Equal(t, http.StatusOK, env.StatusCode)

	for _, q := range []string{"lat=abc&lng=1", "lat=91&lng=0", "lat=10"} {
		env = serve(t, h, http.MethodGet, "/api/locations?"+q, "")
		assert.Equal(t, http.StatusBadRequest, env.StatusCode, q)
	}
}

func TestBodyLimit(t *testing.T) {
	f := newFixture()
	f.handler.maxBody = 16
	env := serve(t, f.handler.Router(), http.MethodPost, "/api/cart", addMargherita)
	assert.Equal(t, http.StatusBadRequest, env.StatusCode)
	assert.Equal(t, "request body too large", env.ErrorMessage)
}

func TestClientRoundTrip(t *testing.T) {
	srv := httptest.NewServer(newFixture().handler.Router())
	t.Cleanup(srv.Close)

	c, err := backend.New(srv.URL, srv.Client())
	require.NoError(t, err)
	ctx := context.Background()

	it, err := c.AddCartItem(ctx, cart.Item{SessionID: "s1", ProductID: "margherita", Quantity: 1})
	require.NoError(t, err)
	require.NotEmpty(t, it.ID)

	sum, err := c.Summary(ctx, pricing.Request{CartIDs: []string{it.ID}, StoreID: "downtown", DeliveryType: delivery.Pickup})
	require.NoError(t, err)
	assert.Equal(t, "11", sum.Total.String())

	p, err := c.Product(ctx, "tiramisu")
	require.NoError(t, err)
	assert.True(t, p.Supports(delivery.DineIn))
	assert.False(t, p.Supports(delivery.Delivery))

	err = c.RemoveCartItem(ctx, "item-404")
	f := backend.AsFailure(err)
	assert.Equal(t, backend.KindDomain, f.Kind)
	assert.Equal(t, http.StatusNotFound, f.StatusCode)
	assert.Equal(t, "Cart item not found", f.Message)
}
