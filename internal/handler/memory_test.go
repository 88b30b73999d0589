package handler

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/xenking/pizza-cart/internal/domain/address"
	"github.com/xenking/pizza-cart/internal/domain/cart"
	"github.com/xenking/pizza-cart/internal/domain/delivery"
	"github.com/xenking/pizza-cart/internal/domain/discount"
	"github.com/xenking/pizza-cart/internal/domain/location"
	"github.com/xenking/pizza-cart/internal/domain/pricing"
	"github.com/xenking/pizza-cart/internal/domain/product"
)

type memProducts struct {
	list []product.Product
}

func (m *memProducts) List(context.Context) ([]product.Product, error) {
	return slices.Clone(m.list), nil
}

func (m *memProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	for _, p := range m.list {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *memProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.list {
		if slices.Contains(ids, p.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}

type memItems struct {
	mu    sync.Mutex
	seq   int
	items []cart.Item
}

func (m *memItems) ListBySession(_ context.Context, sessionID string) ([]cart.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []cart.Item
	for _, it := range m.items {
		if it.SessionID == sessionID {
			out = append(out, it.Clone())
		}
	}
	return out, nil
}

func (m *memItems) GetByIDs(_ context.Context, ids []string) ([]cart.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []cart.Item
	for _, it := range m.items {
		if slices.Contains(ids, it.ID) {
			out = append(out, it.Clone())
		}
	}
	return out, nil
}

func (m *memItems) Create(_ context.Context, it *cart.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	it.ID = "item-" + strconv.Itoa(m.seq)
	m.items = append(m.items, it.Clone())
	return nil
}

func (m *memItems) Update(_ context.Context, it *cart.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == it.ID {
			m.items[i] = it.Clone()
			return nil
		}
	}
	return cart.ErrItemNotFound
}

func (m *memItems) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = slices.Delete(m.items, i, i+1)
			return nil
		}
	}
	return cart.ErrItemNotFound
}

type memAddresses struct {
	mu   sync.Mutex
	seq  int
	list []address.Address
}

func (m *memAddresses) ListBySession(_ context.Context, sessionID string) ([]address.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []address.Address
	for _, a := range m.list {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAddresses) GetByID(_ context.Context, id string) (*address.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.list {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, address.ErrNotFound
}

func (m *memAddresses) Create(_ context.Context, a *address.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	a.ID = "addr-" + strconv.Itoa(m.seq)
	m.list = append(m.list, *a)
	return nil
}

func (m *memAddresses) Update(_ context.Context, a *address.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.list {
		if m.list[i].ID == a.ID {
			m.list[i] = *a
			return nil
		}
	}
	return address.ErrNotFound
}

func (m *memAddresses) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.list {
		if m.list[i].ID == id {
			m.list = slices.Delete(m.list, i, i+1)
			return nil
		}
	}
	return address.ErrNotFound
}

type memLocations struct {
	list []location.Location
}

func (m *memLocations) List(context.Context) ([]location.Location, error) {
	return slices.Clone(m.list), nil
}

func (m *memLocations) GetByID(_ context.Context, id string) (*location.Location, error) {
	for _, l := range m.list {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, location.ErrNotFound
}

type memDiscounts struct {
	rules []discount.Rule
}

func (m *memDiscounts) ListActive(context.Context) ([]discount.Rule, error) {
	return slices.Clone(m.rules), nil
}

func (m *memDiscounts) GetByIDs(_ context.Context, ids []string) ([]discount.Rule, error) {
	var out []discount.Rule
	for _, r := range m.rules {
		if slices.Contains(ids, r.ID) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fixture struct {
	products  *memProducts
	items     *memItems
	addresses *memAddresses
	handler   *Handler
}

func newFixture() *fixture {
	d := decimal.RequireFromString
	products := &memProducts{list: []product.Product{
		{
			ID:                     "margherita",
			Name:                   "Margherita",
			Category:               "Pizza",
			Price:                  d("10.00"),
			Variants:               []product.Variant{{ID: "large", Name: "Large", PriceDelta: d("3.00")}},
			Addons:                 []product.Addon{{ID: "olives", Name: "Olives", Price: d("1.50")}},
			AvailableDeliveryTypes: delivery.NewSet(delivery.Delivery, delivery.Pickup),
			Image:                  product.Image{Thumbnail: "/img/margherita-thumb.jpg"},
		},
		{
			ID:                     "tiramisu",
			Name:                   "Tiramisu",
			Category:               "Dessert",
			Price:                  d("6.00"),
			AvailableDeliveryTypes: delivery.NewSet(delivery.DineIn),
		},
	}}
	locations := &memLocations{list: []location.Location{
		{
			ID:               "downtown",
			Name:             "Downtown",
			Lat:              52.5200,
			Lng:              13.4050,
			DeliveryTypes:    delivery.NewSet(delivery.Delivery, delivery.Pickup, delivery.DineIn),
			DeliveryRadiusKm: 5,
			DeliveryFee:      d("4.00"),
			TaxRate:          d("0.10"),
		},
		{
			ID:            "airport",
			Name:          "Airport",
			Lat:           52.3667,
			Lng:           13.5033,
			DeliveryTypes: delivery.NewSet(delivery.Pickup),
			TaxRate:       d("0.10"),
		},
	}}
	discounts := &memDiscounts{rules: []discount.Rule{
		{ID: "d-ten", Code: "TENOFF", Type: discount.Percentage, Value: d("10"), Description: "10% off"},
		{ID: "d-big", Code: "BIGORDER", Type: discount.Fixed, Value: d("5"), MinSubtotal: d("100")},
	}}
	items := &memItems{}
	addresses := &memAddresses{}

	svc := pricing.NewService(items, products, locations, addresses, discount.NewFinder(discounts))
	return &fixture{
		products:  products,
		items:     items,
		addresses: addresses,
		handler:   NewHandler(Config{ImageBaseURL: "https://cdn.test"}, products, items, addresses, locations, svc),
	}
}
