package session

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xenking/pizza-cart/internal/api"
	"github.com/xenking/pizza-cart/internal/domain/address"
	"github.com/xenking/pizza-cart/internal/domain/cart"
	"github.com/xenking/pizza-cart/internal/domain/delivery"
	"github.com/xenking/pizza-cart/internal/domain/discount"
	"github.com/xenking/pizza-cart/internal/domain/pricing"
	"github.com/xenking/pizza-cart/internal/domain/product"
	"github.com/xenking/pizza-cart/internal/session/deliveryswitch"
	"github.com/xenking/pizza-cart/internal/session/notify"
)

// memoryBackend is an in-process stand-in for the Backend API.
type memoryBackend struct {
	mu       sync.Mutex
	next     int
	items    []cart.Item
	products map[string]product.Product
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{products: map[string]product.Product{
		"margherita": {ID: "margherita", Price: decimal.NewFromInt(10), AvailableDeliveryTypes: delivery.NewSet(delivery.Delivery, delivery.Pickup)},
		"calzone":    {ID: "calzone", Price: decimal.NewFromInt(12), AvailableDeliveryTypes: delivery.NewSet(delivery.Pickup)},
	}}
}

func (b *memoryBackend) ListCart(_ context.Context, _ string) ([]cart.Item, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]cart.Item(nil), b.items...), nil
}

func (b *memoryBackend) AddCartItem(_ context.Context, it cart.Item) (*cart.Item, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	it.ID = "c" + strconv.Itoa(b.next)
	b.items = append(b.items, it)
	return &it, nil
}

func (b *memoryBackend) UpdateCartItem(_ context.Context, id string, patch api.CartItemPatch) (*cart.Item, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.items {
		if b.items[i].ID == id {
			patch.Apply(&b.items[i])
			it := b.items[i]
			return &it, nil
		}
	}
	return nil, cart.ErrItemNotFound
}

func (b *memoryBackend) RemoveCartItem(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.items {
		if b.items[i].ID == id {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return nil
		}
	}
	return cart.ErrItemNotFound
}

func (b *memoryBackend) ApplicableDiscounts(context.Context, pricing.ApplicableRequest) ([]discount.Rule, error) {
	return []discount.Rule{{ID: "d1", Code: "WELCOME"}}, nil
}

func (b *memoryBackend) CreateAddress(_ context.Context, a address.Address) (*address.Address, error) {
	a.ID = "addr-1"
	return &a, nil
}

func (b *memoryBackend) DeleteAddress(context.Context, string) error { return nil }

func (b *memoryBackend) Summary(_ context.Context, req pricing.Request) (*pricing.Summary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := decimal.Zero
	for _, id := range req.CartIDs {
		for _, it := range b.items {
			if it.ID == id {
				p := b.products[it.ProductID]
				total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
			}
		}
	}
	return &pricing.Summary{Subtotal: total, Total: total, DeliveryType: req.DeliveryType}, nil
}

func (b *memoryBackend) Product(_ context.Context, id string) (*product.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func TestSession_Flow(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	backend := newMemoryBackend()
	cache := deliveryswitch.NewMemoryCache()

	s, err := New(Config{
		SessionID:    "s1",
		StoreID:      "store-1",
		DeliveryType: delivery.Pickup,
	}, backend, Options{
		Notifier:     NewLogNotifier(zap.New(core)),
		SupportCache: cache,
		Clock:        clockwork.NewFakeClock(),
	})
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.True(t, s.Load(ctx).Success)
	s.Store.SetDeliveryType(delivery.Pickup)

	require.True(t, s.Hooks.AddToCart(ctx, cart.Item{ProductID: "margherita", Quantity: 2}).Success)
	require.True(t, s.Hooks.AddToCart(ctx, cart.Item{ProductID: "calzone", Quantity: 1}).Success)
	require.True(t, s.Hooks.ApplyDiscount(ctx, "d1").Success)

	require.NoError(t, s.Summary.Flush(ctx))
	sum := s.Store.Summary()
	require.NotNil(t, sum)
	assert.Equal(t, "32", sum.Total.String())

	// The calzone cannot be delivered.
	st, err := s.Delivery.RequestChange(ctx, delivery.Delivery)
	require.NoError(t, err)
	require.Equal(t, deliveryswitch.PendingConfirmation, st)
	require.NoError(t, s.Delivery.Confirm(ctx))

	assert.Nil(t, s.Store.Summary(), "inputs changed")
	require.NoError(t, s.Summary.Flush(ctx))
	assert.Equal(t, "20", s.Store.Summary().Total.String())
	assert.Equal(t, delivery.Delivery, s.Store.Summary().DeliveryType)
	assert.Equal(t, 2, cache.Len())

	// Load, two adds, discount and the confirmed removal.
	assert.Equal(t, 5, logs.FilterMessage("Operation succeeded").Len())

	s.Close()
	assert.Zero(t, cache.Len())
}

func TestSession_New(t *testing.T) {
	_, err := New(Config{}, newMemoryBackend(), Options{})
	require.Error(t, err)

	_, err = New(Config{StoreID: "s", DeliveryType: "drone"}, newMemoryBackend(), Options{})
	require.ErrorIs(t, err, delivery.ErrUnknownType)

	dine, err := New(Config{StoreID: "s", DeliveryType: "Dine-In"}, newMemoryBackend(), Options{})
	require.NoError(t, err)
	assert.Equal(t, delivery.DineIn, dine.Store.Delivery().Type)
	dine.Close()

	s, err := New(Config{StoreID: "s"}, newMemoryBackend(), Options{Notifier: &notify.Recorder{}})
	require.NoError(t, err)
	defer s.Close()
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, delivery.Delivery, s.Store.Delivery().Type)
	assert.False(t, s.Store.Delivery().Selected)
}
