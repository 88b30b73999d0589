package deliveryswitch

import (
	"context"
	"maps"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/pizza-cart/internal/domain/delivery"
)

// ErrCacheMiss is returned by Cache.Get when a product has no entry.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores the delivery types each product supports, keyed by product id.
type Cache interface {
	Get(ctx context.Context, productID string) (delivery.Set, error)
	Set(ctx context.Context, productID string, types delivery.Set) error
}

// MemoryCache is a session-scoped Cache. Entries never expire; Clear drops
// them all, e.g. when the session ends.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]delivery.Set
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]delivery.Set)}
}

func (c *MemoryCache) Get(_ context.Context, productID string) (delivery.Set, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[productID]
	if !ok {
		return nil, ErrCacheMiss
	}
	return maps.Clone(s), nil
}

func (c *MemoryCache) Set(_ context.Context, productID string, types delivery.Set) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[productID] = maps.Clone(types)
	return nil
}

// Len returns the number of cached products.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}
