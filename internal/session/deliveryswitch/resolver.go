package deliveryswitch

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/xenking/pizza-cart/internal/domain/cart"
	"github.com/xenking/pizza-cart/internal/domain/delivery"
	"github.com/xenking/pizza-cart/internal/domain/product"
)

// ProductLookup fetches product details.
type ProductLookup interface {
	Product(ctx context.Context, id string) (*product.Product, error)
}

// DefaultConcurrency bounds parallel product lookups.
const DefaultConcurrency = 8

// SupportResolver answers which delivery types a product supports. Results
// are cached; concurrent misses for the same product share one fetch.
type SupportResolver struct {
	products    ProductLookup
	cache       Cache
	concurrency int
	lg          *zap.Logger

	sfg singleflight.Group
}

// NewSupportResolver creates a resolver. A nil cache uses a MemoryCache, a
// nil logger discards output.
func NewSupportResolver(products ProductLookup, cache Cache, lg *zap.Logger) *SupportResolver {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &SupportResolver{
		products:    products,
		cache:       cache,
		concurrency: DefaultConcurrency,
		lg:          lg,
	}
}

// Support returns the delivery types productID supports. An empty set means
// the product is not restricted.
func (r *SupportResolver) Support(ctx context.Context, productID string) (delivery.Set, error) {
	s, err := r.cache.Get(ctx, productID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		r.lg.Warn("Delivery support cache get failed", zap.String("product_id", productID), zap.Error(err))
	}

	v, err, _ := r.sfg.Do(productID, func() (any, error) {
		p, err := r.products.Product(ctx, productID)
		if err != nil {
			return nil, errors.Wrapf(err, "fetch product %s", productID)
		}
		types := p.AvailableDeliveryTypes
		if types == nil {
			types = delivery.NewSet()
		}
		if err := r.cache.Set(ctx, productID, types); err != nil {
			r.lg.Warn("Delivery support cache set failed", zap.String("product_id", productID), zap.Error(err))
		}
		return types, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(delivery.Set), nil
}

// Incompatible returns the items whose product does not support t, in cart
// order. A product whose support cannot be determined counts as compatible.
func (r *SupportResolver) Incompatible(ctx context.Context, items []cart.Item, t delivery.Type) []cart.Item {
	unique := make(map[string]struct{}, len(items))
	for _, it := range items {
		unique[it.ProductID] = struct{}{}
	}

	var (
		mu          sync.Mutex
		unsupported = make(map[string]bool, len(unique))
	)
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for id := range unique {
		g.Go(func() error {
			types, err := r.Support(ctx, id)
			if err != nil {
				// Fail open: an unknown product does not block the switch.
				r.lg.Warn("Delivery support unknown, treating as compatible",
					zap.String("product_id", id),
					zap.Error(err),
				)
				return nil
			}
			if len(types) > 0 && !types.Has(t) {
				mu.Lock()
				unsupported[id] = true
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	var out []cart.Item
	for _, it := range items {
		if unsupported[it.ProductID] {
			out = append(out, it)
		}
	}
	return out
}
