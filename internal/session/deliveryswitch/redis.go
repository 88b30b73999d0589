package deliveryswitch

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/pizza-cart/internal/domain/delivery"
)

// DefaultRedisTTL is the base lifetime of a Redis entry.
const DefaultRedisTTL = 15 * time.Minute

// RedisCache is a Cache shared between processes. Entries expire after the
// base TTL plus up to a minute of jitter so that products cached together do
// not all expire together.
type RedisCache struct {
	client  redis.UniversalClient
	baseTTL time.Duration
	prefix  string
}

// NewRedisCache creates a RedisCache. A non-positive ttl selects
// DefaultRedisTTL.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisCache{
		client:  client,
		baseTTL: ttl,
		prefix:  "pizza:delivery-support:",
	}
}

func (r *RedisCache) key(productID string) string {
	return r.prefix + productID
}

func (r *RedisCache) Get(ctx context.Context, productID string) (delivery.Set, error) {
	v, err := r.client.Get(ctx, r.key(productID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}
	if v == "" {
		return delivery.NewSet(), nil
	}
	s, err := delivery.ParseSet(strings.Split(v, ","))
	if err != nil {
		return nil, errors.Wrapf(err, "decode cached entry for %s", productID)
	}
	return s, nil
}

func (r *RedisCache) Set(ctx context.Context, productID string, types delivery.Set) error {
	jitter := time.Duration(rand.Int64N(int64(time.Minute)))
	v := strings.Join(types.Strings(), ",")
	if err := r.client.Set(ctx, r.key(productID), v, r.baseTTL+jitter).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}
