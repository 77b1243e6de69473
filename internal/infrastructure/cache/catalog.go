// Package cache provides a Redis cache-aside decorator for the catalog
// gateway. The catalog is read-mostly, so short TTLs keep the hot product
// lookups off the store; stock freshness does not matter here because the
// inventory ledger is the authoritative stock check at commit time.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domcatalog "github.com/whatseat/fulfillment/internal/domain/catalog"
)

const keyPrefix = "fulfillment:product:"

type CatalogCache struct {
	client *redis.Client
	next   domcatalog.Gateway
	ttl    time.Duration
}

// NewCatalogCache decorates next with a Redis-backed cache. A cache failure
// is never a lookup failure: errors fall through to the inner gateway.
func NewCatalogCache(addr string, next domcatalog.Gateway, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		next:   next,
		ttl:    ttl,
	}
}

func (c *CatalogCache) GetProduct(ctx context.Context, productID string) (*domcatalog.Product, error) {
	key := keyPrefix + productID

	raw, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var p domcatalog.Product
		if err := json.Unmarshal([]byte(raw), &p); err == nil {
			return &p, nil
		}
		// Corrupt entry: drop it and fall through.
		c.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	p, err := c.next.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(p); err == nil {
		c.client.Set(ctx, key, encoded, c.ttl)
	}
	return p, nil
}

// Invalidate drops a product from the cache, e.g. after a vendor-side edit.
func (c *CatalogCache) Invalidate(ctx context.Context, productID string) error {
	if err := c.client.Del(ctx, keyPrefix+productID).Err(); err != nil {
		return fmt.Errorf("cache: invalidate %s: %w", productID, err)
	}
	return nil
}

func (c *CatalogCache) Close() error { return c.client.Close() }
