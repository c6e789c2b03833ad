package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	productsCacheKey = "catalog:products"
	lastGoodCacheKey = "catalog:products:last-good"
	lastGoodTTL      = 24 * time.Hour
)

// Cache keeps the upstream product list in Redis. Besides the short-lived
// copy it retains the last successful fetch for a day so an upstream outage
// degrades to slightly stale prices instead of the bundled list.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache returns a Cache; a nil client yields a no-op cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool { return c != nil && c.client != nil }

// Products returns the fresh copy, or nil on a miss.
func (c *Cache) Products(ctx context.Context) ([]Product, error) {
	return c.read(ctx, productsCacheKey)
}

// LastGood returns the most recent successful fetch, or nil.
func (c *Cache) LastGood(ctx context.Context) ([]Product, error) {
	return c.read(ctx, lastGoodCacheKey)
}

// Store saves products as both the fresh and the last-good copy.
func (c *Cache) Store(ctx context.Context, products []Product) error {
	if !c.enabled() {
		return nil
	}
	data, err := json.Marshal(products)
	if err != nil {
		return err
	}
	_, err = c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, productsCacheKey, data, c.ttl)
		p.Set(ctx, lastGoodCacheKey, data, lastGoodTTL)
		return nil
	})
	return err
}

// Invalidate drops the fresh copy so the next read goes upstream. The
// last-good copy is kept.
func (c *Cache) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Del(ctx, productsCacheKey).Err()
}

func (c *Cache) read(ctx context.Context, key string) ([]Product, error) {
	if !c.enabled() {
		return nil, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, err
	}
	return products, nil
}
