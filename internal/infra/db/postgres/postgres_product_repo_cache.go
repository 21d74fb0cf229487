package postgres

import (
	"context"
	"encoding/json"
	"time"

	"telegram-prediction-backend/internal/domain/model"
	"telegram-prediction-backend/internal/domain/ports/repository"
	"telegram-prediction-backend/internal/infra/metrics"
	infraRedis "telegram-prediction-backend/internal/infra/redis"
)

var _ repository.ProductRepository = (*cachedProductRepo)(nil)

// cachedProductRepo decorates a ProductRepository with a Redis read cache.
// The catalog is small and nearly static, so list and single-row reads are
// cached under a TTL and writes drop every catalog key. Reads inside a
// transaction bypass the cache: a tx caller wants current rows, not a
// snapshot from before its own writes.
type cachedProductRepo struct {
	inner repository.ProductRepository
	cache infraRedis.RedisClient
	ttl   time.Duration
}

func NewCachedProductRepo(inner repository.ProductRepository, cache infraRedis.RedisClient, ttl time.Duration) *cachedProductRepo {
	return &cachedProductRepo{inner: inner, cache: cache, ttl: ttl}
}

const cacheName = "product"

var productCacheKeys = []string{
	"catalog:all",
	"catalog:nonladder",
	"catalog:firstrung",
}

func cacheGet[T any](ctx context.Context, c *cachedProductRepo, key string, out *T) bool {
	raw, err := c.cache.Get(ctx, key)
	if err != nil || raw == "" {
		metrics.IncCacheRequest(cacheName, "miss")
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		metrics.IncCacheRequest(cacheName, "miss")
		return false
	}
	metrics.IncCacheRequest(cacheName, "hit")
	return true
}

func cachePut(ctx context.Context, c *cachedProductRepo, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.cache.Set(ctx, key, string(raw), c.ttl)
}

func (c *cachedProductRepo) invalidate(ctx context.Context, p *model.Product) {
	keys := append([]string{}, productCacheKeys...)
	if p != nil {
		keys = append(keys, "catalog:id:"+p.ID, "catalog:slug:"+p.Slug)
	}
	_ = c.cache.Del(ctx, keys...)
}

func (c *cachedProductRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	if tx != nil {
		return c.inner.FindByID(ctx, tx, id)
	}
	key := "catalog:id:" + id
	var cached model.Product
	if cacheGet(ctx, c, key, &cached) {
		return &cached, nil
	}
	p, err := c.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	cachePut(ctx, c, key, p)
	return p, nil
}

func (c *cachedProductRepo) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Product, error) {
	if tx != nil {
		return c.inner.FindBySlug(ctx, tx, slug)
	}
	key := "catalog:slug:" + slug
	var cached model.Product
	if cacheGet(ctx, c, key, &cached) {
		return &cached, nil
	}
	p, err := c.inner.FindBySlug(ctx, tx, slug)
	if err != nil {
		return nil, err
	}
	cachePut(ctx, c, key, p)
	return p, nil
}

func (c *cachedProductRepo) FirstLadderRung(ctx context.Context, tx repository.Tx) (*model.Product, error) {
	if tx != nil {
		return c.inner.FirstLadderRung(ctx, tx)
	}
	var cached model.Product
	if cacheGet(ctx, c, "catalog:firstrung", &cached) {
		return &cached, nil
	}
	p, err := c.inner.FirstLadderRung(ctx, tx)
	if err != nil {
		return nil, err
	}
	cachePut(ctx, c, "catalog:firstrung", p)
	return p, nil
}

func (c *cachedProductRepo) ListNonLadder(ctx context.Context, tx repository.Tx) ([]*model.Product, error) {
	if tx != nil {
		return c.inner.ListNonLadder(ctx, tx)
	}
	var cached []*model.Product
	if cacheGet(ctx, c, "catalog:nonladder", &cached) {
		return cached, nil
	}
	out, err := c.inner.ListNonLadder(ctx, tx)
	if err != nil {
		return nil, err
	}
	cachePut(ctx, c, "catalog:nonladder", out)
	return out, nil
}

func (c *cachedProductRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Product, error) {
	if tx != nil {
		return c.inner.ListAll(ctx, tx)
	}
	var cached []*model.Product
	if cacheGet(ctx, c, "catalog:all", &cached) {
		return cached, nil
	}
	out, err := c.inner.ListAll(ctx, tx)
	if err != nil {
		return nil, err
	}
	cachePut(ctx, c, "catalog:all", out)
	return out, nil
}

func (c *cachedProductRepo) Save(ctx context.Context, tx repository.Tx, p *model.Product) error {
	if err := c.inner.Save(ctx, tx, p); err != nil {
		return err
	}
	c.invalidate(ctx, p)
	return nil
}

func (c *cachedProductRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	// Fetch first so the slug key can be dropped along with the id key.
	p, _ := c.inner.FindByID(ctx, tx, id)
	if err := c.inner.Delete(ctx, tx, id); err != nil {
		return err
	}
	if p == nil {
		p = &model.Product{ID: id}
	}
	c.invalidate(ctx, p)
	return nil
}
