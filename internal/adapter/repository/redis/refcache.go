package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/warely/stockledger/internal/domain"
	"github.com/warely/stockledger/internal/infrastructure/metrics"
	"github.com/warely/stockledger/internal/usecase"
)

// CachedCatalog is a read-through cache over a CatalogRepository. Only
// immutable-ish reference data is cached; balances never pass through
// here because stale stock figures would defeat the locked sufficiency
// checks.
type CachedCatalog struct {
	inner   usecase.CatalogRepository
	cache   usecase.Cache
	ttl     time.Duration
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewCachedCatalog decorates inner with a read-through cache. metrics may
// be nil.
func NewCachedCatalog(inner usecase.CatalogRepository, cache usecase.Cache, ttl time.Duration, logger zerolog.Logger, m *metrics.Metrics) *CachedCatalog {
	return &CachedCatalog{
		inner:   inner,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
		metrics: m,
	}
}

// GetItem retrieves an item, serving from cache when possible. Cache
// failures fall through to the catalog and never fail the lookup.
func (c *CachedCatalog) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	var item domain.Item
	if c.lookup(ctx, "item", "item:"+id, &item) {
		return &item, nil
	}

	fresh, err := c.inner.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	c.store(ctx, "item:"+id, fresh)

	return fresh, nil
}

// GetWarehouse retrieves a warehouse, serving from cache when possible.
func (c *CachedCatalog) GetWarehouse(ctx context.Context, id string) (*domain.Warehouse, error) {
	var warehouse domain.Warehouse
	if c.lookup(ctx, "warehouse", "warehouse:"+id, &warehouse) {
		return &warehouse, nil
	}

	fresh, err := c.inner.GetWarehouse(ctx, id)
	if err != nil {
		return nil, err
	}

	c.store(ctx, "warehouse:"+id, fresh)

	return fresh, nil
}

// InvalidateItem drops a cached item, for callers that change the catalog.
func (c *CachedCatalog) InvalidateItem(ctx context.Context, id string) {
	if err := c.cache.Delete(ctx, "item:"+id); err != nil {
		c.logger.Warn().Err(err).Str("item_id", id).Msg("cache invalidation failed")
	}
}

// InvalidateWarehouse drops a cached warehouse.
func (c *CachedCatalog) InvalidateWarehouse(ctx context.Context, id string) {
	if err := c.cache.Delete(ctx, "warehouse:"+id); err != nil {
		c.logger.Warn().Err(err).Str("warehouse_id", id).Msg("cache invalidation failed")
	}
}

func (c *CachedCatalog) lookup(ctx context.Context, kind, key string, target any) bool {
	raw, err := c.cache.Get(ctx, key)
	if err != nil {
		if c.metrics != nil {
			c.metrics.CacheMisses.WithLabelValues(kind).Inc()
		}

		return false
	}

	if err := json.Unmarshal(raw, target); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("corrupt cache entry, refetching")
		return false
	}

	if c.metrics != nil {
		c.metrics.CacheHits.WithLabelValues(kind).Inc()
	}

	return true
}

func (c *CachedCatalog) store(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}

	if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
