package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"tourhub/pkg/logger"
	"tourhub/pkg/model"
)

// TenantCache memoizes tenant resolution. Entries are keyed by the lookup
// that produced them (id, slug or host) and indexed per tenant so an update
// can drop them all.
type TenantCache interface {
	Get(ctx context.Context, key string) (*model.Tenant, bool)
	Set(ctx context.Context, key string, t *model.Tenant)
	Invalidate(ctx context.Context, tenantID string)
}

type RedisTenantCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisTenantCache(client *redis.Client, prefix string, ttl time.Duration, log *logger.Logger) *RedisTenantCache {
	return &RedisTenantCache{
		client: client,
		prefix: prefix + "tenant:",
		ttl:    ttl,
		log:    log,
	}
}

func (c *RedisTenantCache) entryKey(key string) string {
	return c.prefix + "lookup:" + key
}

func (c *RedisTenantCache) indexKey(tenantID string) string {
	return c.prefix + "keys:" + tenantID
}

func (c *RedisTenantCache) Get(ctx context.Context, key string) (*model.Tenant, bool) {
	raw, err := c.client.Get(ctx, c.entryKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("tenant cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var t model.Tenant
	if err := json.Unmarshal(raw, &t); err != nil {
		c.log.Warn("tenant cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return &t, true
}

func (c *RedisTenantCache) Set(ctx context.Context, key string, t *model.Tenant) {
	raw, err := json.Marshal(t)
	if err != nil {
		c.log.Warn("failed to encode tenant for cache", "key", key, "error", err)
		return
	}

	index := c.indexKey(t.ID.Hex())
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.entryKey(key), raw, c.ttl)
	pipe.SAdd(ctx, index, key)
	pipe.Expire(ctx, index, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("tenant cache write failed", "key", key, "error", err)
	}
}

func (c *RedisTenantCache) Invalidate(ctx context.Context, tenantID string) {
	index := c.indexKey(tenantID)
	keys, err := c.client.SMembers(ctx, index).Result()
	if err != nil {
		c.log.Warn("tenant cache index read failed", "tenant_id", tenantID, "error", err)
		return
	}

	toDelete := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		toDelete = append(toDelete, c.entryKey(k))
	}
	toDelete = append(toDelete, index)
	if err := c.client.Del(ctx, toDelete...).Err(); err != nil {
		c.log.Warn("tenant cache invalidation failed", "tenant_id", tenantID, "error", err)
	}
}

// NoopTenantCache is used when Redis is not configured.
type NoopTenantCache struct{}

func (NoopTenantCache) Get(context.Context, string) (*model.Tenant, bool) { return nil, false }
func (NoopTenantCache) Set(context.Context, string, *model.Tenant)        {}
func (NoopTenantCache) Invalidate(context.Context, string)                {}
