package businessflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/amirphl/Tarazu/config"
	"github.com/amirphl/Tarazu/models"
	"github.com/amirphl/Tarazu/utils"
	"github.com/redis/go-redis/v9"
)

// CatalogCache keeps a snapshot of the active rulesets with their groups and
// rules so hot pricing paths skip the catalog walk. A backend failure
// surfaces as a miss; callers fall back to the repository.
type CatalogCache interface {
	GetActiveRulesets(ctx context.Context) ([]*models.Ruleset, bool)
	SetActiveRulesets(ctx context.Context, rulesets []*models.Ruleset)
	Invalidate(ctx context.Context)
}

// NewCatalogCache picks the cache backend from configuration. Redis is used
// when configured and a client is supplied, otherwise an in-process TTL
// cache serves single-node deployments and tests.
func NewCatalogCache(cacheConfig *config.CacheConfig, rc *redis.Client, logger *slog.Logger) CatalogCache {
	ttl := utils.DefaultCatalogCacheTTL
	if cacheConfig != nil && cacheConfig.DefaultTTL > 0 {
		ttl = cacheConfig.DefaultTTL
	}
	if cacheConfig != nil && cacheConfig.Enabled && cacheConfig.Provider == "redis" && rc != nil {
		return NewRedisCatalogCache(rc, cacheConfig, ttl, logger)
	}
	return NewMemoryCatalogCache(ttl)
}

func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}

// RedisCatalogCache stores the snapshot as one JSON blob under a prefixed key
type RedisCatalogCache struct {
	rc          *redis.Client
	cacheConfig *config.CacheConfig
	ttl         time.Duration
	logger      *slog.Logger
}

func NewRedisCatalogCache(rc *redis.Client, cacheConfig *config.CacheConfig, ttl time.Duration, logger *slog.Logger) *RedisCatalogCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCatalogCache{rc: rc, cacheConfig: cacheConfig, ttl: ttl, logger: logger}
}

func (c *RedisCatalogCache) GetActiveRulesets(ctx context.Context) ([]*models.Ruleset, bool) {
	key := redisKey(*c.cacheConfig, utils.ActiveRulesetsCacheKey)
	bs, err := c.rc.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("catalog cache read failed", "error", err)
		return nil, false
	}

	var rulesets []*models.Ruleset
	if err := json.Unmarshal(bs, &rulesets); err != nil {
		c.logger.Warn("catalog cache payload corrupt, dropping", "error", err)
		_ = c.rc.Del(ctx, key).Err()
		return nil, false
	}
	return rulesets, true
}

func (c *RedisCatalogCache) SetActiveRulesets(ctx context.Context, rulesets []*models.Ruleset) {
	bs, err := json.Marshal(rulesets)
	if err != nil {
		c.logger.Warn("catalog cache marshal failed", "error", err)
		return
	}
	key := redisKey(*c.cacheConfig, utils.ActiveRulesetsCacheKey)
	if err := c.rc.Set(ctx, key, bs, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", "error", err)
	}
}

func (c *RedisCatalogCache) Invalidate(ctx context.Context) {
	key := redisKey(*c.cacheConfig, utils.ActiveRulesetsCacheKey)
	if err := c.rc.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("catalog cache invalidate failed", "error", err)
	}
}

// MemoryCatalogCache is an in-process snapshot with expiry. Snapshots are
// treated as read-only by the evaluator, so entries are shared, not copied.
type MemoryCatalogCache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	snapshot  []*models.Ruleset
	populated bool
	expiresAt time.Time
}

func NewMemoryCatalogCache(ttl time.Duration) *MemoryCatalogCache {
	return &MemoryCatalogCache{ttl: ttl}
}

func (c *MemoryCatalogCache) GetActiveRulesets(ctx context.Context) ([]*models.Ruleset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.populated || utils.UTCNow().After(c.expiresAt) {
		return nil, false
	}
	out := make([]*models.Ruleset, len(c.snapshot))
	copy(out, c.snapshot)
	return out, true
}

func (c *MemoryCatalogCache) SetActiveRulesets(ctx context.Context, rulesets []*models.Ruleset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = rulesets
	c.populated = true
	c.expiresAt = utils.UTCNow().Add(c.ttl)
}

func (c *MemoryCatalogCache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
	c.populated = false
}
