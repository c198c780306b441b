// Package authcache caches the idTag allow-list check and per-charger
// GetConfiguration keys behind Redis, with the adapted sharded LRU from
// internal/cache as a local fallback tier. Grounded on the teacher's
// internal/storage RedisStorage (same Redis client, Ping-on-construct,
// prefix-namespaced keys), repurposed from pod-affinity routing (a
// Non-goal here) to authorization and configuration caching.
package authcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/charging-platform/ocpp-central-system/internal/cache"
	"github.com/charging-platform/ocpp-central-system/internal/config"
)

// AllowList is the authorization surface action handlers consult. It is
// intentionally independent of the wire representation so handlers never
// import Redis directly.
type AllowList interface {
	IsIDTagAllowed(ctx context.Context, idTag string) bool
	ConfigGet(ctx context.Context, chargerID int, key string) (string, bool)
	ConfigSet(ctx context.Context, chargerID int, key, value string)
}

// Cache is the Redis-backed AllowList with a local LRU fallback tier.
// Redis holds the canonical copy; the LRU absorbs read traffic and keeps
// serving IsIDTagAllowed if Redis is briefly unavailable (spec.md §7:
// "Transport and persistence errors are logged and do not abort the
// session").
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	local  cache.Cache

	staticIDTags []string
}

// New builds a Cache, seeding Redis with the compile-time idTag allow-list
// (spec.md §6 "Allow-lists. Compile-time arrays of idTags...").
func New(cfg config.RedisConfig, staticIDTags []string) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("authcache: connect to redis at %s: %w", cfg.Addr, err)
	}

	localCfg := cache.DefaultConfig()
	localCfg.DefaultTTL = cfg.TTL
	c := &Cache{
		client:       client,
		prefix:       cfg.KeyPrefix,
		ttl:          cfg.TTL,
		local:        cache.NewLRUCache(localCfg),
		staticIDTags: staticIDTags,
	}
	c.local.Start()

	for _, tag := range staticIDTags {
		key := c.idTagKey(tag)
		client.Set(ctx, key, "1", 0)
	}
	return c, nil
}

func (c *Cache) idTagKey(idTag string) string {
	return c.prefix + "idtag:" + strings.ToLower(idTag)
}

func (c *Cache) configKey(chargerID int, key string) string {
	return c.prefix + "config:" + strconv.Itoa(chargerID) + ":" + key
}

// IsIDTagAllowed reports membership in the idTag allow-list
// (case-insensitive, per spec.md §4.5 Authorize).
func (c *Cache) IsIDTagAllowed(ctx context.Context, idTag string) bool {
	idTag = strings.ToLower(idTag)
	if v, ok := c.local.Get(c.idTagKey(idTag)); ok {
		return v.(bool)
	}

	_, err := c.client.Get(ctx, c.idTagKey(idTag)).Result()
	allowed := !errors.Is(err, redis.Nil) && err == nil
	c.local.Set(c.idTagKey(idTag), allowed, c.ttl)
	return allowed
}

// ConfigGet returns a previously stored GetConfiguration value for
// chargerID/key (spec.md §4.6's GetConfiguration result handling).
func (c *Cache) ConfigGet(ctx context.Context, chargerID int, key string) (string, bool) {
	k := c.configKey(chargerID, key)
	if v, ok := c.local.Get(k); ok {
		return v.(string), true
	}
	val, err := c.client.Get(ctx, k).Result()
	if err != nil {
		return "", false
	}
	c.local.Set(k, val, c.ttl)
	return val, true
}

// ConfigSet stores a GetConfiguration value, fanning out to both tiers.
func (c *Cache) ConfigSet(ctx context.Context, chargerID int, key, value string) {
	k := c.configKey(chargerID, key)
	c.local.Set(k, value, c.ttl)
	c.client.Set(ctx, k, value, 0)
}

// Close releases the Redis client and stops the local cache's background
// worker.
func (c *Cache) Close() error {
	c.local.Stop()
	return c.client.Close()
}
