package cache

import (
	"fmt"
	"hash/fnv"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// LRUCache is a sharded, in-process least-recently-used cache. It is the
// local tier that internal/authcache consults before Redis for the
// allow-list and configuration-key lookups; it holds only values that
// were read from or written to Redis, each until its TTL expires.
type LRUCache struct {
	shards  []*shard
	config  *Config
	stats   *Stats
	running int32
	stopCh  chan struct{}
	wg      sync.WaitGroup

	globalStats struct {
		hits        int64
		misses      int64
		sets        int64
		gets        int64
		deletes     int64
		evictions   int64
		expirations int64
	}
}

// NewLRUCache creates a cache with config.ShardCount independent shards.
func NewLRUCache(config *Config) *LRUCache {
	if config == nil {
		config = DefaultConfig()
	}

	c := &LRUCache{
		shards: make([]*shard, config.ShardCount),
		config: config,
		stats: &Stats{
			MaxSize:       config.MaxSize,
			MemoryLimitMB: config.MemoryLimitMB,
			CreatedAt:     time.Now().Format(time.RFC3339),
		},
		stopCh: make(chan struct{}),
	}

	for i := 0; i < config.ShardCount; i++ {
		c.shards[i] = newShard(config)
	}

	return c
}

func (c *LRUCache) getShard(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%uint32(c.config.ShardCount)]
}

func (c *LRUCache) Get(key string) (interface{}, bool) {
	defer atomic.AddInt64(&c.globalStats.gets, 1)

	value, exists := c.getShard(key).Get(key)
	if !exists {
		atomic.AddInt64(&c.globalStats.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&c.globalStats.hits, 1)
	return value, true
}

func (c *LRUCache) Set(key string, value interface{}, ttl time.Duration) error {
	defer atomic.AddInt64(&c.globalStats.sets, 1)

	if err := c.getShard(key).Add(key, value, ttl); err != nil {
		return err
	}

	for int64(c.Size()) > c.config.MaxSize {
		if c.EvictLRU(c.config.EvictionBatch) == 0 {
			break
		}
	}
	return nil
}

func (c *LRUCache) Delete(key string) bool {
	defer atomic.AddInt64(&c.globalStats.deletes, 1)
	return c.getShard(key).Remove(key)
}

func (c *LRUCache) Clear() error {
	for _, s := range c.shards {
		s.mutex.Lock()
		s.items = make(map[string]*lruNode)
		s.lruList = newLRUList()
		s.mutex.Unlock()
	}

	atomic.StoreInt64(&c.globalStats.hits, 0)
	atomic.StoreInt64(&c.globalStats.misses, 0)
	atomic.StoreInt64(&c.globalStats.sets, 0)
	atomic.StoreInt64(&c.globalStats.gets, 0)
	atomic.StoreInt64(&c.globalStats.deletes, 0)
	atomic.StoreInt64(&c.globalStats.evictions, 0)
	atomic.StoreInt64(&c.globalStats.expirations, 0)
	return nil
}

func (c *LRUCache) GetBatch(keys []string) map[string]interface{} {
	result := make(map[string]interface{})
	for _, key := range keys {
		if value, exists := c.Get(key); exists {
			result[key] = value
		}
	}
	return result
}

func (c *LRUCache) SetBatch(items map[string]Item) error {
	for key, item := range items {
		ttl := time.Until(item.ExpiresAt)
		if ttl < 0 {
			ttl = c.config.DefaultTTL
		}
		if err := c.Set(key, item.Value, ttl); err != nil {
			return fmt.Errorf("failed to set key %s: %w", key, err)
		}
	}
	return nil
}

func (c *LRUCache) DeleteBatch(keys []string) int {
	deleted := 0
	for _, key := range keys {
		if c.Delete(key) {
			deleted++
		}
	}
	return deleted
}

func (c *LRUCache) Exists(key string) bool {
	_, exists := c.Get(key)
	return exists
}

func (c *LRUCache) Keys() []string {
	var keys []string
	for _, s := range c.shards {
		s.mutex.RLock()
		for key := range s.items {
			keys = append(keys, key)
		}
		s.mutex.RUnlock()
	}
	return keys
}

func (c *LRUCache) Size() int {
	total := 0
	for _, s := range c.shards {
		s.mutex.RLock()
		total += len(s.items)
		s.mutex.RUnlock()
	}
	return total
}

func (c *LRUCache) GetStats() *Stats {
	stats := &Stats{
		TotalItems:    int64(c.Size()),
		TotalSize:     c.GetMemoryUsage(),
		MaxSize:       c.stats.MaxSize,
		MemoryLimitMB: c.stats.MemoryLimitMB,
		Hits:          atomic.LoadInt64(&c.globalStats.hits),
		Misses:        atomic.LoadInt64(&c.globalStats.misses),
		Sets:          atomic.LoadInt64(&c.globalStats.sets),
		Gets:          atomic.LoadInt64(&c.globalStats.gets),
		Deletes:       atomic.LoadInt64(&c.globalStats.deletes),
		Evictions:     atomic.LoadInt64(&c.globalStats.evictions),
		Expirations:   atomic.LoadInt64(&c.globalStats.expirations),
		CreatedAt:     c.stats.CreatedAt,
		LastCleanup:   c.stats.LastCleanup,
		AvgGetTime:    c.stats.AvgGetTime,
		AvgSetTime:    c.stats.AvgSetTime,
	}

	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

func (c *LRUCache) GetMemoryUsage() int64 {
	var total int64
	for _, s := range c.shards {
		s.mutex.RLock()
		for _, node := range s.items {
			total += node.Item.Size
		}
		s.mutex.RUnlock()
	}
	return total
}

// EvictLRU evicts up to count items, taking each shard's least recently
// used tail in shard order, at most count/len(shards) (minimum 1) per
// shard. Recency is tracked per shard, not across the whole cache.
func (c *LRUCache) EvictLRU(count int) int {
	evicted := 0

	perShard := count / len(c.shards)
	if perShard == 0 {
		perShard = 1
	}

	for _, s := range c.shards {
		s.mutex.Lock()
		for i := 0; i < perShard && s.lruList.Size() > 0 && evicted < count; i++ {
			if node := s.lruList.RemoveTail(); node != nil {
				delete(s.items, node.Key)
				evicted++
				atomic.AddInt64(&c.globalStats.evictions, 1)
			}
		}
		s.mutex.Unlock()
	}

	return evicted
}

func (c *LRUCache) EvictExpired() int {
	expired := 0
	for _, s := range c.shards {
		s.mutex.Lock()
		var expiredKeys []string
		for key, node := range s.items {
			if node.Item.IsExpired() {
				expiredKeys = append(expiredKeys, key)
			}
		}
		for _, key := range expiredKeys {
			if node, exists := s.items[key]; exists {
				delete(s.items, key)
				s.lruList.RemoveNode(node)
				expired++
				atomic.AddInt64(&c.globalStats.expirations, 1)
			}
		}
		s.mutex.Unlock()
	}
	c.stats.LastCleanup = time.Now()
	return expired
}

// Start launches the background cleanup goroutine.
func (c *LRUCache) Start() error {
	if !atomic.CompareAndSwapInt32(&c.running, 0, 1) {
		return fmt.Errorf("cache is already running")
	}
	c.wg.Add(1)
	go c.cleanupWorker()
	return nil
}

func (c *LRUCache) Stop() error {
	if !atomic.CompareAndSwapInt32(&c.running, 1, 0) {
		return fmt.Errorf("cache is not running")
	}
	close(c.stopCh)
	c.wg.Wait()
	return nil
}

func (c *LRUCache) IsRunning() bool {
	return atomic.LoadInt32(&c.running) == 1
}

func (c *LRUCache) cleanupWorker() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.EvictExpired()
			c.checkMemoryPressure()
		case <-c.stopCh:
			return
		}
	}
}

// checkMemoryPressure proactively evicts 20% of entries once usage crosses
// 80% of the configured memory limit.
func (c *LRUCache) checkMemoryPressure() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	memoryUsageMB := c.GetMemoryUsage() / (1024 * 1024)
	if memoryUsageMB > c.config.MemoryLimitMB*8/10 {
		if evictCount := c.Size() / 5; evictCount > 0 {
			c.EvictLRU(evictCount)
		}
	}
}
