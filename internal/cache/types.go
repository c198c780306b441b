package cache

import (
	"sync"
	"time"
)

// Cache is a generic key/value store used for the allow-list and
// configuration-key caches.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration) error
	Delete(key string) bool
	Start() error
	Stop() error
}

// Config controls shard count and eviction behaviour.
type Config struct {
	Capacity        int
	ShardCount      int
	MaxSize         int64
	MemoryLimitMB   int64
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	EvictionBatch   int
	EnableMetrics   bool
}

// DefaultConfig returns sane defaults for a small allow-list/config cache.
func DefaultConfig() *Config {
	return &Config{
		Capacity:        10000,
		ShardCount:      16,
		MaxSize:         10 * 1024 * 1024,
		MemoryLimitMB:   32,
		DefaultTTL:      1 * time.Hour,
		CleanupInterval: 1 * time.Minute,
		EvictionBatch:   100,
		EnableMetrics:   true,
	}
}

// Stats reports cache-wide counters.
type Stats struct {
	TotalItems    int64
	TotalSize     int64
	MaxSize       int64
	MemoryLimitMB int64
	Hits          int64
	Misses        int64
	Sets          int64
	Gets          int64
	Deletes       int64
	Evictions     int64
	Expirations   int64
	CreatedAt     string
	LastCleanup   time.Time
	AvgGetTime    time.Duration
	AvgSetTime    time.Duration
	HitRate       float64
}

// Item is one cache entry.
type Item struct {
	Key         string
	Value       interface{}
	Size        int64
	CreatedAt   time.Time
	AccessAt    time.Time
	ExpiresAt   time.Time
	AccessCount int64
}

func (item *Item) IsExpired() bool {
	return !item.ExpiresAt.IsZero() && time.Now().After(item.ExpiresAt)
}

func (item *Item) UpdateAccess() {
	item.AccessAt = time.Now()
	item.AccessCount++
}

// lruNode is a node in the per-shard doubly-linked LRU list.
type lruNode struct {
	Key  string
	Item *Item
	Prev *lruNode
	Next *lruNode
}

// lruList is a doubly-linked list tracking recency order.
type lruList struct {
	head *lruNode
	tail *lruNode
	size int
}

func newLRUList() *lruList { return &lruList{} }

func (l *lruList) AddToHead(node *lruNode) {
	node.Next = l.head
	node.Prev = nil
	if l.head != nil {
		l.head.Prev = node
	}
	l.head = node
	if l.tail == nil {
		l.tail = node
	}
	l.size++
}

func (l *lruList) MoveToHead(node *lruNode) {
	if node == l.head {
		return
	}
	l.RemoveNode(node)
	l.AddToHead(node)
}

func (l *lruList) RemoveNode(node *lruNode) {
	if node.Prev != nil {
		node.Prev.Next = node.Next
	} else {
		l.head = node.Next
	}
	if node.Next != nil {
		node.Next.Prev = node.Prev
	} else {
		l.tail = node.Prev
	}
	node.Next = nil
	node.Prev = nil
	l.size--
}

func (l *lruList) RemoveTail() *lruNode {
	if l.tail == nil {
		return nil
	}
	node := l.tail
	l.RemoveNode(node)
	return node
}

func (l *lruList) Size() int { return l.size }

// shard is one FNV-hash-selected partition of the cache.
type shard struct {
	items   map[string]*lruNode
	lruList *lruList
	mutex   sync.RWMutex
	config  *Config
}

func newShard(config *Config) *shard {
	return &shard{
		items:   make(map[string]*lruNode),
		lruList: newLRUList(),
		config:  config,
	}
}

func (s *shard) Add(key string, value interface{}, ttl time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()
	item := &Item{
		Key:         key,
		Value:       value,
		CreatedAt:   now,
		AccessAt:    now,
		AccessCount: 1,
		Size:        estimateSize(value),
	}
	if ttl > 0 {
		item.ExpiresAt = now.Add(ttl)
	}

	if existing, ok := s.items[key]; ok {
		existing.Item = item
		s.lruList.MoveToHead(existing)
		return nil
	}

	node := &lruNode{Key: key, Item: item}
	s.items[key] = node
	s.lruList.AddToHead(node)
	return nil
}

func (s *shard) Get(key string) (interface{}, bool) {
	s.mutex.RLock()
	node, exists := s.items[key]
	if !exists {
		s.mutex.RUnlock()
		return nil, false
	}
	if node.Item.IsExpired() {
		s.mutex.RUnlock()
		s.mutex.Lock()
		delete(s.items, key)
		s.lruList.RemoveNode(node)
		s.mutex.Unlock()
		return nil, false
	}
	s.lruList.MoveToHead(node)
	node.Item.UpdateAccess()
	value := node.Item.Value
	s.mutex.RUnlock()
	return value, true
}

func (s *shard) Remove(key string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if node, ok := s.items[key]; ok {
		delete(s.items, key)
		s.lruList.RemoveNode(node)
		return true
	}
	return false
}

func (s *shard) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.items)
}

func estimateSize(value interface{}) int64 {
	switch v := value.(type) {
	case string:
		return int64(len(v))
	case []byte:
		return int64(len(v))
	case int, int32, int64, float32, float64:
		return 8
	case bool:
		return 1
	default:
		return 256
	}
}
