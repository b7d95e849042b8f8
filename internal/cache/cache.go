package cache

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// shardCount must be a power of two.
const (
	shardCount = 16
	shardMask  = shardCount - 1
)

// Cache is a sharded LRU keyed by a 64-bit fingerprint. Each entry keeps the
// canonical bytes the fingerprint was computed from, and a lookup only hits
// when those bytes match, so a hash collision costs a miss, never a wrong
// value.
type Cache[V any] struct {
	shards   [shardCount]shard[V]
	capacity int // per shard, 0 means unlimited

	hits       atomic.Uint64
	misses     atomic.Uint64
	evictions  atomic.Uint64
	collisions atomic.Uint64
}

type shard[V any] struct {
	mu      sync.RWMutex
	entries map[uint64]*entry[V]
	lru     lruList
}

type entry[V any] struct {
	canon []byte
	value V
	node  *lruNode
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Len        int
	Capacity   int
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Collisions uint64
}

// HitRate returns hits over lookups, or 0 before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// New creates a cache holding about capacity entries. Capacity is split
// evenly across shards and rounded up; 0 means unlimited.
func New[V any](capacity int) *Cache[V] {
	c := &Cache[V]{}
	if capacity > 0 {
		c.capacity = (capacity + shardCount - 1) / shardCount
	}
	for i := range c.shards {
		c.shards[i].entries = make(map[uint64]*entry[V])
	}
	return c
}

func (c *Cache[V]) shardFor(fp uint64) *shard[V] {
	// fold the high bits in so fingerprints that differ only there spread out
	return &c.shards[(fp^(fp>>32))&shardMask]
}

// Get returns the value stored under fp when its canonical bytes equal canon.
func (c *Cache[V]) Get(fp uint64, canon []byte) (V, bool) {
	s := c.shardFor(fp)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[fp]
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	if !bytes.Equal(e.canon, canon) {
		c.misses.Add(1)
		c.collisions.Add(1)
		var zero V
		return zero, false
	}
	s.lru.MoveToFront(e.node)
	c.hits.Add(1)
	return e.value, true
}

// Put stores value under fp, replacing any entry with the same fingerprint.
// The cache keeps its own copy of canon.
func (c *Cache[V]) Put(fp uint64, canon []byte, value V) {
	s := c.shardFor(fp)
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[fp]; ok {
		e.canon = bytes.Clone(canon)
		e.value = value
		s.lru.MoveToFront(e.node)
		return
	}
	s.entries[fp] = &entry[V]{
		canon: bytes.Clone(canon),
		value: value,
		node:  s.lru.PushFront(fp),
	}
	for c.capacity > 0 && s.lru.Len() > c.capacity {
		old, ok := s.lru.RemoveOldest()
		if !ok {
			break
		}
		delete(s.entries, old)
		c.evictions.Add(1)
	}
}

// Clear drops every entry. Counters are kept.
func (c *Cache[V]) Clear() {
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		s.entries = make(map[uint64]*entry[V])
		s.lru.Clear()
		s.mu.Unlock()
	}
}

// Len returns the number of entries.
func (c *Cache[V]) Len() int {
	n := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// Stats returns a snapshot of the counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Len:        c.Len(),
		Capacity:   c.capacity * shardCount,
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Evictions:  c.evictions.Load(),
		Collisions: c.collisions.Load(),
	}
}
