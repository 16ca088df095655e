package reflector

import (
	"container/list"
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// shardCount is the number of shards a CachingReflector splits its entries
// across to reduce lock contention under concurrent compiles. Must be a
// power of 2 so shard selection is a bitwise AND.
const shardCount = 16

const shardMask = shardCount - 1

// hashSource computes an FNV-1a hash of WGSL source bytes for shard
// selection and cache keying.
func hashSource(wgsl []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(wgsl) // Write on an fnv hash never errors
	return h.Sum64()
}

// reflectionShard is one shard of a CachingReflector: an LRU-bounded map
// from source hash to reflection result, its own mutex for reduced
// contention. The eviction list uses container/list rather than a
// hand-rolled intrusive list; the source the sharding/eviction structure
// is adapted from shipped a cache_test.go exercising an lruList type but
// not the type itself, so the eviction policy is reimplemented here on
// the standard library's doubly linked list instead of guessing at that
// missing type's exact API.
type reflectionShard struct {
	mu       sync.RWMutex
	entries  map[uint64]*list.Element
	order    *list.List
	capacity int
}

type reflectionEntry struct {
	key   uint64
	value *Reflection
}

// CachingReflector wraps a Reflector and memoizes Reflect results by a
// hash of the input WGSL bytes. The analyzer's size=<shader>.<var>
// auto-sizing (spec.md §6.3) commonly reflects the same #wgsl resource
// once per referencing buffer/bind-group-layout property, so a source
// with many bindings into one shader module would otherwise re-run regex
// reflection repeatedly for identical input.
type CachingReflector struct {
	inner  Reflector
	shards [shardCount]*reflectionShard

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCachingReflector wraps inner with a per-shard LRU cache of the given
// capacity. capacity <= 0 defaults to 256 entries per shard.
func NewCachingReflector(inner Reflector, capacity int) *CachingReflector {
	if capacity <= 0 {
		capacity = 256
	}
	c := &CachingReflector{inner: inner}
	for i := range c.shards {
		c.shards[i] = &reflectionShard{
			entries:  make(map[uint64]*list.Element),
			order:    list.New(),
			capacity: capacity,
		}
	}
	return c
}

func (c *CachingReflector) Reflect(wgsl []byte) (*Reflection, error) {
	key := hashSource(wgsl)
	shard := c.shards[key&shardMask]

	shard.mu.RLock()
	el, ok := shard.entries[key]
	shard.mu.RUnlock()
	if ok {
		shard.mu.Lock()
		shard.order.MoveToFront(el)
		shard.mu.Unlock()
		c.hits.Add(1)
		return el.Value.(*reflectionEntry).value, nil
	}
	c.misses.Add(1)

	refl, err := c.inner.Reflect(wgsl)
	if err != nil {
		return nil, err
	}

	shard.mu.Lock()
	defer shard.mu.Unlock()
	if existing, ok := shard.entries[key]; ok {
		shard.order.MoveToFront(existing)
		return existing.Value.(*reflectionEntry).value, nil
	}
	el = shard.order.PushFront(&reflectionEntry{key: key, value: refl})
	shard.entries[key] = el
	for shard.order.Len() > shard.capacity {
		oldest := shard.order.Back()
		if oldest == nil {
			break
		}
		shard.order.Remove(oldest)
		delete(shard.entries, oldest.Value.(*reflectionEntry).key)
	}
	return refl, nil
}

// CacheStats reports hit/miss counts across all shards, for diagnostics
// logging around compiles that reflect many shaders.
type CacheStats struct {
	Hits, Misses uint64
}

func (c *CachingReflector) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
