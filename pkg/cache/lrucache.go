package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

type entry[K comparable, V any] struct {
	key   K
	value V
}

// Stats are cumulative counters of an InMemoryLRUCache.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// InMemoryLRUCache holds at most maxSize values and evicts the least recently
// used one when full. Concurrent misses on one key share a single fallback
// call.
type InMemoryLRUCache[K comparable, V any] struct {
	maxSize  int
	fallback Fetcher[K, V]
	flight   singleflight.Group

	mu    sync.Mutex
	order *list.List // front is most recent
	items map[K]*list.Element

	hits, misses, evictions atomic.Uint64
}

// NewInMemoryLRUCache returns an empty cache. fallback may be nil, in which
// case every miss is reported as ErrMiss.
func NewInMemoryLRUCache[K comparable, V any](maxSize int, fallback Fetcher[K, V]) (*InMemoryLRUCache[K, V], error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("lru size must be positive, got %d", maxSize)
	}
	return &InMemoryLRUCache[K, V]{
		maxSize:  maxSize,
		fallback: fallback,
		order:    list.New(),
		items:    make(map[K]*list.Element),
	}, nil
}

// Fetch implements Fetcher. Fallback errors are returned and not cached.
func (c *InMemoryLRUCache[K, V]) Fetch(ctx context.Context, key K) (V, error) {
	if v, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return v, nil
	}
	c.misses.Add(1)

	var zero V
	if c.fallback == nil {
		return zero, fmt.Errorf("lru key %v: %w", key, ErrMiss)
	}

	res, err, _ := c.flight.Do(fmt.Sprint(key), func() (any, error) {
		// A previous flight may have finished between lookup and Do.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		v, err := c.fallback.Fetch(ctx, key)
		if err != nil {
			return nil, err
		}
		c.store(key, v)
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return res.(V), nil
}

func (c *InMemoryLRUCache[K, V]) lookup(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

func (c *InMemoryLRUCache[K, V]) store(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*entry[K, V]).value = value
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})
	for c.order.Len() > c.maxSize {
		oldest := c.order.Remove(c.order.Back()).(*entry[K, V])
		delete(c.items, oldest.key)
		c.evictions.Add(1)
	}
}

// Invalidate drops a key. It does not cascade to the fallback.
func (c *InMemoryLRUCache[K, V]) Invalidate(_ context.Context, key K) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
	return nil
}

// Len returns the number of cached items.
func (c *InMemoryLRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns the cumulative counters.
func (c *InMemoryLRUCache[K, V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Close closes the fallback.
func (c *InMemoryLRUCache[K, V]) Close() error {
	if c.fallback != nil {
		return c.fallback.Close()
	}
	return nil
}
