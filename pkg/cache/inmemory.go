package cache

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryCache is an unbounded, thread-safe Store. It stands in for a shared
// store when running a single process without Redis.
type InMemoryCache[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
}

// NewInMemoryCache returns an empty store.
func NewInMemoryCache[K comparable, V any]() *InMemoryCache[K, V] {
	return &InMemoryCache[K, V]{data: make(map[K]V)}
}

// FetchFromCache implements Store.
func (c *InMemoryCache[K, V]) FetchFromCache(_ context.Context, key K) (V, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if v, ok := c.data[key]; ok {
		return v, nil
	}
	var zero V
	return zero, fmt.Errorf("memory key %v: %w", key, ErrMiss)
}

// WriteToCache implements Store.
func (c *InMemoryCache[K, V]) WriteToCache(_ context.Context, key K, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

// Invalidate removes key.
func (c *InMemoryCache[K, V]) Invalidate(_ context.Context, key K) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// Len returns the number of stored keys.
func (c *InMemoryCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Close is a no-op.
func (c *InMemoryCache[K, V]) Close() error { return nil }
