// Package cache provides the generic caching tiers that sit in front of
// sequence computation: a bounded in-process LRU, and Redis or Firestore
// stores shared between replicas.
package cache

import (
	"context"
	"errors"
	"io"
)

// ErrMiss is wrapped by Store implementations when a key is absent.
var ErrMiss = errors.New("cache miss")

// Fetcher produces a value for a key, typically by consulting a cache and
// falling back to a slower source.
type Fetcher[K any, V any] interface {
	Fetch(ctx context.Context, key K) (V, error)
	io.Closer
}

// FetcherFunc adapts a function to the Fetcher interface. Close is a no-op.
type FetcherFunc[K any, V any] func(ctx context.Context, key K) (V, error)

// Fetch implements Fetcher.
func (f FetcherFunc[K, V]) Fetch(ctx context.Context, key K) (V, error) { return f(ctx, key) }

// Close implements io.Closer.
func (f FetcherFunc[K, V]) Close() error { return nil }

// Store is a cache tier that is read and written explicitly.
type Store[K any, V any] interface {
	// FetchFromCache retrieves an item, wrapping ErrMiss if it is absent.
	FetchFromCache(ctx context.Context, key K) (V, error)
	// WriteToCache adds an item to the cache.
	WriteToCache(ctx context.Context, key K, value V) error
	io.Closer
}
