package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// FallbackConfig holds configuration for the cache-fallback fetcher.
type FallbackConfig struct {
	CacheWriteTimeout time.Duration
}

// FallbackFetcher uses a cache-then-source strategy over a Store. Values
// fetched from the source are written back to the store in the background.
type FallbackFetcher[K any, V any] struct {
	cacheTimeout time.Duration
	logger       zerolog.Logger
	store        Store[K, V]
	source       Fetcher[K, V]
	pending      sync.WaitGroup
}

// NewFallbackFetcher creates a FallbackFetcher. The store and source are
// closed with the fetcher.
func NewFallbackFetcher[K any, V any](
	cfg *FallbackConfig,
	store Store[K, V],
	source Fetcher[K, V],
	logger zerolog.Logger,
) *FallbackFetcher[K, V] {
	timeout := cfg.CacheWriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FallbackFetcher[K, V]{
		cacheTimeout: timeout,
		logger:       logger.With().Str("component", "FallbackFetcher").Logger(),
		store:        store,
		source:       source,
	}
}

// Fetch returns the stored value, or fetches it from the source. A store
// that fails for reasons other than a miss is bypassed rather than failing
// the request.
func (f *FallbackFetcher[K, V]) Fetch(ctx context.Context, key K) (V, error) {
	var zero V
	value, err := f.store.FetchFromCache(ctx, key)
	if err == nil {
		f.logger.Debug().Str("key", fmt.Sprint(key)).Msg("Cache hit.")
		return value, nil
	}
	miss := errors.Is(err, ErrMiss)
	if !miss {
		f.logger.Warn().Err(err).Str("key", fmt.Sprint(key)).Msg("Cache unavailable, falling back to source.")
	}

	value, err = f.source.Fetch(ctx, key)
	if err != nil {
		return zero, err
	}
	if !miss {
		return value, nil
	}

	f.pending.Add(1)
	go func(k K, v V) {
		defer f.pending.Done()
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.cacheTimeout)
		defer cancel()
		if writeErr := f.store.WriteToCache(writeCtx, k, v); writeErr != nil {
			f.logger.Error().Err(writeErr).Str("key", fmt.Sprint(k)).Msg("Failed to write to cache in background.")
		}
	}(key, value)

	return value, nil
}

// Flush waits for background writes started so far.
func (f *FallbackFetcher[K, V]) Flush() {
	f.pending.Wait()
}

// Close waits for background writes, then closes the store and the source.
func (f *FallbackFetcher[K, V]) Close() error {
	f.pending.Wait()
	if err := f.store.Close(); err != nil {
		f.logger.Error().Err(err).Msg("Error closing cache.")
		return fmt.Errorf("error closing cache: %w", err)
	}
	if err := f.source.Close(); err != nil {
		f.logger.Error().Err(err).Msg("Error closing source.")
		return fmt.Errorf("error closing source: %w", err)
	}
	return nil
}
