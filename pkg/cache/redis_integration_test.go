//go:build integration

package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/illmade-knight/go-intseq/pkg/cache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type redisTestValue struct {
	ID   string
	Data []byte
}

// redisAddr returns the address of a disposable Redis, e.g. one started with
// `docker run -p 6379:6379 redis:7`.
func redisAddr(t *testing.T) string {
	t.Helper()
	addr := os.Getenv("INTSEQ_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("INTSEQ_TEST_REDIS_ADDR not set")
	}
	return addr
}

func TestRedisStore_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)
	addr := redisAddr(t)

	cfg := &cache.RedisConfig{
		Addr:      addr,
		CacheTTL:  1 * time.Minute,
		KeyPrefix: "intseq-test:",
	}

	c, err := cache.NewRedisStore[string, redisTestValue](ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	t.Run("Set and Get", func(t *testing.T) {
		key := "test-key-1"
		value := redisTestValue{ID: "test-id", Data: []byte("hello world")}

		err := c.WriteToCache(ctx, key, value)
		require.NoError(t, err)

		retrieved, err := c.FetchFromCache(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, value, retrieved)
	})

	t.Run("Get Miss", func(t *testing.T) {
		_, err := c.FetchFromCache(ctx, "non-existent-key")
		assert.ErrorIs(t, err, cache.ErrMiss)
	})

	t.Run("Invalidate", func(t *testing.T) {
		require.NoError(t, c.WriteToCache(ctx, "gone", redisTestValue{ID: "gone"}))
		require.NoError(t, c.Invalidate(ctx, "gone"))

		_, err := c.FetchFromCache(ctx, "gone")
		assert.ErrorIs(t, err, cache.ErrMiss)
	})

	t.Run("TTL Expires", func(t *testing.T) {
		shortTTLCfg := &cache.RedisConfig{Addr: addr, CacheTTL: 100 * time.Millisecond, KeyPrefix: "intseq-test:"}
		shortCache, err := cache.NewRedisStore[string, redisTestValue](ctx, shortTTLCfg, zerolog.Nop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = shortCache.Close() })

		key := "ttl-key"
		err = shortCache.WriteToCache(ctx, key, redisTestValue{ID: "ttl-id"})
		require.NoError(t, err)

		time.Sleep(150 * time.Millisecond)

		_, err = shortCache.FetchFromCache(ctx, key)
		assert.ErrorIs(t, err, cache.ErrMiss, "Should miss after TTL expires")
	})

	t.Run("Undecodable value is a miss", func(t *testing.T) {
		raw, err := cache.NewRedisStore[string, string](ctx, cfg, zerolog.Nop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = raw.Close() })
		require.NoError(t, raw.WriteToCache(ctx, "mismatch", "not an object"))

		_, err = c.FetchFromCache(ctx, "mismatch")
		assert.ErrorIs(t, err, cache.ErrMiss)
	})

	t.Run("Unreachable server", func(t *testing.T) {
		_, err := cache.NewRedisStore[string, redisTestValue](ctx, &cache.RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond}, zerolog.Nop())
		assert.Error(t, err)
	})
}
