package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	PoolSize    int           `yaml:"pool_size"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	// CacheTTL of zero keeps entries until Redis evicts them.
	CacheTTL  time.Duration `yaml:"ttl"`
	KeyPrefix string        `yaml:"key_prefix"`
}

// RedisStore shares computed values between replicas. Values are stored as
// JSON under KeyPrefix followed by the key's fmt representation.
type RedisStore[K any, V any] struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

// NewRedisStore connects to Redis and fails if the server does not answer
// a PING.
func NewRedisStore[K any, V any](ctx context.Context, cfg *RedisConfig, logger zerolog.Logger) (*RedisStore[K, V], error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis at %s unreachable: %w", cfg.Addr, err)
	}

	logger = logger.With().Str("component", "RedisStore").Str("redis_address", cfg.Addr).Logger()
	logger.Info().Msg("Connected to Redis.")
	return &RedisStore[K, V]{rdb: rdb, ttl: cfg.CacheTTL, prefix: cfg.KeyPrefix, logger: logger}, nil
}

func (s *RedisStore[K, V]) redisKey(key K) string {
	return s.prefix + fmt.Sprint(key)
}

// FetchFromCache implements Store.
func (s *RedisStore[K, V]) FetchFromCache(ctx context.Context, key K) (V, error) {
	var value V
	rk := s.redisKey(key)
	raw, err := s.rdb.Get(ctx, rk).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return value, fmt.Errorf("redis key %q: %w", rk, ErrMiss)
	case err != nil:
		s.logger.Error().Err(err).Str("key", rk).Msg("Redis GET failed.")
		return value, fmt.Errorf("redis get %q: %w", rk, err)
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		// A value written by an incompatible release is treated as absent
		// so that the caller recomputes and overwrites it.
		s.logger.Warn().Err(err).Str("key", rk).Msg("Discarding undecodable cached value.")
		return value, fmt.Errorf("redis key %q undecodable: %w", rk, ErrMiss)
	}
	return value, nil
}

// WriteToCache implements Store.
func (s *RedisStore[K, V]) WriteToCache(ctx context.Context, key K, value V) error {
	rk := s.redisKey(key)
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for %q: %w", rk, err)
	}
	if err := s.rdb.Set(ctx, rk, raw, s.ttl).Err(); err != nil {
		s.logger.Error().Err(err).Str("key", rk).Msg("Redis SET failed.")
		return fmt.Errorf("redis set %q: %w", rk, err)
	}
	return nil
}

// Invalidate removes key.
func (s *RedisStore[K, V]) Invalidate(ctx context.Context, key K) error {
	return s.rdb.Del(ctx, s.redisKey(key)).Err()
}

// Close releases the connection pool.
func (s *RedisStore[K, V]) Close() error {
	s.logger.Info().Msg("Closing Redis connection pool.")
	return s.rdb.Close()
}
