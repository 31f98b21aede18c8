package legacy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/sma-records/pkg/config"
)

const (
	orderSuffix = "__order"
	seqSuffix   = "__seq"
)

// NewRedisClient returns a connected Redis client.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping legacy redis %s: %w", addr, err)
	}

	return client, nil
}

// RedisStore keeps legacy values as plain Redis strings under a prefix. A
// sorted set scored by a counter remembers insertion order.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps client. An empty prefix defaults to "legacy:".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "legacy:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) orderKey() string { return s.prefix + orderSuffix }

func (s *RedisStore) seqKey() string { return s.prefix + seqSuffix }

func (s *RedisStore) valueKey(key string) string { return s.prefix + key }

func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.client.ZRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list legacy keys: %w", err)
	}
	return keys, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.valueKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("redis order %s: %w", key, err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.valueKey(key), value, 0)
	// NX keeps the original position of an existing key.
	pipe.ZAddNX(ctx, s.orderKey(), redis.Z{Score: float64(seq), Member: key})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.valueKey(key))
	pipe.ZRem(ctx, s.orderKey(), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *RedisStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
