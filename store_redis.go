package netident

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces RedisStore records.
const DefaultRedisKeyPrefix = "netident:"

// RedisClient is the subset of go-redis commands used by RedisStore.
//
// *redis.Client and *redis.ClusterClient satisfy it.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps records as plain Redis string keys.
//
// Expiry stays in the sibling records managed by Cache rather than in Redis
// TTLs, so file and Redis backed caches behave identically.
type RedisStore struct {
	client RedisClient
	prefix string
}

// NewRedisStore creates a RedisStore. An empty prefix selects
// DefaultRedisKeyPrefix.
func NewRedisStore(client RedisClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (s *RedisStore) Write(ctx context.Context, name string, data []byte) error {
	return s.client.Set(ctx, s.prefix+name, data, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, name string) error {
	return s.client.Del(ctx, s.prefix+name).Err()
}
