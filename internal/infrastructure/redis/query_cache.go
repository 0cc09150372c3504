package redis

import (
	"context"
	"time"

	"notification-system/internal/domain"

	"github.com/go-redis/redis/v8"
)

type RedisQueryCache struct {
	client *redis.Client
}

func NewRedisQueryCache(client *redis.Client) *RedisQueryCache {
	return &RedisQueryCache{client: client}
}

func (r *RedisQueryCache) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrCacheMiss
		}
		return nil, err
	}
	return result, nil
}

func (r *RedisQueryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisQueryCache) Invalidate(ctx context.Context, prefix string) error {
	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisQueryCache) Flush(ctx context.Context) error {
	return r.client.FlushDB(ctx).Err()
}
