package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(redisClient *redis.Client, prefix string) *RedisCache {
	return &RedisCache{
		client: redisClient,
		prefix: prefix,
	}
}

var _ Cache = (*RedisCache)(nil)

func (r *RedisCache) setPrefixKey(key string) string {
	if r.prefix == "" {
		return key
	}
	var builder strings.Builder
	builder.Grow(len(r.prefix) + 1 + len(key))
	builder.WriteString(r.prefix)
	builder.WriteString(":")
	builder.WriteString(key)
	return builder.String()
}

func (r *RedisCache) Ping(ctx context.Context) (string, error) {
	res, err := r.client.Ping(ctx).Result()
	return res, wrapRedisError(err)
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, r.setPrefixKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, wrapRedisError(err)
	}
	return b, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return wrapRedisError(r.client.Set(ctx, r.setPrefixKey(key), value, ttl).Err())
}

// SetIfExists SET XX, 避免把已過期的key重新寫回
func (r *RedisCache) SetIfExists(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetXX(ctx, r.setPrefixKey(key), value, ttl).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, wrapRedisError(err)
	}
	return ok, nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return wrapRedisError(r.client.Del(ctx, r.setPrefixKey(key)).Err())
}

func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.setPrefixKey(key)).Result()
	if err != nil {
		return false, wrapRedisError(err)
	}
	return exists > 0, nil
}

// TTL key 不存在時回傳 ErrCacheMiss
func (r *RedisCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := r.client.TTL(ctx, r.setPrefixKey(key)).Result()
	if err != nil {
		return 0, wrapRedisError(err)
	}
	if d == -2 {
		return 0, ErrCacheMiss
	}
	return d, nil
}
