package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss key 不存在或已過期
var ErrCacheMiss = errors.New("cache miss")

type Cache interface {
	// 基本操作
	Ping(ctx context.Context) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// SetIfExists key 存在時才覆寫, 回傳是否寫入
	SetIfExists(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
}
