package ratelimit

import (
	"context"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
local tokens = tonumber(bucket[1])
local lastRefill = tonumber(bucket[2])

if tokens == nil then
	tokens = capacity
	lastRefill = now
end

local elapsed = (now - lastRefill) / 1000
if elapsed > 0 then
	tokens = math.min(capacity, tokens + elapsed * rate)
	lastRefill = now
end

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

redis.call('HSET', key, 'tokens', tostring(tokens), 'last_refill', tostring(lastRefill))
redis.call('EXPIRE', key, ttl)
return allowed
`)

/*
RedisLimiter 多實例共用的 token bucket
redis 無法使用時放行, 限流不應擋下結帳
*/
type RedisLimiter struct {
	cfg    LimiterConfig
	client redis.Scripter
	prefix string
	now    func() time.Time
	logger *zerolog.Logger
}

func NewRedisLimiter(client redis.Scripter, prefix string, cfg LimiterConfig, logger *zerolog.Logger) *RedisLimiter {
	if client == nil {
		panic("redis limiter client cannot be nil")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &RedisLimiter{
		cfg:    cfg.normalize(),
		client: client,
		prefix: prefix,
		now:    time.Now,
		logger: logger,
	}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) bool {
	ttl := int64(math.Ceil(r.cfg.IdleTTL.Seconds()))
	res, err := tokenBucketScript.Run(ctx, r.client,
		[]string{r.prefix + ":ratelimit:" + key},
		r.cfg.Capacity,
		r.cfg.RatePS,
		r.now().UnixMilli(),
		ttl,
	).Int64()
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, allowing request")
		return true
	}
	return res == 1
}
