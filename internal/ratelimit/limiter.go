package ratelimit

import (
	"context"
	"sync"
	"time"
)

type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

type LimiterConfig struct {
	Capacity int
	RatePS   float64 // tokens/秒
	// 超過此時間未使用的key會被清除
	IdleTTL time.Duration
}

func GetDefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{
		Capacity: 20,
		RatePS:   5,
		IdleTTL:  10 * time.Minute,
	}
}

func (c LimiterConfig) normalize() LimiterConfig {
	def := GetDefaultLimiterConfig()
	if c.Capacity <= 0 {
		c.Capacity = def.Capacity
	}
	if c.RatePS <= 0 {
		c.RatePS = def.RatePS
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = def.IdleTTL
	}
	return c
}

// TokenBucket 取用時才依經過時間補充
type TokenBucket struct {
	cfg        LimiterConfig
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

func NewTokenBucket(cfg LimiterConfig, now time.Time) *TokenBucket {
	cfg = cfg.normalize()
	return &TokenBucket{
		cfg:        cfg,
		tokens:     float64(cfg.Capacity),
		lastRefill: now,
	}
}

func (t *TokenBucket) AllowAt(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if elapsed := now.Sub(t.lastRefill); elapsed > 0 {
		t.tokens += elapsed.Seconds() * t.cfg.RatePS
		if t.tokens > float64(t.cfg.Capacity) {
			t.tokens = float64(t.cfg.Capacity)
		}
		t.lastRefill = now
	}

	if t.tokens < 1 {
		return false
	}
	t.tokens--
	return true
}

func (t *TokenBucket) idleSince(now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return now.Sub(t.lastRefill)
}

/*
KeyedLimiter 每個key一個bucket, 只在單一實例內有效
請使用 defer 呼叫 Stop()
*/
type KeyedLimiter struct {
	cfg     LimiterConfig
	buckets sync.Map
	now     func() time.Time
	cancel  chan struct{}
	once    sync.Once
}

func NewKeyedLimiter(cfg LimiterConfig) *KeyedLimiter {
	k := &KeyedLimiter{
		cfg:    cfg.normalize(),
		now:    time.Now,
		cancel: make(chan struct{}),
	}
	go k.background()
	return k
}

func (k *KeyedLimiter) Allow(ctx context.Context, key string) bool {
	now := k.now()
	b, ok := k.buckets.Load(key)
	if !ok {
		b, _ = k.buckets.LoadOrStore(key, NewTokenBucket(k.cfg, now))
	}
	return b.(*TokenBucket).AllowAt(now)
}

// evictIdle 閒置的bucket必然已補滿, 刪除後重建結果相同
func (k *KeyedLimiter) evictIdle() {
	now := k.now()
	k.buckets.Range(func(key, value any) bool {
		if value.(*TokenBucket).idleSince(now) > k.cfg.IdleTTL {
			k.buckets.Delete(key)
		}
		return true
	})
}

func (k *KeyedLimiter) size() int {
	n := 0
	k.buckets.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (k *KeyedLimiter) background() {
	ticker := time.NewTicker(k.cfg.IdleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-k.cancel:
			return
		case <-ticker.C:
			k.evictIdle()
		}
	}
}

func (k *KeyedLimiter) Stop() {
	k.once.Do(func() {
		close(k.cancel)
	})
}
