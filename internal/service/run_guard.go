package service

import (
	"context"
	"sync"
	"time"
)

// RunGuard hands out a key at most once per ttl so a scheduled job runs once
// per day even when several replicas tick.
type RunGuard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type runGuardStore interface {
	SetIfAbsent(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
}

// RedisRunGuard claims keys with SETNX so the claim is shared across processes.
type RedisRunGuard struct {
	store runGuardStore
}

// NewRedisRunGuard constructs a RedisRunGuard.
func NewRedisRunGuard(store runGuardStore) *RedisRunGuard {
	return &RedisRunGuard{store: store}
}

// Acquire reports whether this caller claimed key.
func (g *RedisRunGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return g.store.SetIfAbsent(ctx, "runguard:"+key, time.Now().UTC().Format(time.RFC3339), ttl)
}

// MemoryRunGuard is the single-process guard used without redis.
type MemoryRunGuard struct {
	mu     sync.Mutex
	claims map[string]time.Time
	now    func() time.Time
}

// NewMemoryRunGuard constructs a MemoryRunGuard.
func NewMemoryRunGuard() *MemoryRunGuard {
	return &MemoryRunGuard{claims: make(map[string]time.Time), now: time.Now}
}

// Acquire reports whether this caller claimed key.
func (g *MemoryRunGuard) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	for k, expires := range g.claims {
		if !now.Before(expires) {
			delete(g.claims, k)
		}
	}
	if _, taken := g.claims[key]; taken {
		return false, nil
	}
	g.claims[key] = now.Add(ttl)
	return true, nil
}
