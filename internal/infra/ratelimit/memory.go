// Package ratelimit provides fixed-window request limiters. The in-memory
// limiter covers single-instance deployments; the Redis limiter shares
// windows across replicas.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"bazaar/internal/domain"
)

const defaultMaxKeys = 10000

type memoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	buckets map[string]*window
	maxKeys int
}

type window struct {
	hits  int
	endAt time.Time
}

type MemoryLimiterConfig struct {
	Now     func() time.Time
	MaxKeys int
}

func NewMemoryLimiter(cfg MemoryLimiterConfig) domain.RateLimiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = defaultMaxKeys
	}
	return &memoryLimiter{
		now:     cfg.Now,
		buckets: make(map[string]*window),
		maxKeys: cfg.MaxKeys,
	}
}

func (m *memoryLimiter) Allow(_ context.Context, key string, limit int, windowSize time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.buckets[key]
	if ok && now.After(bucket.endAt) {
		delete(m.buckets, key)
		ok = false
	}
	if !ok {
		if len(m.buckets) >= m.maxKeys {
			m.sweep(now)
		}
		if len(m.buckets) >= m.maxKeys {
			return domain.RateLimitDecision{}, errors.New("rate limiter capacity exceeded")
		}
		bucket = &window{endAt: now.Add(windowSize)}
		m.buckets[key] = bucket
	}

	decision := domain.RateLimitDecision{Limit: limit, ResetAt: bucket.endAt}
	if bucket.hits < limit {
		bucket.hits++
		decision.Allowed = true
		decision.Remaining = limit - bucket.hits
	}
	return decision, nil
}

// sweep drops every expired window. Only called when the key table is full,
// so steady-state Allow stays O(1).
func (m *memoryLimiter) sweep(now time.Time) {
	for key, bucket := range m.buckets {
		if now.After(bucket.endAt) {
			delete(m.buckets, key)
		}
	}
}
