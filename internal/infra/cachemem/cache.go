// Package cachemem is a process-local TTL cache for verification results.
// Verification over stored proofs is deterministic, so a cached result is
// valid for as long as the operator is willing to serve it.
package cachemem

import (
	"context"
	"sync"
	"time"

	"bazaar/internal/domain"
	"bazaar/internal/usecase"
)

type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

type entry struct {
	result    domain.VerificationResult
	expiresAt time.Time
	expires   bool
}

func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (c *Cache) Get(_ context.Context, key string) (*domain.VerificationResult, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if e.expires && c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	result := e.result
	return &result, true, nil
}

func (c *Cache) Put(_ context.Context, key string, result domain.VerificationResult, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{result: result}
	if ttl > 0 {
		e.expires = true
		e.expiresAt = c.now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}

var _ usecase.VerificationCache = (*Cache)(nil)
