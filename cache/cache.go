// Package cache provides a small byte cache used to skip re-reading dataset
// bundles from disk or Postgres. Caching is best-effort: a miss or a backend
// failure always degrades to the store, never to an error.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sadikovi/pulsar/utils"
)

// Store is the cache contract. A zero or negative ttl means no expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// New picks the backend: Redis when a URL is configured and reachable,
// in-process memory otherwise.
func New(ctx context.Context, redisURL string, logger *utils.Logger) Store {
	if redisURL != "" {
		r, err := NewRedis(ctx, redisURL, logger)
		if err == nil {
			logger.Info("Cache backend: redis")
			return r
		}
		logger.Warn("Redis unavailable, using in-memory cache: %v", err)
	}
	return NewMemory()
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Store with per-entry expiry. Expired entries are
// evicted lazily on read.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
}

func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Len returns the number of entries currently held, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
