package service

import (
	"context"
	"sync"
	"time"
)

// ttlStore keeps short-lived payloads such as proposals and batch status. Redis is used
// when the cache is enabled; otherwise entries live in process memory until they expire.
type ttlStore[T any] struct {
	prefix string
	ttl    time.Duration
	cache  *CacheService
	now    func() time.Time

	mu    sync.RWMutex
	items map[string]ttlEntry[T]
}

type ttlEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func newTTLStore[T any](prefix string, ttl time.Duration, cache *CacheService) *ttlStore[T] {
	return &ttlStore[T]{
		prefix: prefix,
		ttl:    ttl,
		cache:  cache,
		now:    time.Now,
		items:  make(map[string]ttlEntry[T]),
	}
}

func (s *ttlStore[T]) key(id string) string {
	return s.prefix + id
}

// Put stores value under id for the store TTL.
func (s *ttlStore[T]) Put(ctx context.Context, id string, value T) error {
	if s.cache.Enabled() {
		return s.cache.Set(ctx, s.key(id), value, s.ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.items[id] = ttlEntry[T]{value: value, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// Get returns the value stored under id, reporting false when absent or expired.
func (s *ttlStore[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var zero T
	if s.cache.Enabled() {
		var value T
		hit, err := s.cache.Get(ctx, s.key(id), &value)
		if err != nil || !hit {
			return zero, false, err
		}
		return value, true, nil
	}
	s.mu.RLock()
	entry, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return zero, false, nil
	}
	if !s.now().Before(entry.expiresAt) {
		_ = s.Delete(ctx, id)
		return zero, false, nil
	}
	return entry.value, true, nil
}

// Delete drops the value stored under id.
func (s *ttlStore[T]) Delete(ctx context.Context, id string) error {
	if s.cache.Enabled() {
		return s.cache.Delete(ctx, s.key(id))
	}
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

func (s *ttlStore[T]) sweepLocked() {
	now := s.now()
	for id, entry := range s.items {
		if !now.Before(entry.expiresAt) {
			delete(s.items, id)
		}
	}
}
