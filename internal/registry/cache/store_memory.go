package cache

import (
	"context"
	"sync"
	"time"

	"domainwatch/internal/registry/providers"
)

type cachedResponse struct {
	raw      providers.RawResponse
	storedAt time.Time
}

// InMemoryStore caches raw registry responses with TTL expiration.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]cachedResponse
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryStore creates an in-memory cache with the specified TTL.
func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]cachedResponse),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get retrieves a cached response. Returns ErrNotFound if the entry does not
// exist or has expired past the TTL.
func (s *InMemoryStore) Get(_ context.Context, domain string) (providers.RawResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cached, ok := s.entries[domain]; ok {
		if s.now().Sub(cached.storedAt) < s.ttl {
			return cached.raw, nil
		}
	}
	return nil, ErrNotFound
}

// Set stores a response keyed by canonical domain name.
func (s *InMemoryStore) Set(_ context.Context, domain string, raw providers.RawResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[domain] = cachedResponse{raw: raw, storedAt: s.now()}
	return nil
}
