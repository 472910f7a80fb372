package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"domainwatch/internal/registry/providers"
)

const keyPrefix = "domainwatch:registry:"

// RedisStore caches raw registry responses in Redis with TTL expiration,
// shared across server processes.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed cache with the specified TTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Get retrieves a cached response. Returns ErrNotFound when the key is
// absent; Redis expiry handles the TTL.
func (s *RedisStore) Get(ctx context.Context, domain string) (providers.RawResponse, error) {
	payload, err := s.client.Get(ctx, keyPrefix+domain).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get cached response: %w", err)
	}

	var raw providers.RawResponse
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode cached response: %w", err)
	}
	return raw, nil
}

// Set stores a response keyed by canonical domain name.
func (s *RedisStore) Set(ctx context.Context, domain string, raw providers.RawResponse) error {
	payload, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+domain, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("set cached response: %w", err)
	}
	return nil
}
