//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"domainwatch/internal/registry/cache"
	"domainwatch/internal/registry/providers"
	"domainwatch/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *cache.RedisStore
	ctx   context.Context
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.NewRedisContainer(t)

	s := new(RedisCacheSuite)
	s.redis = rc
	suite.Run(t, s)
}

func (s *RedisCacheSuite) SetupTest() {
	s.ctx = context.Background()
	s.Require().NoError(s.redis.FlushAll(s.ctx))
	s.store = cache.NewRedisStore(s.redis.Client, time.Minute)
}

func (s *RedisCacheSuite) TestRoundTrip() {
	raw := providers.RawResponse{
		"status":      true,
		"expiry_date": "2027-01-02",
		"registry_data": map[string]any{
			"registrar_name": "Cache Registrar",
		},
	}
	s.Require().NoError(s.store.Set(s.ctx, "example.com", raw))

	got, err := s.store.Get(s.ctx, "example.com")
	s.Require().NoError(err)
	s.Equal("2027-01-02", got["expiry_date"])
}

func (s *RedisCacheSuite) TestMissingKey() {
	_, err := s.store.Get(s.ctx, "absent.com")
	s.Require().ErrorIs(err, cache.ErrNotFound)
}

func (s *RedisCacheSuite) TestTTLExpiry() {
	short := cache.NewRedisStore(s.redis.Client, 50*time.Millisecond)
	s.Require().NoError(short.Set(s.ctx, "example.com", providers.RawResponse{"status": true}))

	time.Sleep(120 * time.Millisecond)

	_, err := short.Get(s.ctx, "example.com")
	s.Require().ErrorIs(err, cache.ErrNotFound)
}
