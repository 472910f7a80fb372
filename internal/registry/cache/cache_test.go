package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"domainwatch/internal/registry/providers"
)

// stubProvider counts queries and returns a fixed payload.
type stubProvider struct {
	calls int
	raw   providers.RawResponse
	err   error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Query(_ context.Context, _ string) (providers.RawResponse, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.raw, nil
}

type CacheSuite struct {
	suite.Suite
	ctx context.Context
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *CacheSuite) TestLookup() {
	s.Run("second lookup is served from cache", func() {
		provider := &stubProvider{raw: providers.RawResponse{"status": true}}
		client := New(provider, NewInMemoryStore(time.Minute))

		_, err := client.Lookup(s.ctx, "example.com", false)
		s.Require().NoError(err)
		raw, err := client.Lookup(s.ctx, "example.com", false)
		s.Require().NoError(err)

		s.Equal(1, provider.calls)
		s.Equal(true, raw["status"])
	})

	s.Run("bypass skips the cache read but refreshes it", func() {
		provider := &stubProvider{raw: providers.RawResponse{"status": true}}
		store := NewInMemoryStore(time.Minute)
		client := New(provider, store)

		_, err := client.Lookup(s.ctx, "example.com", false)
		s.Require().NoError(err)
		_, err = client.Lookup(s.ctx, "example.com", true)
		s.Require().NoError(err)

		s.Equal(2, provider.calls)
	})

	s.Run("provider errors pass through uncached", func() {
		provider := &stubProvider{err: providers.NewError(providers.ErrorOutage, "stub", "down", nil)}
		client := New(provider, NewInMemoryStore(time.Minute))

		_, err := client.Lookup(s.ctx, "example.com", false)
		s.Require().Error(err)
		s.Equal(providers.ErrorOutage, providers.CategoryOf(err))

		_, err = client.Lookup(s.ctx, "example.com", false)
		s.Require().Error(err)
		s.Equal(2, provider.calls, "failures are not cached")
	})

	s.Run("nil store disables caching", func() {
		provider := &stubProvider{raw: providers.RawResponse{}}
		client := New(provider, nil)

		_, err := client.Lookup(s.ctx, "example.com", false)
		s.Require().NoError(err)
		_, err = client.Lookup(s.ctx, "example.com", false)
		s.Require().NoError(err)
		s.Equal(2, provider.calls)
	})
}

func (s *CacheSuite) TestInMemoryExpiry() {
	store := NewInMemoryStore(time.Minute)
	current := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	s.Require().NoError(store.Set(s.ctx, "example.com", providers.RawResponse{"status": true}))

	_, err := store.Get(s.ctx, "example.com")
	s.Require().NoError(err)

	current = current.Add(2 * time.Minute)
	_, err = store.Get(s.ctx, "example.com")
	s.Require().ErrorIs(err, ErrNotFound)
}
