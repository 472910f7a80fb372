// Package cache provides a short-TTL read-through cache over registry
// lookups. It absorbs the poller's bursty duplicate lookups without letting
// stale data defeat a forced refresh, which always bypasses the read path.
package cache

import (
	"context"
	"errors"

	"domainwatch/internal/registry/providers"
)

// ErrNotFound is returned when a response is absent or expired.
var ErrNotFound = errors.New("not found")

// Store holds raw registry responses keyed by canonical domain name.
type Store interface {
	Get(ctx context.Context, domain string) (providers.RawResponse, error)
	Set(ctx context.Context, domain string, raw providers.RawResponse) error
}

// Client decorates a provider with a read-through cache.
type Client struct {
	provider providers.Provider
	store    Store
}

// New wraps provider with store. A nil store disables caching.
func New(provider providers.Provider, store Store) *Client {
	return &Client{provider: provider, store: store}
}

// Name reports the wrapped provider's name.
func (c *Client) Name() string {
	return c.provider.Name()
}

// Lookup fetches registry data, consulting the cache unless bypass is set.
// Cache write failures are swallowed: a dead cache never fails a lookup.
func (c *Client) Lookup(ctx context.Context, domain string, bypass bool) (providers.RawResponse, error) {
	if c.store != nil && !bypass {
		if raw, err := c.store.Get(ctx, domain); err == nil {
			return raw, nil
		}
	}

	raw, err := c.provider.Query(ctx, domain)
	if err != nil {
		return nil, err
	}

	if c.store != nil {
		_ = c.store.Set(ctx, domain, raw)
	}
	return raw, nil
}
