// Package providers defines the contract for external WHOIS registry
// sources. A provider returns the upstream payload as loosely-typed JSON;
// shaping it into a canonical record is the normalizer's job, so providers
// stay dumb about field spellings.
package providers

import (
	"context"
)

// RawResponse is the upstream payload exactly as received. It is retained
// verbatim on the domain record for audit, independent of how well the
// structured fields parsed.
type RawResponse map[string]any

// Provider is the interface all registry sources implement.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Query fetches registration data for a canonical domain name. The
	// caller owns the deadline; a provider must respect ctx cancellation.
	Query(ctx context.Context, domain string) (RawResponse, error)
}
