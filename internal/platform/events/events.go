// Package events publishes refresh outcomes for out-of-process consumers;
// the expiry alert mailer keys off these instead of polling the store.
package events

import (
	"context"
	"time"

	id "domainwatch/pkg/domain"
)

// Outcome classifies how a refresh ended.
type Outcome string

const (
	OutcomeRefreshed    Outcome = "refreshed"
	OutcomeUnregistered Outcome = "unregistered"
	OutcomeFailed       Outcome = "failed"
)

// RefreshEvent is emitted after every completed refresh attempt.
type RefreshEvent struct {
	DomainID   id.DomainID `json:"domainId"`
	Name       string      `json:"name"`
	Outcome    Outcome     `json:"outcome"`
	ExpiryDate *time.Time  `json:"expiryDate,omitempty"`
	Error      string      `json:"error,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
}

// Publisher delivers refresh events. Implementations must be safe for
// concurrent use; publishing is best-effort and never blocks a refresh.
type Publisher interface {
	Publish(ctx context.Context, event RefreshEvent) error
	Close() error
}
