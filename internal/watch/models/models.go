// Package models holds the persistent and result types for tracked domains.
package models

import (
	"time"

	id "domainwatch/pkg/domain"
)

// DomainRecord is one tracked domain, keyed by its canonical name. Records
// are shared across users and reference-counted through associations; the
// nullable fields stay empty until the first successful registry refresh.
type DomainRecord struct {
	ID              id.DomainID    `json:"id"`
	Name            string         `json:"name"`
	ExpiryDate      *time.Time     `json:"expiryDate,omitempty"`
	CreatedDate     *time.Time     `json:"createdDate,omitempty"`
	UpdatedDate     *time.Time     `json:"updatedDate,omitempty"`
	Registrar       *string        `json:"registrar,omitempty"`
	Registered      *bool          `json:"registered,omitempty"`
	RawResponse     map[string]any `json:"rawResponse,omitempty"`
	LastRefreshedAt *time.Time     `json:"lastRefreshedAt,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// Clone returns a deep-enough copy for handing records across goroutines.
func (r *DomainRecord) Clone() *DomainRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.RawResponse != nil {
		raw := make(map[string]any, len(r.RawResponse))
		for k, v := range r.RawResponse {
			raw[k] = v
		}
		out.RawResponse = raw
	}
	return &out
}

// UserDomainAssociation joins a user to a DomainRecord. It owns no domain
// data; deleting the last association for a record deletes the record.
type UserDomainAssociation struct {
	UserID    id.UserID   `json:"userId"`
	DomainID  id.DomainID `json:"domainId"`
	CreatedAt time.Time   `json:"createdAt"`
}

// AddStatus is the per-item outcome of a batch add.
type AddStatus string

const (
	// AddStatusAdded means a new record and association were created.
	AddStatusAdded AddStatus = "added"
	// AddStatusAlreadyTracked means the user already tracks this domain.
	AddStatusAlreadyTracked AddStatus = "already_tracked"
	// AddStatusFailed means a store error; other items are unaffected.
	AddStatusFailed AddStatus = "failed"
)

// AddItem reports the store outcome for one accepted canonical name.
type AddItem struct {
	Name   string        `json:"name"`
	Status AddStatus     `json:"status"`
	Reason string        `json:"reason,omitempty"`
	Record *DomainRecord `json:"record,omitempty"`
}

// AddResult aggregates a whole batch: store outcomes for the accepted
// canonical names plus the rejected and duplicate raw strings verbatim.
// Each item's outcome is independent: one failure never rolls back domains
// already added.
type AddResult struct {
	Items      []AddItem `json:"items"`
	Invalid    []string  `json:"invalidDomains"`
	Duplicates []string  `json:"duplicates"`
}

// RefreshResult is the outcome of one orchestrated refresh.
type RefreshResult struct {
	Success        bool          `json:"success"`
	OnCooldown     bool          `json:"onCooldown,omitempty"`
	HoursRemaining int           `json:"hoursRemaining,omitempty"`
	Record         *DomainRecord `json:"record,omitempty"`
	Message        string        `json:"message,omitempty"`
}
