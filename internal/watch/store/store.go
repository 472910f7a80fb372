// Package store persists domain records and user associations. Stores
// return sentinel errors; translating them into domain errors is the
// service's job.
package store

import (
	"context"
	"time"

	"domainwatch/internal/registry"
	"domainwatch/internal/watch/models"
	id "domainwatch/pkg/domain"
)

// Store is the persistence contract for tracked domains. Records are shared
// across users by canonical name and reference-counted via association rows.
type Store interface {
	// CreateDomain inserts a bare record. Returns sentinel.ErrConflict
	// when the canonical name is already present.
	CreateDomain(ctx context.Context, record *models.DomainRecord) error

	// FindDomainByID returns sentinel.ErrNotFound for unknown ids.
	FindDomainByID(ctx context.Context, domainID id.DomainID) (*models.DomainRecord, error)

	// FindDomainByName looks up by canonical name.
	FindDomainByName(ctx context.Context, name string) (*models.DomainRecord, error)

	// ListDomainsForUser returns the user's tracked domains, oldest first.
	ListDomainsForUser(ctx context.Context, userID id.UserID) ([]*models.DomainRecord, error)

	// ApplyRefresh writes a normalized registry patch plus the refresh
	// timestamp in one atomic single-row update and returns the updated
	// record. This update is the serialization point for concurrent
	// refreshes of the same domain.
	ApplyRefresh(ctx context.Context, domainID id.DomainID, patch registry.Patch, refreshedAt time.Time) (*models.DomainRecord, error)

	// CreateAssociation links a user to a domain. Returns
	// sentinel.ErrConflict when the association already exists.
	CreateAssociation(ctx context.Context, userID id.UserID, domainID id.DomainID) error

	// HasAssociation reports whether the user tracks the domain.
	HasAssociation(ctx context.Context, userID id.UserID, domainID id.DomainID) (bool, error)

	// DeleteAssociation unlinks the user and reports how many references
	// remain. When the last reference goes, the domain record is deleted
	// in the same operation. Returns sentinel.ErrNotFound when the
	// association does not exist.
	DeleteAssociation(ctx context.Context, userID id.UserID, domainID id.DomainID) (remaining int, err error)
}
