package store

import (
	"context"
	"sync"
	"time"

	"domainwatch/internal/registry"
	"domainwatch/internal/watch/models"
	id "domainwatch/pkg/domain"
	"domainwatch/pkg/platform/sentinel"
)

// InMemory keeps everything under one mutex. Used in tests and for running
// without PostgreSQL; the coarse lock mirrors the single-row atomicity the
// postgres store gets from UPDATE.
type InMemory struct {
	mu           sync.RWMutex
	byID         map[id.DomainID]*models.DomainRecord
	byName       map[string]id.DomainID
	associations map[id.UserID]map[id.DomainID]models.UserDomainAssociation
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		byID:         make(map[id.DomainID]*models.DomainRecord),
		byName:       make(map[string]id.DomainID),
		associations: make(map[id.UserID]map[id.DomainID]models.UserDomainAssociation),
	}
}

func (s *InMemory) CreateDomain(_ context.Context, record *models.DomainRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byName[record.Name]; exists {
		return sentinel.ErrConflict
	}
	s.byID[record.ID] = record.Clone()
	s.byName[record.Name] = record.ID
	return nil
}

func (s *InMemory) FindDomainByID(_ context.Context, domainID id.DomainID) (*models.DomainRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.byID[domainID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return record.Clone(), nil
}

func (s *InMemory) FindDomainByName(_ context.Context, name string) (*models.DomainRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	domainID, ok := s.byName[name]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.byID[domainID].Clone(), nil
}

func (s *InMemory) ListDomainsForUser(_ context.Context, userID id.UserID) ([]*models.DomainRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	assocs := s.associations[userID]
	records := make([]*models.DomainRecord, 0, len(assocs))
	for domainID := range assocs {
		if record, ok := s.byID[domainID]; ok {
			records = append(records, record.Clone())
		}
	}
	// Oldest first, matching the postgres ORDER BY.
	for i := 1; i < len(records); i++ {
		for j := i; j > 0 && records[j].CreatedAt.Before(records[j-1].CreatedAt); j-- {
			records[j], records[j-1] = records[j-1], records[j]
		}
	}
	return records, nil
}

func (s *InMemory) ApplyRefresh(_ context.Context, domainID id.DomainID, patch registry.Patch, refreshedAt time.Time) (*models.DomainRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byID[domainID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	registered := patch.Registered
	record.Registered = &registered
	record.RawResponse = patch.Raw
	if patch.Registered {
		record.ExpiryDate = patch.ExpiryDate
		record.CreatedDate = patch.CreatedDate
		record.UpdatedDate = patch.UpdatedDate
		record.Registrar = patch.Registrar
	}
	ts := refreshedAt
	record.LastRefreshedAt = &ts
	return record.Clone(), nil
}

func (s *InMemory) CreateAssociation(_ context.Context, userID id.UserID, domainID id.DomainID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[domainID]; !ok {
		return sentinel.ErrNotFound
	}
	if s.associations[userID] == nil {
		s.associations[userID] = make(map[id.DomainID]models.UserDomainAssociation)
	}
	if _, exists := s.associations[userID][domainID]; exists {
		return sentinel.ErrConflict
	}
	s.associations[userID][domainID] = models.UserDomainAssociation{
		UserID:    userID,
		DomainID:  domainID,
		CreatedAt: time.Now(),
	}
	return nil
}

func (s *InMemory) HasAssociation(_ context.Context, userID id.UserID, domainID id.DomainID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.associations[userID][domainID]
	return ok, nil
}

func (s *InMemory) DeleteAssociation(_ context.Context, userID id.UserID, domainID id.DomainID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.associations[userID][domainID]; !exists {
		return 0, sentinel.ErrNotFound
	}
	delete(s.associations[userID], domainID)

	remaining := 0
	for _, assocs := range s.associations {
		if _, ok := assocs[domainID]; ok {
			remaining++
		}
	}

	// Last reference gone: the record goes with it.
	if remaining == 0 {
		if record, ok := s.byID[domainID]; ok {
			delete(s.byName, record.Name)
			delete(s.byID, domainID)
		}
	}
	return remaining, nil
}
