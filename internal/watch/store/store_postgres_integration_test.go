//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"domainwatch/internal/registry"
	"domainwatch/internal/registry/providers"
	"domainwatch/internal/watch/models"
	"domainwatch/internal/watch/store"
	id "domainwatch/pkg/domain"
	"domainwatch/pkg/platform/sentinel"
	"domainwatch/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	store *store.Postgres
	ctx   context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pg := containers.NewPostgresContainer(t)

	s := new(PostgresStoreSuite)
	s.store = store.NewPostgres(pg.DB)
	suite.Run(t, s)
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.Require().NoError(s.store.EnsureSchema(s.ctx))
}

func (s *PostgresStoreSuite) newRecord(name string) *models.DomainRecord {
	return &models.DomainRecord{
		ID:        id.NewDomainID(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}

func (s *PostgresStoreSuite) TestDomainLifecycle() {
	record := s.newRecord("lifecycle.example.com")
	s.Require().NoError(s.store.CreateDomain(s.ctx, record))

	s.Run("duplicate canonical name conflicts", func() {
		err := s.store.CreateDomain(s.ctx, s.newRecord("lifecycle.example.com"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("finds bare record with nullable fields empty", func() {
		found, err := s.store.FindDomainByName(s.ctx, "lifecycle.example.com")
		s.Require().NoError(err)
		s.Nil(found.ExpiryDate)
		s.Nil(found.Registrar)
		s.Nil(found.LastRefreshedAt)
	})

	s.Run("refresh patch round-trips through jsonb", func() {
		expiry := time.Date(2027, 4, 1, 0, 0, 0, 0, time.UTC)
		registrar := "Integration Registrar"
		refreshedAt := time.Now().UTC().Truncate(time.Microsecond)

		updated, err := s.store.ApplyRefresh(s.ctx, record.ID, registry.Patch{
			Registered: true,
			ExpiryDate: &expiry,
			Registrar:  &registrar,
			Raw:        providers.RawResponse{"status": true, "expiry_date": "2027-04-01"},
		}, refreshedAt)
		s.Require().NoError(err)

		s.Require().NotNil(updated.ExpiryDate)
		s.True(updated.ExpiryDate.Equal(expiry))
		s.Require().NotNil(updated.LastRefreshedAt)
		s.True(updated.LastRefreshedAt.Equal(refreshedAt))
		s.Equal(true, updated.RawResponse["status"])
	})

	s.Run("refresh of missing record is ErrNotFound", func() {
		_, err := s.store.ApplyRefresh(s.ctx, id.DomainID(uuid.New()), registry.Patch{}, time.Now())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestAssociationReferenceCounting() {
	record := s.newRecord("refcount.example.com")
	s.Require().NoError(s.store.CreateDomain(s.ctx, record))

	alice := id.UserID(uuid.New())
	bob := id.UserID(uuid.New())
	s.Require().NoError(s.store.CreateAssociation(s.ctx, alice, record.ID))
	s.Require().NoError(s.store.CreateAssociation(s.ctx, bob, record.ID))

	err := s.store.CreateAssociation(s.ctx, alice, record.ID)
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	remaining, err := s.store.DeleteAssociation(s.ctx, alice, record.ID)
	s.Require().NoError(err)
	s.Equal(1, remaining)

	_, err = s.store.FindDomainByID(s.ctx, record.ID)
	s.Require().NoError(err)

	remaining, err = s.store.DeleteAssociation(s.ctx, bob, record.ID)
	s.Require().NoError(err)
	s.Equal(0, remaining)

	_, err = s.store.FindDomainByID(s.ctx, record.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListOrdering() {
	user := id.UserID(uuid.New())

	first := s.newRecord("older.example.com")
	first.CreatedAt = time.Now().UTC().Add(-time.Hour)
	second := s.newRecord("newer.example.com")

	s.Require().NoError(s.store.CreateDomain(s.ctx, first))
	s.Require().NoError(s.store.CreateDomain(s.ctx, second))
	s.Require().NoError(s.store.CreateAssociation(s.ctx, user, second.ID))
	s.Require().NoError(s.store.CreateAssociation(s.ctx, user, first.ID))

	records, err := s.store.ListDomainsForUser(s.ctx, user)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal("older.example.com", records[0].Name)
}
