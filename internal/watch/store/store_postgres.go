package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"domainwatch/internal/registry"
	"domainwatch/internal/registry/providers"
	"domainwatch/internal/watch/models"
	id "domainwatch/pkg/domain"
	"domainwatch/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// Schema is the DDL for the watch tables. Applied by EnsureSchema; kept here
// so the integration tests and a fresh deployment share one source of truth.
const Schema = `
CREATE TABLE IF NOT EXISTS domains (
    id                UUID PRIMARY KEY,
    name              TEXT NOT NULL UNIQUE,
    expiry_date       TIMESTAMPTZ,
    created_date      TIMESTAMPTZ,
    updated_date      TIMESTAMPTZ,
    registrar         TEXT,
    registered        BOOLEAN,
    raw_response      JSONB,
    last_refreshed_at TIMESTAMPTZ,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS user_domains (
    user_id    UUID NOT NULL,
    domain_id  UUID NOT NULL REFERENCES domains(id) ON DELETE CASCADE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (user_id, domain_id)
);

CREATE INDEX IF NOT EXISTS idx_user_domains_domain ON user_domains (domain_id);
`

// Postgres persists domain records in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema applies the DDL. Idempotent.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Postgres) CreateDomain(ctx context.Context, record *models.DomainRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO domains (id, name, created_at) VALUES ($1, $2, $3)`,
		uuid.UUID(record.ID), record.Name, record.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create domain: %w", err)
	}
	return nil
}

const domainColumns = `id, name, expiry_date, created_date, updated_date, registrar, registered, raw_response, last_refreshed_at, created_at`

func (s *Postgres) FindDomainByID(ctx context.Context, domainID id.DomainID) (*models.DomainRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+domainColumns+` FROM domains WHERE id = $1`,
		uuid.UUID(domainID),
	)
	return scanDomain(row)
}

func (s *Postgres) FindDomainByName(ctx context.Context, name string) (*models.DomainRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+domainColumns+` FROM domains WHERE name = $1`,
		name,
	)
	return scanDomain(row)
}

func (s *Postgres) ListDomainsForUser(ctx context.Context, userID id.UserID) ([]*models.DomainRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.name, d.expiry_date, d.created_date, d.updated_date, d.registrar, d.registered, d.raw_response, d.last_refreshed_at, d.created_at
		   FROM domains d
		   JOIN user_domains ud ON ud.domain_id = d.id
		  WHERE ud.user_id = $1
		  ORDER BY d.created_at`,
		uuid.UUID(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	defer rows.Close()

	var records []*models.DomainRecord
	for rows.Next() {
		record, err := scanDomain(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *Postgres) ApplyRefresh(ctx context.Context, domainID id.DomainID, patch registry.Patch, refreshedAt time.Time) (*models.DomainRecord, error) {
	rawJSON, err := json.Marshal(patch.Raw)
	if err != nil {
		return nil, fmt.Errorf("encode raw response: %w", err)
	}

	// Date and registrar columns are only touched for registered domains;
	// an unregistered lookup records just the status and the payload.
	var row rowScanner
	if patch.Registered {
		row = s.db.QueryRowContext(ctx,
			`UPDATE domains
			    SET expiry_date = $2, created_date = $3, updated_date = $4,
			        registrar = $5, registered = TRUE, raw_response = $6,
			        last_refreshed_at = $7
			  WHERE id = $1
			  RETURNING `+domainColumns,
			uuid.UUID(domainID), patch.ExpiryDate, patch.CreatedDate, patch.UpdatedDate,
			patch.Registrar, rawJSON, refreshedAt,
		)
	} else {
		row = s.db.QueryRowContext(ctx,
			`UPDATE domains
			    SET registered = FALSE, raw_response = $2, last_refreshed_at = $3
			  WHERE id = $1
			  RETURNING `+domainColumns,
			uuid.UUID(domainID), rawJSON, refreshedAt,
		)
	}
	return scanDomain(row)
}

func (s *Postgres) CreateAssociation(ctx context.Context, userID id.UserID, domainID id.DomainID) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_domains (user_id, domain_id, created_at) VALUES ($1, $2, now())`,
		uuid.UUID(userID), uuid.UUID(domainID),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create association: %w", err)
	}
	return nil
}

func (s *Postgres) HasAssociation(ctx context.Context, userID id.UserID, domainID id.DomainID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_domains WHERE user_id = $1 AND domain_id = $2)`,
		uuid.UUID(userID), uuid.UUID(domainID),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check association: %w", err)
	}
	return exists, nil
}

func (s *Postgres) DeleteAssociation(ctx context.Context, userID id.UserID, domainID id.DomainID) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM user_domains WHERE user_id = $1 AND domain_id = $2`,
		uuid.UUID(userID), uuid.UUID(domainID),
	)
	if err != nil {
		return 0, fmt.Errorf("delete association: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return 0, sentinel.ErrNotFound
	}

	var remaining int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_domains WHERE domain_id = $1`,
		uuid.UUID(domainID),
	).Scan(&remaining)
	if err != nil {
		return 0, fmt.Errorf("count references: %w", err)
	}

	if remaining == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM domains WHERE id = $1`, uuid.UUID(domainID)); err != nil {
			return 0, fmt.Errorf("delete domain: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return remaining, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDomain(row rowScanner) (*models.DomainRecord, error) {
	var (
		record   models.DomainRecord
		recordID uuid.UUID
		rawJSON  []byte
	)
	err := row.Scan(
		&recordID, &record.Name,
		&record.ExpiryDate, &record.CreatedDate, &record.UpdatedDate,
		&record.Registrar, &record.Registered, &rawJSON,
		&record.LastRefreshedAt, &record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan domain: %w", err)
	}
	record.ID = id.DomainID(recordID)
	if len(rawJSON) > 0 {
		var raw providers.RawResponse
		if err := json.Unmarshal(rawJSON, &raw); err == nil {
			record.RawResponse = raw
		}
	}
	return &record, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
