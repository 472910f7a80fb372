// Package domain holds the typed identifiers shared across layers. Distinct
// types keep user and domain-record ids from being swapped at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "domainwatch/pkg/domain-errors"
)

// UserID identifies an account in the surrounding system.
type UserID uuid.UUID

// DomainID identifies a tracked domain record.
type DomainID uuid.UUID

func (id UserID) String() string   { return uuid.UUID(id).String() }
func (id DomainID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id DomainID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewDomainID returns a fresh random DomainID.
func NewDomainID() DomainID { return DomainID(uuid.New()) }

// Defined types do not inherit uuid.UUID's text marshalling, so ids would
// otherwise serialize as byte arrays.

func (id UserID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id DomainID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = UserID(u)
	return nil
}

func (id *DomainID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = DomainID(u)
	return nil
}

// ParseUserID validates raw as a non-nil UUID at the trust boundary.
func ParseUserID(raw string) (UserID, error) {
	u, err := parse(raw, "user_id")
	return UserID(u), err
}

// ParseDomainID validates raw as a non-nil UUID at the trust boundary.
func ParseDomainID(raw string) (DomainID, error) {
	u, err := parse(raw, "domain_id")
	return DomainID(u), err
}

func parse(raw, field string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "%s is required", field)
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "%s is not a valid UUID", field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "%s must not be the nil UUID", field)
	}
	return u, nil
}
