// Package domain holds typed identifiers shared across bounded contexts.
//
// Identifiers are distinct named types over uuid.UUID so a DamageID can never be
// passed where a ClaimID is expected. Parsing happens once at the trust boundary
// (HTTP path params, persisted documents); inside the system ids are always valid.
package domain

import (
	"github.com/google/uuid"

	dErrors "claimdesk/pkg/domain-errors"
)

// ClaimID identifies a claim aggregate.
type ClaimID uuid.UUID

// DamageID identifies a damage line item within its claim.
type DamageID uuid.UUID

// NewClaimID returns a fresh random claim id.
func NewClaimID() ClaimID { return ClaimID(uuid.New()) }

// NewDamageID returns a fresh random damage id.
func NewDamageID() DamageID { return DamageID(uuid.New()) }

// ParseClaimID parses and validates a claim id.
func ParseClaimID(s string) (ClaimID, error) {
	u, err := parseUUID(s, "claim id")
	if err != nil {
		return ClaimID{}, err
	}
	return ClaimID(u), nil
}

// ParseDamageID parses and validates a damage id.
func ParseDamageID(s string) (DamageID, error) {
	u, err := parseUUID(s, "damage id")
	if err != nil {
		return DamageID{}, err
	}
	return DamageID(u), nil
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be nil")
	}
	return u, nil
}

func (id ClaimID) String() string { return uuid.UUID(id).String() }
func (id ClaimID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id ClaimID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ClaimID) UnmarshalText(b []byte) error {
	parsed, err := ParseClaimID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id DamageID) String() string { return uuid.UUID(id).String() }
func (id DamageID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id DamageID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *DamageID) UnmarshalText(b []byte) error {
	parsed, err := ParseDamageID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
