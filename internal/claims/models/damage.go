package models

import (
	"math"
	"unicode/utf8"

	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
)

const (
	MaxPartLength  = 200
	MinDamagePrice = 0.01
)

// Damage is a single damaged-part line item owned by exactly one Claim.
//
// Invariants:
//   - ID is a non-nil identifier, unique within the owning claim
//   - Part is non-empty and at most 200 characters
//   - Severity is low, mid or high
//   - ImageURL is non-empty
//   - Price is a finite number >= 0.01
//
// Damage is immutable. Updating a damage means building a replacement with
// the same ID.
type Damage struct {
	id       id.DamageID
	part     string
	severity Severity
	imageURL string
	price    float64
}

// NewDamage validates every field. It runs on every construction path
// (requests, updates, rehydration) so no invalid damage can reach a claim.
func NewDamage(damageID id.DamageID, part string, severity Severity, imageURL string, price float64) (Damage, error) {
	if damageID.IsNil() {
		return Damage{}, dErrors.New(dErrors.CodeValidation, "damage id is required")
	}
	if part == "" {
		return Damage{}, dErrors.New(dErrors.CodeValidation, "part must not be empty")
	}
	if utf8.RuneCountInString(part) > MaxPartLength {
		return Damage{}, dErrors.New(dErrors.CodeValidation, "part must be 200 characters or less")
	}
	if _, err := ParseSeverity(string(severity)); err != nil {
		return Damage{}, err
	}
	if imageURL == "" {
		return Damage{}, dErrors.New(dErrors.CodeValidation, "image url must not be empty")
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return Damage{}, dErrors.New(dErrors.CodeValidation, "price must be a finite number")
	}
	if price < MinDamagePrice {
		return Damage{}, dErrors.New(dErrors.CodeValidation, "price must be at least 0.01")
	}
	return Damage{
		id:       damageID,
		part:     part,
		severity: severity,
		imageURL: imageURL,
		price:    price,
	}, nil
}

func (d Damage) ID() id.DamageID    { return d.id }
func (d Damage) Part() string       { return d.part }
func (d Damage) Severity() Severity { return d.severity }
func (d Damage) ImageURL() string   { return d.imageURL }
func (d Damage) Price() float64     { return d.price }

// DamageSnapshot is the persisted and serialized shape of a Damage.
type DamageSnapshot struct {
	ID       id.DamageID `json:"id"`
	Part     string      `json:"part"`
	Severity Severity    `json:"severity"`
	ImageURL string      `json:"imageUrl"`
	Price    float64     `json:"price"`
}

func (d Damage) Snapshot() DamageSnapshot {
	return DamageSnapshot{
		ID:       d.id,
		Part:     d.part,
		Severity: d.severity,
		ImageURL: d.imageURL,
		Price:    d.price,
	}
}

// Damage rebuilds the entity, re-running all validation.
func (s DamageSnapshot) Damage() (Damage, error) {
	return NewDamage(s.ID, s.Part, s.Severity, s.ImageURL, s.Price)
}
