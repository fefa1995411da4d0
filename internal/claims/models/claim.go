package models

import (
	"fmt"
	"time"
	"unicode/utf8"

	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000

	// MinFinishDescriptionLength is exclusive: a claim needs strictly more
	// characters than this to be finished.
	MinFinishDescriptionLength = 100
)

// Claim is the aggregate root of the claims context.
//
// Invariants:
//   - title is 1-200 characters, description 1-2000 characters
//   - status and state always describe the same lifecycle position
//   - damage ids are unique within the claim; insertion order is preserved
//   - a Finished claim never changes again
//
// All mutations are routed through the current claim state. The aggregate only
// stores data; the states decide what is allowed.
type Claim struct {
	id          id.ClaimID
	title       string
	description string
	status      Status
	state       claimState
	damages     []Damage
	createdAt   time.Time
	updatedAt   time.Time
}

// NewClaim builds a Pending claim. Initial damages go through the Pending state
// so duplicate ids are rejected the same way as later additions.
func NewClaim(claimID id.ClaimID, title, description string, damages []Damage, now time.Time) (*Claim, error) {
	if claimID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "claim id is required")
	}
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}

	c := &Claim{
		id:          claimID,
		title:       title,
		description: description,
		status:      StatusPending,
		state:       pendingState{},
		damages:     make([]Damage, 0, len(damages)),
		createdAt:   now,
		updatedAt:   now,
	}
	for _, d := range damages {
		if err := c.state.addDamage(c, d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func validateTitle(title string) error {
	if title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return dErrors.New(dErrors.CodeValidation, "title must be 200 characters or less")
	}
	return nil
}

func validateDescription(description string) error {
	if description == "" {
		return dErrors.New(dErrors.CodeValidation, "description is required")
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return dErrors.New(dErrors.CodeValidation, "description must be 2000 characters or less")
	}
	return nil
}

func (c *Claim) ID() id.ClaimID       { return c.id }
func (c *Claim) Title() string        { return c.title }
func (c *Claim) Description() string  { return c.description }
func (c *Claim) Status() Status       { return c.status }
func (c *Claim) CreatedAt() time.Time { return c.createdAt }
func (c *Claim) UpdatedAt() time.Time { return c.updatedAt }

// Damages returns a copy; changing it does not affect the claim.
func (c *Claim) Damages() []Damage {
	out := make([]Damage, len(c.damages))
	copy(out, c.damages)
	return out
}

// Damage returns the damage with damageID, if present.
func (c *Claim) Damage(damageID id.DamageID) (Damage, bool) {
	i := c.indexOfDamage(damageID)
	if i < 0 {
		return Damage{}, false
	}
	return c.damages[i], true
}

// TotalAmount is recomputed from the damages on every call.
func (c *Claim) TotalAmount() float64 {
	var total float64
	for _, d := range c.damages {
		total += d.Price()
	}
	return total
}

// AddDamage appends d if the current state allows it.
func (c *Claim) AddDamage(d Damage, now time.Time) error {
	if err := c.state.addDamage(c, d); err != nil {
		return err
	}
	c.touch(now)
	return nil
}

// RemoveDamage drops the damage with damageID if the current state allows it.
func (c *Claim) RemoveDamage(damageID id.DamageID, now time.Time) error {
	if err := c.state.removeDamage(c, damageID); err != nil {
		return err
	}
	c.touch(now)
	return nil
}

// UpdateDamage replaces the damage with the same id, keeping its position.
func (c *Claim) UpdateDamage(d Damage, now time.Time) error {
	if err := c.state.updateDamage(c, d); err != nil {
		return err
	}
	c.touch(now)
	return nil
}

// EditDamage applies revise to the damage with damageID. The state is asked
// first, so a locked claim rejects the edit whether or not the damage exists.
func (c *Claim) EditDamage(damageID id.DamageID, revise func(Damage) (Damage, error), now time.Time) error {
	if err := c.state.damagesEditable(); err != nil {
		return err
	}
	current, ok := c.Damage(damageID)
	if !ok {
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("damage %s not found on claim", damageID))
	}
	next, err := revise(current)
	if err != nil {
		return err
	}
	return c.UpdateDamage(next, now)
}

// UpdateDetails edits title and description. Empty values keep the current text.
func (c *Claim) UpdateDetails(title, description string, now time.Time) error {
	if title == "" && description == "" {
		return nil
	}
	if err := c.state.editDetails(c, title, description); err != nil {
		return err
	}
	c.touch(now)
	return nil
}

// TransitionTo moves the claim to target. A failed transition leaves status,
// state and UpdatedAt untouched.
func (c *Claim) TransitionTo(target Status, now time.Time) error {
	if !target.IsValid() {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown claim status %q", target))
	}
	if err := c.state.transitionTo(c, target); err != nil {
		return err
	}
	c.touch(now)
	return nil
}

// ValidateFinishRules is the guard for entering Finished: the description must
// be longer than 100 characters and at least one damage must have high
// severity. The description check is reported first when both fail.
func (c *Claim) ValidateFinishRules() error {
	if utf8.RuneCountInString(c.description) <= MinFinishDescriptionLength {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"cannot finish claim: description must exceed 100 characters")
	}
	for _, d := range c.damages {
		if d.Severity() == SeverityHigh {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeInvariantViolation,
		"cannot finish claim: at least one damage must have high severity")
}

func (c *Claim) touch(now time.Time) {
	if !now.IsZero() {
		c.updatedAt = now
	}
}

func (c *Claim) indexOfDamage(damageID id.DamageID) int {
	for i, d := range c.damages {
		if d.ID() == damageID {
			return i
		}
	}
	return -1
}

// Mutators below are reachable only from the states in this package.

func (c *Claim) internalAddDamage(d Damage) {
	c.damages = append(c.damages, d)
}

func (c *Claim) internalRemoveDamage(damageID id.DamageID) {
	i := c.indexOfDamage(damageID)
	if i < 0 {
		return
	}
	c.damages = append(c.damages[:i:i], c.damages[i+1:]...)
}

func (c *Claim) internalUpdateDamage(d Damage) {
	if i := c.indexOfDamage(d.ID()); i >= 0 {
		c.damages[i] = d
	}
}

func (c *Claim) internalSetDetails(title, description string) error {
	if title != "" {
		if err := validateTitle(title); err != nil {
			return err
		}
	}
	if description != "" {
		if err := validateDescription(description); err != nil {
			return err
		}
	}
	if title != "" {
		c.title = title
	}
	if description != "" {
		c.description = description
	}
	return nil
}

func (c *Claim) internalSetStatus(s Status) {
	state, err := stateFor(s)
	if err != nil {
		return
	}
	c.status = s
	c.state = state
}

// ClaimSnapshot is the persisted and serialized shape of a Claim.
// TotalAmount is written for readers; RehydrateClaim ignores it.
type ClaimSnapshot struct {
	ID          id.ClaimID       `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      Status           `json:"status"`
	Damages     []DamageSnapshot `json:"damages"`
	TotalAmount float64          `json:"totalAmount"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

func (c *Claim) Snapshot() ClaimSnapshot {
	damages := make([]DamageSnapshot, len(c.damages))
	for i, d := range c.damages {
		damages[i] = d.Snapshot()
	}
	return ClaimSnapshot{
		ID:          c.id,
		Title:       c.title,
		Description: c.description,
		Status:      c.status,
		Damages:     damages,
		TotalAmount: c.TotalAmount(),
		CreatedAt:   c.createdAt,
		UpdatedAt:   c.updatedAt,
	}
}

// RehydrateClaim rebuilds a claim from storage. The state is derived from the
// stored status without running transition guards; damages are re-validated.
func RehydrateClaim(s ClaimSnapshot) (*Claim, error) {
	if s.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "claim id is required")
	}
	state, err := stateFor(s.Status)
	if err != nil {
		return nil, err
	}
	c := &Claim{
		id:          s.ID,
		title:       s.Title,
		description: s.Description,
		status:      s.Status,
		state:       state,
		damages:     make([]Damage, 0, len(s.Damages)),
		createdAt:   s.CreatedAt,
		updatedAt:   s.UpdatedAt,
	}
	for _, ds := range s.Damages {
		d, err := ds.Damage()
		if err != nil {
			return nil, fmt.Errorf("rehydrate damage %s: %w", ds.ID, err)
		}
		if c.indexOfDamage(d.ID()) >= 0 {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("duplicate damage %s", d.ID()))
		}
		c.damages = append(c.damages, d)
	}
	return c, nil
}

// Summary projects the claim for list responses.
func (c *Claim) Summary() ClaimSummary {
	return ClaimSummary{
		ID:          c.id,
		Title:       c.title,
		Description: c.description,
		Status:      c.status,
		TotalAmount: c.TotalAmount(),
		CreatedAt:   c.createdAt,
	}
}
