package models

import (
	"fmt"

	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
)

// Business rule tags carried by invariant violations.
const (
	RuleFinishedImmutable = "BR-01"
	RuleInReviewLocked    = "BR-02"
)

// claimState is the per-status strategy a Claim routes every mutation through.
// Implementations hold no data; they decide whether an operation is allowed and
// call the claim's unexported mutators when it is. Only Claim calls them, so
// every accepted mutation also bumps UpdatedAt.
type claimState interface {
	status() Status
	// damagesEditable reports whether any damage mutation is allowed,
	// before the damage itself is looked up.
	damagesEditable() error
	addDamage(c *Claim, d Damage) error
	removeDamage(c *Claim, damageID id.DamageID) error
	updateDamage(c *Claim, d Damage) error
	editDetails(c *Claim, title, description string) error
	transitionTo(c *Claim, target Status) error
}

// stateFor maps a persisted status onto its strategy. It runs no guards so any
// stored claim can be rehydrated.
func stateFor(s Status) (claimState, error) {
	switch s {
	case StatusPending:
		return pendingState{}, nil
	case StatusInReview:
		return inReviewState{}, nil
	case StatusFinished:
		return finishedState{}, nil
	default:
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown claim status %q", s))
	}
}

func invalidTransition(from, to Status) error {
	return dErrors.New(dErrors.CodeInvariantViolation,
		fmt.Sprintf("cannot transition claim from %s to %s", from, to))
}

// pendingState is the only status in which damages can be edited.
type pendingState struct{}

func (pendingState) status() Status { return StatusPending }

func (pendingState) damagesEditable() error { return nil }

func (pendingState) addDamage(c *Claim, d Damage) error {
	if c.indexOfDamage(d.ID()) >= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("damage %s already exists on claim", d.ID()))
	}
	c.internalAddDamage(d)
	return nil
}

func (pendingState) removeDamage(c *Claim, damageID id.DamageID) error {
	if c.indexOfDamage(damageID) < 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("damage %s not found on claim", damageID))
	}
	c.internalRemoveDamage(damageID)
	return nil
}

func (pendingState) updateDamage(c *Claim, d Damage) error {
	if c.indexOfDamage(d.ID()) < 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("damage %s not found on claim", d.ID()))
	}
	c.internalUpdateDamage(d)
	return nil
}

func (pendingState) editDetails(c *Claim, title, description string) error {
	return c.internalSetDetails(title, description)
}

func (s pendingState) transitionTo(c *Claim, target Status) error {
	switch target {
	case StatusInReview:
		c.internalSetStatus(StatusInReview)
		return nil
	case StatusFinished:
		if err := c.ValidateFinishRules(); err != nil {
			return err
		}
		c.internalSetStatus(StatusFinished)
		return nil
	default:
		return invalidTransition(s.status(), target)
	}
}

// inReviewState locks damages while a reviewer looks at the claim.
type inReviewState struct{}

func (inReviewState) status() Status { return StatusInReview }

func inReviewLocked() error {
	return dErrors.NewRule(RuleInReviewLocked, "damages cannot be changed while the claim is In Review")
}

func (inReviewState) damagesEditable() error                 { return inReviewLocked() }
func (inReviewState) addDamage(*Claim, Damage) error         { return inReviewLocked() }
func (inReviewState) removeDamage(*Claim, id.DamageID) error { return inReviewLocked() }
func (inReviewState) updateDamage(*Claim, Damage) error      { return inReviewLocked() }
func (inReviewState) editDetails(c *Claim, title, description string) error {
	return c.internalSetDetails(title, description)
}

func (s inReviewState) transitionTo(c *Claim, target Status) error {
	switch target {
	case StatusPending:
		c.internalSetStatus(StatusPending)
		return nil
	case StatusFinished:
		if err := c.ValidateFinishRules(); err != nil {
			return err
		}
		c.internalSetStatus(StatusFinished)
		return nil
	default:
		return invalidTransition(s.status(), target)
	}
}

// finishedState is terminal.
type finishedState struct{}

func (finishedState) status() Status { return StatusFinished }

func finishedImmutable() error {
	return dErrors.NewRule(RuleFinishedImmutable, "a finished claim cannot be modified")
}

func (finishedState) damagesEditable() error                   { return finishedImmutable() }
func (finishedState) addDamage(*Claim, Damage) error           { return finishedImmutable() }
func (finishedState) removeDamage(*Claim, id.DamageID) error   { return finishedImmutable() }
func (finishedState) updateDamage(*Claim, Damage) error        { return finishedImmutable() }
func (finishedState) editDetails(*Claim, string, string) error { return finishedImmutable() }

func (s finishedState) transitionTo(_ *Claim, target Status) error {
	return dErrors.New(dErrors.CodeInvariantViolation,
		fmt.Sprintf("cannot transition claim from %s to %s: %s is a final state", s.status(), target, s.status()))
}
