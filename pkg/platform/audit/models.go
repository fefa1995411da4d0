package audit

import (
	"context"
	"time"

	id "claimdesk/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events that change the legal record of a claim.
	// Examples: claim creation, status changes, claim deletion.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine edits useful for debugging and support.
	// Examples: damage edits, detail edits, rejected mutations.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from claim use-cases to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	ClaimID   id.ClaimID
	// Subject is the entity acted on inside the claim, e.g. a damage id.
	Subject    string
	Action     string
	FromStatus string
	ToStatus   string
	// Reason carries the rejection message or rule tag for failed mutations.
	Reason    string
	RequestID string
}

type AuditEvent string

const (
	EventClaimCreated       AuditEvent = "claim_created"
	EventClaimUpdated       AuditEvent = "claim_updated"
	EventClaimDeleted       AuditEvent = "claim_deleted"
	EventClaimStatusChanged AuditEvent = "claim_status_changed"
	EventDamageAdded        AuditEvent = "damage_added"
	EventDamageUpdated      AuditEvent = "damage_updated"
	EventDamageRemoved      AuditEvent = "damage_removed"
	EventMutationRejected   AuditEvent = "claim_mutation_rejected"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventClaimCreated:       CategoryCompliance,
	EventClaimDeleted:       CategoryCompliance,
	EventClaimStatusChanged: CategoryCompliance,

	EventClaimUpdated:     CategoryOperations,
	EventDamageAdded:      CategoryOperations,
	EventDamageUpdated:    CategoryOperations,
	EventDamageRemoved:    CategoryOperations,
	EventMutationRejected: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Reader is implemented by stores that can replay a claim's history.
type Reader interface {
	ListByClaim(ctx context.Context, claimID id.ClaimID) ([]Event, error)
}
