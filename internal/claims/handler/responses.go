package handler

import (
	"time"

	"claimdesk/internal/claims/models"
	audit "claimdesk/pkg/platform/audit"
)

// DamageResponse is the HTTP shape of one damage.
type DamageResponse struct {
	ID       string  `json:"id"`
	Part     string  `json:"part"`
	Severity string  `json:"severity"`
	ImageURL string  `json:"imageUrl"`
	Price    float64 `json:"price"`
}

// ClaimResponse is the HTTP shape of a full claim.
type ClaimResponse struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      string           `json:"status"`
	Damages     []DamageResponse `json:"damages"`
	TotalAmount float64          `json:"totalAmount"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// ClaimSummaryResponse is one row of a claim listing.
type ClaimSummaryResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	TotalAmount float64   `json:"totalAmount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PageResponse wraps a paged listing.
type PageResponse[T any] struct {
	Data   []T `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// FromDamage converts a domain damage to its response.
func FromDamage(d models.Damage) DamageResponse {
	return DamageResponse{
		ID:       d.ID().String(),
		Part:     d.Part(),
		Severity: d.Severity().String(),
		ImageURL: d.ImageURL(),
		Price:    d.Price(),
	}
}

// FromClaim converts a domain claim to its response.
func FromClaim(c *models.Claim) *ClaimResponse {
	damages := c.Damages()
	out := make([]DamageResponse, 0, len(damages))
	for _, d := range damages {
		out = append(out, FromDamage(d))
	}
	return &ClaimResponse{
		ID:          c.ID().String(),
		Title:       c.Title(),
		Description: c.Description(),
		Status:      c.Status().String(),
		Damages:     out,
		TotalAmount: c.TotalAmount(),
		CreatedAt:   c.CreatedAt(),
		UpdatedAt:   c.UpdatedAt(),
	}
}

// FromSummaryPage converts a claim listing.
func FromSummaryPage(p *models.Page[models.ClaimSummary]) *PageResponse[ClaimSummaryResponse] {
	out := make([]ClaimSummaryResponse, 0, len(p.Data))
	for _, s := range p.Data {
		out = append(out, ClaimSummaryResponse{
			ID:          s.ID.String(),
			Title:       s.Title,
			Description: s.Description,
			Status:      s.Status.String(),
			TotalAmount: s.TotalAmount,
			CreatedAt:   s.CreatedAt,
		})
	}
	return &PageResponse[ClaimSummaryResponse]{Data: out, Total: p.Total, Limit: p.Limit, Offset: p.Offset}
}

// FromDamagePage converts a damage listing.
func FromDamagePage(p *models.Page[models.Damage]) *PageResponse[DamageResponse] {
	out := make([]DamageResponse, 0, len(p.Data))
	for _, d := range p.Data {
		out = append(out, FromDamage(d))
	}
	return &PageResponse[DamageResponse]{Data: out, Total: p.Total, Limit: p.Limit, Offset: p.Offset}
}

// AuditEventResponse is one entry of a claim's history.
type AuditEventResponse struct {
	Action     string    `json:"action"`
	Category   string    `json:"category"`
	Subject    string    `json:"subject,omitempty"`
	FromStatus string    `json:"fromStatus,omitempty"`
	ToStatus   string    `json:"toStatus,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// HistoryResponse wraps a claim's history.
type HistoryResponse struct {
	Data []AuditEventResponse `json:"data"`
}

func FromAuditEvents(events []audit.Event) *HistoryResponse {
	out := make([]AuditEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, AuditEventResponse{
			Action:     e.Action,
			Category:   string(e.Category),
			Subject:    e.Subject,
			FromStatus: e.FromStatus,
			ToStatus:   e.ToStatus,
			Reason:     e.Reason,
			RequestID:  e.RequestID,
			OccurredAt: e.Timestamp,
		})
	}
	return &HistoryResponse{Data: out}
}
