package models

import (
	"time"

	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
)

const (
	DefaultListLimit       = 10
	MaxListLimit           = 100
	DefaultDamageListLimit = 5
)

// ClaimSummary is the list projection of a claim.
type ClaimSummary struct {
	ID          id.ClaimID `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	TotalAmount float64    `json:"totalAmount"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ClaimFilter narrows and pages a claim listing. Results are ordered by
// CreatedAt, newest first.
type ClaimFilter struct {
	Status    Status
	ClientID  string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// Normalize applies paging defaults and clamps.
func (f *ClaimFilter) Normalize() {
	if f == nil {
		return
	}
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

func (f *ClaimFilter) Validate() error {
	if f == nil {
		return dErrors.New(dErrors.CodeBadRequest, "filter is required")
	}
	if f.Status != "" && !f.Status.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "status must be Pending, In Review, or Finished")
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return dErrors.New(dErrors.CodeValidation, "end date must not be before start date")
	}
	return nil
}

// Matches reports whether s passes every filter criterion. Paging is not
// considered. Claims carry no client id, so a ClientID criterion never matches.
func (f ClaimFilter) Matches(s ClaimSummary) bool {
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.ClientID != "" {
		return false
	}
	if f.StartDate != nil && s.CreatedAt.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && s.CreatedAt.After(*f.EndDate) {
		return false
	}
	return true
}

// Page is one window of a larger result set.
type Page[T any] struct {
	Data   []T `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Paginate slices items into a page. Offsets past the end yield an empty page.
func Paginate[T any](items []T, limit, offset int) *Page[T] {
	if offset < 0 {
		offset = 0
	}
	page := &Page[T]{Data: []T{}, Total: len(items), Limit: limit, Offset: offset}
	if offset >= len(items) || limit <= 0 {
		return page
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	page.Data = append(page.Data, items[offset:end]...)
	return page
}
