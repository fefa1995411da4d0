package store

import (
	"context"
	"sort"
	"sync"

	"claimdesk/internal/claims/models"
	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
	"claimdesk/pkg/platform/sentinel"
)

// InMemory keeps claim snapshots in a map. Claims are copied in and out so
// callers never share state with the store.
type InMemory struct {
	mu     sync.RWMutex
	claims map[id.ClaimID]models.ClaimSnapshot
}

func NewInMemory() *InMemory {
	return &InMemory{claims: make(map[id.ClaimID]models.ClaimSnapshot)}
}

// Save upserts the claim by id.
func (s *InMemory) Save(_ context.Context, claim *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[claim.ID()] = claim.Snapshot()
	return nil
}

// Update is an alias of Save.
func (s *InMemory) Update(ctx context.Context, claim *models.Claim) error {
	return s.Save(ctx, claim)
}

func (s *InMemory) FindByID(_ context.Context, claimID id.ClaimID) (*models.Claim, error) {
	s.mu.RLock()
	snap, ok := s.claims[claimID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rehydrate(snap)
}

// FindAll filters, orders newest first and pages the stored claims.
func (s *InMemory) FindAll(_ context.Context, filter models.ClaimFilter) (*models.Page[models.ClaimSummary], error) {
	filter.Normalize()

	s.mu.RLock()
	summaries := make([]models.ClaimSummary, 0, len(s.claims))
	for _, snap := range s.claims {
		summary := summaryOf(snap)
		if filter.Matches(summary) {
			summaries = append(summaries, summary)
		}
	}
	s.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID.String() < summaries[j].ID.String()
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return models.Paginate(summaries, filter.Limit, filter.Offset), nil
}

// Delete removes the claim. Deleting a missing claim is not an error.
func (s *InMemory) Delete(_ context.Context, claimID id.ClaimID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, claimID)
	return nil
}

// DeleteIf removes the claim when guard returns nil. The guard sees the stored
// claim while the store lock is held.
func (s *InMemory) DeleteIf(ctx context.Context, claimID id.ClaimID, guard func(*models.Claim) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snap, ok := s.claims[claimID]
	if !ok {
		return sentinel.ErrNotFound
	}
	claim, err := rehydrate(snap)
	if err != nil {
		return err
	}
	if err := guard(claim); err != nil {
		return err
	}
	delete(s.claims, claimID)
	return nil
}

// Execute runs fn against the stored claim while holding the store lock and
// persists the result. Nothing is written when fn fails.
func (s *InMemory) Execute(ctx context.Context, claimID id.ClaimID, fn func(*models.Claim) error) (*models.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, ok := s.claims[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	claim, err := rehydrate(snap)
	if err != nil {
		return nil, err
	}
	if err := fn(claim); err != nil {
		return nil, err
	}
	s.claims[claimID] = claim.Snapshot()
	return claim, nil
}

// rehydrate rebuilds a stored claim. A stored document that no longer passes
// validation is a storage fault, not a caller mistake.
func rehydrate(snap models.ClaimSnapshot) (*models.Claim, error) {
	claim, err := models.RehydrateClaim(snap)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "stored claim "+snap.ID.String()+" is invalid")
	}
	return claim, nil
}

func summaryOf(snap models.ClaimSnapshot) models.ClaimSummary {
	var total float64
	for _, d := range snap.Damages {
		total += d.Price
	}
	return models.ClaimSummary{
		ID:          snap.ID,
		Title:       snap.Title,
		Description: snap.Description,
		Status:      snap.Status,
		TotalAmount: total,
		CreatedAt:   snap.CreatedAt,
	}
}
