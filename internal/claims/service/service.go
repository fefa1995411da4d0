package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"claimdesk/internal/claims/metrics"
	"claimdesk/internal/claims/models"
	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
	audit "claimdesk/pkg/platform/audit"
	"claimdesk/pkg/platform/sentinel"
	"claimdesk/pkg/requestcontext"
)

const tracerName = "claimdesk/claims"

// ClaimStore is the persistence boundary for claims.
type ClaimStore interface {
	Save(ctx context.Context, claim *models.Claim) error
	Update(ctx context.Context, claim *models.Claim) error
	FindByID(ctx context.Context, claimID id.ClaimID) (*models.Claim, error)
	FindAll(ctx context.Context, filter models.ClaimFilter) (*models.Page[models.ClaimSummary], error)
	// DeleteIf removes the claim when guard accepts it. The guard and the
	// delete run under the same per-claim lock as Execute.
	DeleteIf(ctx context.Context, claimID id.ClaimID, guard func(*models.Claim) error) error
	// Execute loads the claim, runs fn and persists the result while holding a
	// per-claim lock. Nothing is persisted when fn returns an error.
	Execute(ctx context.Context, claimID id.ClaimID, fn func(*models.Claim) error) (*models.Claim, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// AuditHistory reads back a claim's audit trail. Only sinks that can be
// queried (Postgres, memory) provide one.
type AuditHistory interface {
	List(ctx context.Context, claimID id.ClaimID) ([]audit.Event, error)
}

// Service orchestrates the claim use-cases.
type Service struct {
	claims         ClaimStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	auditHistory   AuditHistory
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithAuditHistory(history AuditHistory) Option {
	return func(s *Service) {
		s.auditHistory = history
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New constructs a Service.
func New(claims ClaimStore, opts ...Option) (*Service, error) {
	if claims == nil {
		return nil, errors.New("claim store is required")
	}
	s := &Service{
		claims: claims,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateClaim opens a Pending claim with fresh ids for the claim and every
// initial damage.
func (s *Service) CreateClaim(ctx context.Context, req *models.CreateClaimRequest) (claim *models.Claim, err error) {
	ctx, done := s.begin(ctx, "create_claim")
	defer func() { done(err) }()

	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	damages := make([]models.Damage, 0, len(req.Damages))
	for i := range req.Damages {
		d, err := req.Damages[i].ToDamage(id.NewDamageID())
		if err != nil {
			return nil, err
		}
		damages = append(damages, d)
	}

	claim, err = models.NewClaim(id.NewClaimID(), req.Title, req.Description, damages, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.claims.Save(ctx, claim); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save claim")
	}

	s.logAudit(ctx, audit.EventClaimCreated, claim.ID(),
		"damages", len(damages),
		"total_amount", claim.TotalAmount(),
	)
	if s.metrics != nil {
		s.metrics.IncrementClaimsCreated()
		if len(damages) > 0 {
			s.metrics.IncrementDamagesAdded(len(damages))
		}
	}
	return claim, nil
}

// GetClaimByID loads a claim.
func (s *Service) GetClaimByID(ctx context.Context, claimID id.ClaimID) (claim *models.Claim, err error) {
	ctx, done := s.begin(ctx, "get_claim")
	defer func() { done(err) }()

	if err := requireClaimID(claimID); err != nil {
		return nil, err
	}
	claim, err = s.claims.FindByID(ctx, claimID)
	if err != nil {
		return nil, wrapClaimErr(err, "failed to load claim")
	}
	return claim, nil
}

// ListClaims pages claim summaries, newest first.
func (s *Service) ListClaims(ctx context.Context, filter models.ClaimFilter) (page *models.Page[models.ClaimSummary], err error) {
	ctx, done := s.begin(ctx, "list_claims")
	defer func() { done(err) }()

	filter.Normalize()
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	page, err = s.claims.FindAll(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list claims")
	}
	return page, nil
}

// ListDamages pages the damages of one claim in insertion order.
// A non-positive limit uses models.DefaultDamageListLimit.
func (s *Service) ListDamages(ctx context.Context, claimID id.ClaimID, limit, offset int) (page *models.Page[models.Damage], err error) {
	ctx, done := s.begin(ctx, "list_damages")
	defer func() { done(err) }()

	claim, err := s.GetClaimByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = models.DefaultDamageListLimit
	}
	if limit > models.MaxListLimit {
		limit = models.MaxListLimit
	}
	return models.Paginate(claim.Damages(), limit, offset), nil
}

// AddDamage appends a damage with a fresh id. Only Pending claims accept damages.
func (s *Service) AddDamage(ctx context.Context, claimID id.ClaimID, req *models.AddDamageRequest) (claim *models.Claim, err error) {
	ctx, done := s.begin(ctx, "add_damage")
	defer func() { done(err) }()

	if err := requireClaimID(claimID); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	damage, err := req.ToDamage(id.NewDamageID())
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	claim, err = s.claims.Execute(ctx, claimID, func(c *models.Claim) error {
		return c.AddDamage(damage, now)
	})
	if err != nil {
		return nil, s.rejected(ctx, claimID, audit.EventDamageAdded, err)
	}

	s.logAudit(ctx, audit.EventDamageAdded, claimID, "damage_id", damage.ID().String())
	if s.metrics != nil {
		s.metrics.IncrementDamagesAdded(1)
	}
	return claim, nil
}

// UpdateDamage replaces the fields present in req, keeping the rest.
func (s *Service) UpdateDamage(ctx context.Context, claimID id.ClaimID, damageID id.DamageID, req *models.UpdateDamageRequest) (claim *models.Claim, err error) {
	ctx, done := s.begin(ctx, "update_damage")
	defer func() { done(err) }()

	if err := requireClaimID(claimID); err != nil {
		return nil, err
	}
	if damageID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "damage ID required")
	}
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	claim, err = s.claims.Execute(ctx, claimID, func(c *models.Claim) error {
		return c.EditDamage(damageID, req.Apply, now)
	})
	if err != nil {
		return nil, s.rejected(ctx, claimID, audit.EventDamageUpdated, err)
	}

	s.logAudit(ctx, audit.EventDamageUpdated, claimID, "damage_id", damageID.String())
	return claim, nil
}

// RemoveDamage drops a damage from a Pending claim.
func (s *Service) RemoveDamage(ctx context.Context, claimID id.ClaimID, damageID id.DamageID) (claim *models.Claim, err error) {
	ctx, done := s.begin(ctx, "remove_damage")
	defer func() { done(err) }()

	if err := requireClaimID(claimID); err != nil {
		return nil, err
	}
	if damageID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "damage ID required")
	}

	now := requestcontext.Now(ctx)
	claim, err = s.claims.Execute(ctx, claimID, func(c *models.Claim) error {
		return c.RemoveDamage(damageID, now)
	})
	if err != nil {
		return nil, s.rejected(ctx, claimID, audit.EventDamageRemoved, err)
	}

	s.logAudit(ctx, audit.EventDamageRemoved, claimID, "damage_id", damageID.String())
	if s.metrics != nil {
		s.metrics.IncrementDamagesRemoved()
	}
	return claim, nil
}

// UpdateClaim edits title and description when present and non-empty, then
// moves the status when one is requested and differs from the current one.
// Either both parts apply or neither does.
func (s *Service) UpdateClaim(ctx context.Context, claimID id.ClaimID, req *models.UpdateClaimRequest) (claim *models.Claim, err error) {
	ctx, done := s.begin(ctx, "update_claim")
	defer func() { done(err) }()

	if err := requireClaimID(claimID); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var from models.Status
	claim, err = s.claims.Execute(ctx, claimID, func(c *models.Claim) error {
		from = c.Status()
		if err := c.UpdateDetails(req.TitleValue(), req.DescriptionValue(), now); err != nil {
			return err
		}
		if target, ok := req.TargetStatus(); ok && target != c.Status() {
			return c.TransitionTo(target, now)
		}
		return nil
	})
	if err != nil {
		return nil, s.rejected(ctx, claimID, audit.EventClaimUpdated, err)
	}

	s.logAudit(ctx, audit.EventClaimUpdated, claimID)
	if claim.Status() != from {
		s.recordTransition(ctx, claimID, from, claim.Status())
	}
	return claim, nil
}

// TransitionStatus moves the claim to target through its current state.
func (s *Service) TransitionStatus(ctx context.Context, claimID id.ClaimID, target models.Status) (claim *models.Claim, err error) {
	ctx, done := s.begin(ctx, "transition_status")
	defer func() { done(err) }()

	if err := requireClaimID(claimID); err != nil {
		return nil, err
	}
	if !target.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "status must be Pending, In Review, or Finished")
	}

	now := requestcontext.Now(ctx)
	var from models.Status
	claim, err = s.claims.Execute(ctx, claimID, func(c *models.Claim) error {
		from = c.Status()
		return c.TransitionTo(target, now)
	})
	if err != nil {
		return nil, s.rejected(ctx, claimID, audit.EventClaimStatusChanged, err)
	}

	s.recordTransition(ctx, claimID, from, claim.Status())
	return claim, nil
}

// DeleteClaim removes a claim. Finished claims are part of the permanent
// record and cannot be deleted.
func (s *Service) DeleteClaim(ctx context.Context, claimID id.ClaimID) (err error) {
	ctx, done := s.begin(ctx, "delete_claim")
	defer func() { done(err) }()

	if err := requireClaimID(claimID); err != nil {
		return err
	}
	err = s.claims.DeleteIf(ctx, claimID, func(c *models.Claim) error {
		if c.Status().IsTerminal() {
			return dErrors.NewRule(models.RuleFinishedImmutable, "a finished claim cannot be deleted")
		}
		return nil
	})
	if err != nil {
		return s.rejected(ctx, claimID, audit.EventClaimDeleted, err)
	}

	s.logAudit(ctx, audit.EventClaimDeleted, claimID)
	if s.metrics != nil {
		s.metrics.IncrementClaimsDeleted()
	}
	return nil
}

// ClaimHistory returns the recorded audit events for a claim, oldest first.
// Events emitted through an async buffer may not be visible yet.
func (s *Service) ClaimHistory(ctx context.Context, claimID id.ClaimID) (events []audit.Event, err error) {
	ctx, done := s.begin(ctx, "claim_history")
	defer func() { done(err) }()

	if err := requireClaimID(claimID); err != nil {
		return nil, err
	}
	if s.auditHistory == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "audit history is not recorded")
	}
	if _, err := s.claims.FindByID(ctx, claimID); err != nil {
		return nil, wrapClaimErr(err, "failed to load claim")
	}
	events, err = s.auditHistory.List(ctx, claimID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit history")
	}
	return events, nil
}

// begin starts a span and returns the function that closes it and records
// the operation duration.
func (s *Service) begin(ctx context.Context, operation string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "claims."+operation,
		trace.WithAttributes(attribute.String("claims.operation", operation)))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		}
		span.End()
		if s.metrics != nil {
			s.metrics.ObserveOperation(operation, start)
		}
	}
}

// rejected translates a failed mutation and records business-rule rejections.
func (s *Service) rejected(ctx context.Context, claimID id.ClaimID, event audit.AuditEvent, err error) error {
	err = wrapClaimErr(err, "failed to update claim")
	if !dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		return err
	}
	rule := dErrors.RuleOf(err)
	if s.metrics != nil {
		s.metrics.RecordRuleViolation(rule)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "claim mutation rejected",
			"claim_id", claimID.String(),
			"attempted", string(event),
			"rule", rule,
			"reason", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	s.emit(ctx, audit.Event{
		ClaimID: claimID,
		Action:  string(audit.EventMutationRejected),
		Subject: string(event),
		Reason:  err.Error(),
	})
	return err
}

func (s *Service) recordTransition(ctx context.Context, claimID id.ClaimID, from, to models.Status) {
	s.logAudit(ctx, audit.EventClaimStatusChanged, claimID,
		"from_status", from.String(),
		"to_status", to.String(),
	)
	if s.metrics != nil {
		s.metrics.RecordTransition(from.String(), to.String())
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, claimID id.ClaimID, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "claim_id", claimID.String(), "event", string(event), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event), args...)
	}

	e := audit.Event{ClaimID: claimID, Action: string(event)}
	for i := 0; i+1 < len(attributes); i += 2 {
		key, _ := attributes[i].(string)
		value, _ := attributes[i+1].(string)
		switch key {
		case "damage_id":
			e.Subject = value
		case "from_status":
			e.FromStatus = value
		case "to_status":
			e.ToStatus = value
		}
	}
	s.emit(ctx, e)
}

// emit publishes best-effort: audit failures are logged and never fail the
// use-case that produced them.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.Timestamp = requestcontext.Now(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"claim_id", event.ClaimID.String(),
			"error", err,
		)
	}
}

func requireClaimID(claimID id.ClaimID) error {
	if claimID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "claim ID required")
	}
	return nil
}

// wrapClaimErr maps store sentinels onto coded errors. Coded errors raised by
// the aggregate pass through unchanged.
func wrapClaimErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "claim not found")
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
