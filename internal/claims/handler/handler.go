package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"claimdesk/internal/claims/models"
	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
	audit "claimdesk/pkg/platform/audit"
	"claimdesk/pkg/platform/httputil"
	"claimdesk/pkg/requestcontext"
)

// Service defines the claim use-cases the handler exposes.
type Service interface {
	CreateClaim(ctx context.Context, req *models.CreateClaimRequest) (*models.Claim, error)
	GetClaimByID(ctx context.Context, claimID id.ClaimID) (*models.Claim, error)
	ListClaims(ctx context.Context, filter models.ClaimFilter) (*models.Page[models.ClaimSummary], error)
	ListDamages(ctx context.Context, claimID id.ClaimID, limit, offset int) (*models.Page[models.Damage], error)
	AddDamage(ctx context.Context, claimID id.ClaimID, req *models.AddDamageRequest) (*models.Claim, error)
	UpdateDamage(ctx context.Context, claimID id.ClaimID, damageID id.DamageID, req *models.UpdateDamageRequest) (*models.Claim, error)
	RemoveDamage(ctx context.Context, claimID id.ClaimID, damageID id.DamageID) (*models.Claim, error)
	UpdateClaim(ctx context.Context, claimID id.ClaimID, req *models.UpdateClaimRequest) (*models.Claim, error)
	TransitionStatus(ctx context.Context, claimID id.ClaimID, target models.Status) (*models.Claim, error)
	DeleteClaim(ctx context.Context, claimID id.ClaimID) error
	ClaimHistory(ctx context.Context, claimID id.ClaimID) ([]audit.Event, error)
}

// Handler wires claim endpoints to the claim service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a claim handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts claim endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/claims", func(r chi.Router) {
		r.Post("/", h.HandleCreateClaim)
		r.Get("/", h.HandleListClaims)
		r.Route("/{claimID}", func(r chi.Router) {
			r.Get("/", h.HandleGetClaim)
			r.Patch("/", h.HandleUpdateClaim)
			r.Delete("/", h.HandleDeleteClaim)
			r.Post("/status", h.HandleTransitionStatus)
			r.Get("/history", h.HandleClaimHistory)
			r.Get("/damages", h.HandleListDamages)
			r.Post("/damages", h.HandleAddDamage)
			r.Patch("/damages/{damageID}", h.HandleUpdateDamage)
			r.Delete("/damages/{damageID}", h.HandleRemoveDamage)
		})
	})
}

// HandleCreateClaim handles POST /claims.
func (h *Handler) HandleCreateClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CreateClaimRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	claim, err := h.service.CreateClaim(ctx, req)
	if err != nil {
		h.fail(ctx, w, "create claim failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromClaim(claim))
}

// HandleListClaims handles GET /claims.
func (h *Handler) HandleListClaims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := parseClaimFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.service.ListClaims(ctx, filter)
	if err != nil {
		h.fail(ctx, w, "list claims failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSummaryPage(page))
}

// HandleGetClaim handles GET /claims/{claimID}.
func (h *Handler) HandleGetClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := claimIDParam(w, r)
	if !ok {
		return
	}
	claim, err := h.service.GetClaimByID(ctx, claimID)
	if err != nil {
		h.fail(ctx, w, "get claim failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromClaim(claim))
}

// HandleUpdateClaim handles PATCH /claims/{claimID}.
func (h *Handler) HandleUpdateClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := claimIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdateClaimRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	claim, err := h.service.UpdateClaim(ctx, claimID, req)
	if err != nil {
		h.fail(ctx, w, "update claim failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromClaim(claim))
}

// HandleDeleteClaim handles DELETE /claims/{claimID}.
func (h *Handler) HandleDeleteClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := claimIDParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteClaim(ctx, claimID); err != nil {
		h.fail(ctx, w, "delete claim failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleTransitionStatus handles POST /claims/{claimID}/status.
func (h *Handler) HandleTransitionStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := claimIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.TransitionStatusRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	target, err := models.ParseStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	claim, err := h.service.TransitionStatus(ctx, claimID, target)
	if err != nil {
		h.fail(ctx, w, "transition status failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromClaim(claim))
}

// HandleListDamages handles GET /claims/{claimID}/damages.
func (h *Handler) HandleListDamages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := claimIDParam(w, r)
	if !ok {
		return
	}
	limit, offset, err := parsePaging(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.service.ListDamages(ctx, claimID, limit, offset)
	if err != nil {
		h.fail(ctx, w, "list damages failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDamagePage(page))
}

// HandleClaimHistory handles GET /claims/{claimID}/history.
func (h *Handler) HandleClaimHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := claimIDParam(w, r)
	if !ok {
		return
	}
	events, err := h.service.ClaimHistory(ctx, claimID)
	if err != nil {
		h.fail(ctx, w, "claim history failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAuditEvents(events))
}

// HandleAddDamage handles POST /claims/{claimID}/damages.
func (h *Handler) HandleAddDamage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := claimIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.AddDamageRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	claim, err := h.service.AddDamage(ctx, claimID, req)
	if err != nil {
		h.fail(ctx, w, "add damage failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromClaim(claim))
}

// HandleUpdateDamage handles PATCH /claims/{claimID}/damages/{damageID}.
func (h *Handler) HandleUpdateDamage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := claimIDParam(w, r)
	if !ok {
		return
	}
	damageID, ok := damageIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdateDamageRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	claim, err := h.service.UpdateDamage(ctx, claimID, damageID, req)
	if err != nil {
		h.fail(ctx, w, "update damage failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromClaim(claim))
}

// HandleRemoveDamage handles DELETE /claims/{claimID}/damages/{damageID}.
func (h *Handler) HandleRemoveDamage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := claimIDParam(w, r)
	if !ok {
		return
	}
	damageID, ok := damageIDParam(w, r)
	if !ok {
		return
	}
	if _, err := h.service.RemoveDamage(ctx, claimID, damageID); err != nil {
		h.fail(ctx, w, "remove damage failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail logs at warn for caller mistakes and at error for everything else,
// then writes the error response.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if h.logger != nil {
		attrs := []any{
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		}
		if dErrors.HTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, msg, attrs...)
		} else {
			h.logger.WarnContext(ctx, msg, attrs...)
		}
	}
	httputil.WriteError(w, err)
}

func claimIDParam(w http.ResponseWriter, r *http.Request) (id.ClaimID, bool) {
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ClaimID{}, false
	}
	return claimID, true
}

func damageIDParam(w http.ResponseWriter, r *http.Request) (id.DamageID, bool) {
	damageID, err := id.ParseDamageID(chi.URLParam(r, "damageID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.DamageID{}, false
	}
	return damageID, true
}

func parsePaging(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if limit, err = queryInt(q.Get("limit"), "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(q.Get("offset"), "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func parseClaimFilter(r *http.Request) (models.ClaimFilter, error) {
	var filter models.ClaimFilter
	limit, offset, err := parsePaging(r)
	if err != nil {
		return filter, err
	}
	filter.Limit, filter.Offset = limit, offset

	q := r.URL.Query()
	if raw := q.Get("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}
	filter.ClientID = strings.TrimSpace(q.Get("clientId"))
	if filter.StartDate, err = queryTime(q.Get("startDate"), "startDate"); err != nil {
		return filter, err
	}
	if filter.EndDate, err = queryTime(q.Get("endDate"), "endDate"); err != nil {
		return filter, err
	}
	return filter, nil
}

func queryInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, name+" must be a non-negative integer")
	}
	return v, nil
}

// queryTime accepts RFC 3339 timestamps or plain dates.
func queryTime(raw, name string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeBadRequest, name+" must be an RFC 3339 timestamp or YYYY-MM-DD date")
}
