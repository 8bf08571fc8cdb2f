package subject

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/helpdesk-access/internal"
	"github.com/frahmantamala/helpdesk-access/internal/access"
	"github.com/frahmantamala/helpdesk-access/internal/transport"
)

type ServiceAPI interface {
	Assignments(ctx context.Context, subjectID string) ([]access.RoleAssignment, error)
	ReplaceAssignments(ctx context.Context, actorID, subjectID string, assignments []access.RoleAssignment) error
	Overrides(ctx context.Context, subjectID string) ([]access.Override, error)
	UpsertOverride(ctx context.Context, actorID, subjectID string, o access.Override) error
	ClearOverrides(ctx context.Context, actorID, subjectID string) error
	Grants(ctx context.Context, subjectID string) ([]access.Grant, error)
	AddGrant(ctx context.Context, actorID, subjectID string, g access.Grant) (access.Grant, error)
	RevokeGrant(ctx context.Context, actorID, subjectID, grantID string) error
	Effective(ctx context.Context, subjectID string, evalCtx access.EvaluationContext, now time.Time) (*EffectiveAccess, error)
	Can(ctx context.Context, subjectID string, permission access.Permission, evalCtx access.EvaluationContext, now time.Time) (bool, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Now     func() time.Time
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Now:         now,
	}
}

// Routes mounts the subject endpoints. Reads go through requireRead and
// writes through requireManage; a nil guard leaves its group open.
func (h *Handler) Routes(r chi.Router, requireRead, requireManage func(http.Handler) http.Handler) {
	r.Route("/subjects/{subjectID}", func(sr chi.Router) {
		sr.Group(func(rr chi.Router) {
			if requireRead != nil {
				rr.Use(requireRead)
			}
			rr.Get("/assignments", h.GetAssignments)
			rr.Get("/overrides", h.GetOverrides)
			rr.Get("/grants", h.GetGrants)
			rr.Get("/effective", h.GetEffective)
			rr.Get("/can/{permission}", h.GetDecision)
		})

		sr.Group(func(wr chi.Router) {
			if requireManage != nil {
				wr.Use(requireManage)
			}
			wr.Put("/assignments", h.ReplaceAssignments)
			wr.Put("/overrides", h.UpsertOverride)
			wr.Delete("/overrides", h.ClearOverrides)
			wr.Post("/grants", h.AddGrant)
			wr.Delete("/grants/{grantID}", h.RevokeGrant)
		})
	})
}

func (h *Handler) GetAssignments(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	assignments, err := h.Service.Assignments(r.Context(), subjectID)
	if err != nil {
		h.HandleServiceError(w, err, "GetAssignments")
		return
	}

	h.WriteJSON(w, http.StatusOK, AssignmentsResponse{SubjectID: subjectID, Assignments: assignments})
}

func (h *Handler) ReplaceAssignments(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	var req ReplaceAssignmentsRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, err, "ReplaceAssignments")
		return
	}

	if err := h.Service.ReplaceAssignments(r.Context(), actorID(r), subjectID, req.toAssignments()); err != nil {
		h.HandleServiceError(w, err, "ReplaceAssignments")
		return
	}

	h.GetAssignments(w, r)
}

func (h *Handler) GetOverrides(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	overrides, err := h.Service.Overrides(r.Context(), subjectID)
	if err != nil {
		h.HandleServiceError(w, err, "GetOverrides")
		return
	}

	h.WriteJSON(w, http.StatusOK, OverridesResponse{SubjectID: subjectID, Overrides: overrides})
}

func (h *Handler) UpsertOverride(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	var req UpsertOverrideRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, err, "UpsertOverride")
		return
	}

	if err := h.Service.UpsertOverride(r.Context(), actorID(r), subjectID, req.toOverride()); err != nil {
		h.HandleServiceError(w, err, "UpsertOverride")
		return
	}

	h.GetOverrides(w, r)
}

func (h *Handler) ClearOverrides(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	if err := h.Service.ClearOverrides(r.Context(), actorID(r), subjectID); err != nil {
		h.HandleServiceError(w, err, "ClearOverrides")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetGrants(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	now, err := h.instant(r)
	if err != nil {
		h.HandleServiceError(w, err, "GetGrants")
		return
	}

	grants, err := h.Service.Grants(r.Context(), subjectID)
	if err != nil {
		h.HandleServiceError(w, err, "GetGrants")
		return
	}

	h.WriteJSON(w, http.StatusOK, GrantsResponse{
		SubjectID: subjectID,
		At:        now,
		Grants:    toGrantResponses(grants, now),
	})
}

func (h *Handler) AddGrant(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	var req AddGrantRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, err, "AddGrant")
		return
	}

	grant, err := h.Service.AddGrant(r.Context(), actorID(r), subjectID, req.toGrant())
	if err != nil {
		h.HandleServiceError(w, err, "AddGrant")
		return
	}

	h.WriteJSON(w, http.StatusCreated, GrantResponse{Grant: grant, Active: grant.IsActive(h.Now())})
}

func (h *Handler) RevokeGrant(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")
	grantID := chi.URLParam(r, "grantID")

	if err := h.Service.RevokeGrant(r.Context(), actorID(r), subjectID, grantID); err != nil {
		h.HandleServiceError(w, err, "RevokeGrant")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetEffective(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	now, err := h.instant(r)
	if err != nil {
		h.HandleServiceError(w, err, "GetEffective")
		return
	}
	evalCtx := evaluationContext(r)

	effective, err := h.Service.Effective(r.Context(), subjectID, evalCtx, now)
	if err != nil {
		h.HandleServiceError(w, err, "GetEffective")
		return
	}

	perms := make([]string, len(effective.Permissions))
	for i, p := range effective.Permissions {
		perms[i] = string(p)
	}

	h.WriteJSON(w, http.StatusOK, EffectiveResponse{
		SubjectID:   subjectID,
		Context:     toContextDTO(evalCtx),
		At:          now,
		Permissions: perms,
		Trace:       effective.Trace,
	})
}

func (h *Handler) GetDecision(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")
	permission := chi.URLParam(r, "permission")

	now, err := h.instant(r)
	if err != nil {
		h.HandleServiceError(w, err, "GetDecision")
		return
	}
	evalCtx := evaluationContext(r)

	allowed, err := h.Service.Can(r.Context(), subjectID, access.Permission(permission), evalCtx, now)
	if err != nil {
		h.HandleServiceError(w, err, "GetDecision")
		return
	}

	h.WriteJSON(w, http.StatusOK, DecisionResponse{
		SubjectID:  subjectID,
		Permission: permission,
		Context:    toContextDTO(evalCtx),
		At:         now,
		Allowed:    allowed,
	})
}

// instant reads the optional RFC3339 "at" query parameter, falling back to
// the handler clock.
func (h *Handler) instant(r *http.Request) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("at"))
	if raw == "" {
		return h.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, internal.NewValidationFieldError("at", "at must be an RFC3339 timestamp", internal.ErrCodeInvalidInstant)
	}
	return t, nil
}

func evaluationContext(r *http.Request) access.EvaluationContext {
	q := r.URL.Query()
	return access.EvaluationContext{
		CurrentDepartment: q.Get("department"),
		CurrentTeam:       q.Get("team"),
	}
}

func toContextDTO(c access.EvaluationContext) EvaluationContextDTO {
	return EvaluationContextDTO{Department: c.CurrentDepartment, Team: c.CurrentTeam}
}

func actorID(r *http.Request) string {
	return internal.SubjectIDFromContext(r.Context())
}
