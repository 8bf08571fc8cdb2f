package subject

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/helpdesk-access/internal"
	"github.com/frahmantamala/helpdesk-access/internal/access"
	"github.com/frahmantamala/helpdesk-access/internal/core/common/validation"
	"github.com/frahmantamala/helpdesk-access/internal/core/events"
)

// Stores bundles the three record stores a subject's access is built from.
type Stores struct {
	Assignments access.AssignmentStore
	Overrides   access.OverrideStore
	Grants      access.GrantStore
}

// MemoryStores returns empty in-process stores.
func MemoryStores() Stores {
	return Stores{
		Assignments: access.NewMemoryAssignmentStore(),
		Overrides:   access.NewMemoryOverrideStore(),
		Grants:      access.NewMemoryGrantStore(),
	}
}

// EffectiveAccess is a preview of what a subject can do in a context.
type EffectiveAccess struct {
	Permissions []access.Permission
	Trace       []access.PermissionTrace
}

// Service validates and applies changes to a subject's assignments,
// overrides and grants, and answers decision queries over them.
type Service struct {
	catalog   *access.Catalog
	stores    Stores
	query     *access.QueryService
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(catalog *access.Catalog, stores Stores, query *access.QueryService, publisher events.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if query == nil {
		query = access.NewQueryService(catalog, stores.Assignments, stores.Overrides, stores.Grants, logger)
	}
	return &Service{
		catalog:   catalog,
		stores:    stores,
		query:     query,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *Service) Catalog() *access.Catalog {
	return s.catalog
}

func (s *Service) Assignments(ctx context.Context, subjectID string) ([]access.RoleAssignment, error) {
	if appErr := validation.ValidateSubjectID(subjectID); appErr != nil {
		return nil, appErr
	}
	out, err := s.stores.Assignments.ListFor(ctx, subjectID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list assignments", "error", err, "subject_id", subjectID)
		return nil, internal.NewInternalError("failed to list assignments", err)
	}
	return out, nil
}

// ReplaceAssignments swaps the subject's whole assignment set. Every
// assignment is checked against the catalog first; nothing is written if
// any one fails.
func (s *Service) ReplaceAssignments(ctx context.Context, actorID, subjectID string, assignments []access.RoleAssignment) error {
	if appErr := validation.ValidateSubjectID(subjectID); appErr != nil {
		return appErr
	}
	if appErr := validation.ValidateAssignments(s.catalog, assignments); appErr != nil {
		s.logger.WarnContext(ctx, "assignment validation failed", "subject_id", subjectID, "error", appErr.GetDetailedMessage())
		return appErr
	}

	normalized := make([]access.RoleAssignment, len(assignments))
	roles := make([]string, len(assignments))
	for i, a := range assignments {
		normalized[i] = access.RoleAssignment{RoleKey: a.RoleKey, Scope: a.Scope.Normalize()}
		roles[i] = a.RoleKey
	}

	if err := s.stores.Assignments.Replace(ctx, subjectID, normalized); err != nil {
		s.logger.ErrorContext(ctx, "failed to replace assignments", "error", err, "subject_id", subjectID)
		return internal.NewInternalError("failed to replace assignments", err)
	}
	s.query.Forget(subjectID)

	s.logger.InfoContext(ctx, "assignments replaced", "subject_id", subjectID, "actor_id", actorID, "roles", roles)
	s.publish(ctx, events.NewAssignmentsReplacedEvent(subjectID, actorID, roles))
	return nil
}

func (s *Service) Overrides(ctx context.Context, subjectID string) ([]access.Override, error) {
	if appErr := validation.ValidateSubjectID(subjectID); appErr != nil {
		return nil, appErr
	}
	out, err := s.stores.Overrides.ListFor(ctx, subjectID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list overrides", "error", err, "subject_id", subjectID)
		return nil, internal.NewInternalError("failed to list overrides", err)
	}
	return out, nil
}

// UpsertOverride sets the subject's override for one permission, replacing
// any previous one. An inherit decision removes it.
func (s *Service) UpsertOverride(ctx context.Context, actorID, subjectID string, o access.Override) error {
	if appErr := validation.ValidateSubjectID(subjectID); appErr != nil {
		return appErr
	}
	if appErr := validation.ValidateOverride(s.catalog, o); appErr != nil {
		s.logger.WarnContext(ctx, "override validation failed", "subject_id", subjectID, "error", appErr.GetDetailedMessage())
		return appErr
	}
	o.Scope = o.Scope.Normalize()

	if err := s.stores.Overrides.Upsert(ctx, subjectID, o); err != nil {
		s.logger.ErrorContext(ctx, "failed to upsert override", "error", err, "subject_id", subjectID, "permission", o.Permission)
		return internal.NewInternalError("failed to save override", err)
	}
	s.query.Forget(subjectID)

	s.logger.InfoContext(ctx, "override upserted",
		"subject_id", subjectID,
		"actor_id", actorID,
		"permission", o.Permission,
		"decision", o.Decision,
		"scope", o.Scope.String())
	s.publish(ctx, events.NewOverrideUpsertedEvent(subjectID, actorID, string(o.Permission), string(o.Decision), o.Scope.String()))
	return nil
}

func (s *Service) ClearOverrides(ctx context.Context, actorID, subjectID string) error {
	if appErr := validation.ValidateSubjectID(subjectID); appErr != nil {
		return appErr
	}
	if err := s.stores.Overrides.Clear(ctx, subjectID); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear overrides", "error", err, "subject_id", subjectID)
		return internal.NewInternalError("failed to clear overrides", err)
	}
	s.query.Forget(subjectID)
	s.logger.InfoContext(ctx, "overrides cleared", "subject_id", subjectID, "actor_id", actorID)
	s.publish(ctx, events.NewOverridesClearedEvent(subjectID, actorID))
	return nil
}

func (s *Service) Grants(ctx context.Context, subjectID string) ([]access.Grant, error) {
	if appErr := validation.ValidateSubjectID(subjectID); appErr != nil {
		return nil, appErr
	}
	out, err := s.stores.Grants.ListFor(ctx, subjectID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list grants", "error", err, "subject_id", subjectID)
		return nil, internal.NewInternalError("failed to list grants", err)
	}
	return out, nil
}

func (s *Service) AddGrant(ctx context.Context, actorID, subjectID string, g access.Grant) (access.Grant, error) {
	if appErr := validation.ValidateSubjectID(subjectID); appErr != nil {
		return access.Grant{}, appErr
	}
	if appErr := validation.ValidateGrant(s.catalog, g); appErr != nil {
		s.logger.WarnContext(ctx, "grant validation failed", "subject_id", subjectID, "error", appErr.GetDetailedMessage())
		return access.Grant{}, appErr
	}
	// the fields of the other kind are meaningless and are not stored
	switch g.Kind {
	case access.GrantActingRole:
		g.Permission = ""
		g.Allow = false
	case access.GrantPermissionOverride:
		g.RoleKey = ""
	}

	stored, err := s.stores.Grants.Add(ctx, subjectID, g)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to add grant", "error", err, "subject_id", subjectID)
		return access.Grant{}, internal.NewInternalError("failed to add grant", err)
	}
	s.query.Forget(subjectID)

	s.logger.InfoContext(ctx, "grant added",
		"subject_id", subjectID,
		"actor_id", actorID,
		"grant_id", stored.ID,
		"kind", stored.Kind)
	s.publish(ctx, events.NewGrantAddedEvent(subjectID, actorID, stored.ID, string(stored.Kind)))
	return stored, nil
}

func (s *Service) RevokeGrant(ctx context.Context, actorID, subjectID, grantID string) error {
	if appErr := validation.ValidateSubjectID(subjectID); appErr != nil {
		return appErr
	}
	if err := s.stores.Grants.Revoke(ctx, subjectID, grantID); err != nil {
		if errors.Is(err, access.ErrGrantNotFound) {
			return internal.ErrGrantNotFound
		}
		s.logger.ErrorContext(ctx, "failed to revoke grant", "error", err, "subject_id", subjectID, "grant_id", grantID)
		return internal.NewInternalError("failed to revoke grant", err)
	}
	s.query.Forget(subjectID)
	s.logger.InfoContext(ctx, "grant revoked", "subject_id", subjectID, "actor_id", actorID, "grant_id", grantID)
	s.publish(ctx, events.NewGrantRevokedEvent(subjectID, actorID, grantID))
	return nil
}

// Effective previews the subject's permissions in evalCtx at now, with a
// trace of the rules behind each one.
func (s *Service) Effective(ctx context.Context, subjectID string, evalCtx access.EvaluationContext, now time.Time) (*EffectiveAccess, error) {
	if appErr := validation.ValidateSubjectID(subjectID); appErr != nil {
		return nil, appErr
	}
	trace, err := s.query.Explain(ctx, subjectID, evalCtx, now)
	if err != nil {
		return nil, internal.NewInternalError("failed to evaluate permissions", err)
	}
	granted := make([]access.Permission, 0, len(trace))
	for _, t := range trace {
		if t.Granted {
			granted = append(granted, t.Permission)
		}
	}
	return &EffectiveAccess{Permissions: granted, Trace: trace}, nil
}

func (s *Service) Can(ctx context.Context, subjectID string, permission access.Permission, evalCtx access.EvaluationContext, now time.Time) (bool, error) {
	if appErr := validation.ValidateSubjectID(subjectID); appErr != nil {
		return false, appErr
	}
	ok, err := s.query.Can(ctx, subjectID, permission, evalCtx, now)
	if err != nil {
		return false, internal.NewInternalError("failed to evaluate permission", err)
	}
	return ok, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
