package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/helpdesk-access/internal"
	"github.com/frahmantamala/helpdesk-access/internal/access"
)

type checkFunc func(ctx context.Context, subjectID string, required []access.Permission, evalCtx access.EvaluationContext, now time.Time) (bool, error)

// Enforcer guards routes with permission checks against the caller's
// effective permissions in its current department and team.
type Enforcer struct {
	checker *PermissionChecker
	logger  *slog.Logger
	now     func() time.Time
}

func NewEnforcer(query Querier, logger *slog.Logger, now func() time.Time) *Enforcer {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Enforcer{
		checker: NewPermissionChecker(query),
		logger:  logger,
		now:     now,
	}
}

func (e *Enforcer) check(next http.Handler, required []access.Permission, fn checkFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := internal.CallerFromContext(r.Context())
		if !ok {
			e.logger.WarnContext(r.Context(), "authorization check failed: subject not found in context")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		hasAccess, err := fn(r.Context(), caller.SubjectID, required, caller.Context, e.now())
		if err != nil {
			e.logger.ErrorContext(r.Context(), "authorization check failed",
				"error", err,
				"subject_id", caller.SubjectID,
				"required_permissions", required)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if !hasAccess {
			e.logger.WarnContext(r.Context(), "access denied: insufficient permissions",
				"subject_id", caller.SubjectID,
				"required_permissions", required,
				"department", caller.Context.CurrentDepartment,
				"team", caller.Context.CurrentTeam)
			http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	}
}

// Require lets the request through only when the caller holds permission.
func (e *Enforcer) Require(permission access.Permission) func(http.Handler) http.Handler {
	single := func(ctx context.Context, subjectID string, _ []access.Permission, evalCtx access.EvaluationContext, now time.Time) (bool, error) {
		return e.checker.HasPermission(ctx, subjectID, permission, evalCtx, now)
	}
	return func(next http.Handler) http.Handler {
		return e.check(next, []access.Permission{permission}, single)
	}
}

func (e *Enforcer) RequireAll(permissions ...access.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return e.check(next, permissions, e.checker.HasAllPermissions)
	}
}

func (e *Enforcer) RequireAny(permissions ...access.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return e.check(next, permissions, e.checker.HasAnyPermission)
	}
}
