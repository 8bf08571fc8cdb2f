package auth

import (
	"context"
	"time"

	"github.com/frahmantamala/helpdesk-access/internal/access"
)

// Querier answers single-permission decisions. *access.QueryService is the
// production implementation.
type Querier interface {
	Can(ctx context.Context, subjectID string, permission access.Permission, evalCtx access.EvaluationContext, now time.Time) (bool, error)
}

type PermissionChecker struct {
	query Querier
}

func NewPermissionChecker(query Querier) *PermissionChecker {
	return &PermissionChecker{query: query}
}

func (c *PermissionChecker) HasPermission(ctx context.Context, subjectID string, permission access.Permission, evalCtx access.EvaluationContext, now time.Time) (bool, error) {
	return c.query.Can(ctx, subjectID, permission, evalCtx, now)
}

// HasAnyPermission stops at the first granted permission. A store error ends
// the check immediately.
func (c *PermissionChecker) HasAnyPermission(ctx context.Context, subjectID string, required []access.Permission, evalCtx access.EvaluationContext, now time.Time) (bool, error) {
	for _, p := range required {
		ok, err := c.query.Can(ctx, subjectID, p, evalCtx, now)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (c *PermissionChecker) HasAllPermissions(ctx context.Context, subjectID string, required []access.Permission, evalCtx access.EvaluationContext, now time.Time) (bool, error) {
	for _, p := range required {
		ok, err := c.query.Can(ctx, subjectID, p, evalCtx, now)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}
