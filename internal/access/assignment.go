package access

import (
	"context"
	"fmt"
)

// RoleAssignment gives a subject a role within a scope.
type RoleAssignment struct {
	RoleKey string `json:"role_key"`
	Scope   Scope  `json:"scope"`
}

type AssignmentStore interface {
	Replace(ctx context.Context, subjectID string, assignments []RoleAssignment) error
	ListFor(ctx context.Context, subjectID string) ([]RoleAssignment, error)
}

// ValidateAssignment is the write-time check for an assignment: the role must
// exist and the scope must be well formed and of the role's declared kind.
// The evaluator never calls it.
func ValidateAssignment(catalog *Catalog, a RoleAssignment) error {
	role, err := catalog.RoleDefinition(a.RoleKey)
	if err != nil {
		return err
	}
	if err := a.Scope.Validate(); err != nil {
		return fmt.Errorf("role %q: %w", a.RoleKey, err)
	}
	if a.Scope.Kind != role.ScopeKind {
		return fmt.Errorf("role %q declares %s, got %s: %w", a.RoleKey, role.ScopeKind, a.Scope.Kind, ErrScopeKindMismatch)
	}
	return nil
}
