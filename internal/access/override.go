package access

import (
	"context"
	"strings"
)

type Decision string

const (
	DecisionInherit Decision = "inherit"
	DecisionAllow   Decision = "allow"
	DecisionDeny    Decision = "deny"
)

func ParseDecision(s string) (Decision, bool) {
	switch d := Decision(strings.ToLower(strings.TrimSpace(s))); d {
	case DecisionInherit, DecisionAllow, DecisionDeny:
		return d, true
	}
	return "", false
}

// Override is a permanent per-subject exception to role-derived permissions.
// A subject holds at most one override per permission.
type Override struct {
	Permission Permission `json:"permission"`
	Decision   Decision   `json:"decision"`
	Scope      Scope      `json:"scope"`
}

// OverrideStore keeps overrides keyed by (subject, permission). Upsert
// replaces the existing override for the pair; upserting DecisionInherit
// removes it.
type OverrideStore interface {
	Upsert(ctx context.Context, subjectID string, o Override) error
	Clear(ctx context.Context, subjectID string) error
	ListFor(ctx context.Context, subjectID string) ([]Override, error)
}

func (o Override) Validate(catalog *Catalog) error {
	if !catalog.HasPermission(o.Permission) {
		return ErrPermissionNotFound
	}
	if _, ok := ParseDecision(string(o.Decision)); !ok {
		return ErrUnknownDecision
	}
	if o.Decision == DecisionInherit {
		return nil
	}
	return o.Scope.Validate()
}
