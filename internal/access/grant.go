package access

import (
	"context"
	"strings"
	"time"
)

type GrantKind string

const (
	GrantActingRole         GrantKind = "acting_role"
	GrantPermissionOverride GrantKind = "permission_override"
)

func ParseGrantKind(s string) (GrantKind, bool) {
	switch k := GrantKind(strings.ToLower(strings.TrimSpace(s))); k {
	case GrantActingRole, GrantPermissionOverride:
		return k, true
	}
	return "", false
}

// Grant is a time-bounded rule. An acting_role grant lends the permissions of
// RoleKey; a permission_override grant allows or denies a single Permission.
// A nil StartAt or EndAt leaves that side of the window open.
type Grant struct {
	ID         string     `json:"id"`
	Kind       GrantKind  `json:"kind"`
	RoleKey    string     `json:"role_key,omitempty"`
	Permission Permission `json:"permission,omitempty"`
	Allow      bool       `json:"allow"`
	Scope      Scope      `json:"scope"`
	StartAt    *time.Time `json:"start_at,omitempty"`
	EndAt      *time.Time `json:"end_at,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

// IsActive reports whether now falls inside [StartAt, EndAt], both ends inclusive.
func IsActive(g Grant, now time.Time) bool {
	if g.StartAt != nil && now.Before(*g.StartAt) {
		return false
	}
	if g.EndAt != nil && now.After(*g.EndAt) {
		return false
	}
	return true
}

func (g Grant) IsActive(now time.Time) bool {
	return IsActive(g, now)
}

// Validate checks a grant before it is stored.
func (g Grant) Validate(catalog *Catalog) error {
	switch g.Kind {
	case GrantActingRole:
		if _, err := catalog.RoleDefinition(g.RoleKey); err != nil {
			return err
		}
	case GrantPermissionOverride:
		if !catalog.HasPermission(g.Permission) {
			return ErrPermissionNotFound
		}
	default:
		return ErrUnknownGrantKind
	}
	if g.StartAt != nil && g.EndAt != nil && g.EndAt.Before(*g.StartAt) {
		return ErrInvalidGrantWindow
	}
	return g.Scope.Validate()
}

// GrantStore keeps temporal grants. Several grants may target the same
// permission at once.
type GrantStore interface {
	Add(ctx context.Context, subjectID string, g Grant) (Grant, error)
	Revoke(ctx context.Context, subjectID, grantID string) error
	ListFor(ctx context.Context, subjectID string) ([]Grant, error)
	ActiveGrantsFor(ctx context.Context, subjectID string, now time.Time) ([]Grant, error)
}

// FilterActive keeps the grants whose window contains now. Scope is not
// considered here; the evaluator matches it against the context.
func FilterActive(grants []Grant, now time.Time) []Grant {
	out := make([]Grant, 0, len(grants))
	for _, g := range grants {
		if IsActive(g, now) {
			out = append(out, g)
		}
	}
	return out
}
