package access

import "strings"

type ScopeKind string

const (
	ScopeOrg        ScopeKind = "org"
	ScopeDepartment ScopeKind = "department"
	ScopeTeam       ScopeKind = "team"
	ScopeNone       ScopeKind = "none"
)

func ParseScopeKind(s string) (ScopeKind, bool) {
	switch k := ScopeKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ScopeOrg, ScopeDepartment, ScopeTeam, ScopeNone:
		return k, true
	}
	return "", false
}

// RequiresRef reports whether a scope of this kind must name a department or team.
func (k ScopeKind) RequiresRef() bool {
	return k == ScopeDepartment || k == ScopeTeam
}

// Scope is the organizational boundary a rule applies within.
// Ref names the department or team and is ignored for org and none.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	Ref  string    `json:"ref,omitempty"`
}

func OrgScope() Scope { return Scope{Kind: ScopeOrg} }
func NoScope() Scope { return Scope{Kind: ScopeNone} }
func DepartmentScope(ref string) Scope { return Scope{Kind: ScopeDepartment, Ref: ref} }
func TeamScope(ref string) Scope { return Scope{Kind: ScopeTeam, Ref: ref} }

// Normalize drops a Ref the kind does not use.
func (s Scope) Normalize() Scope {
	if !s.Kind.RequiresRef() {
		s.Ref = ""
	}
	return s
}

// Validate checks the write-time shape of a scope.
func (s Scope) Validate() error {
	switch s.Kind {
	case ScopeOrg, ScopeNone:
		return nil
	case ScopeDepartment, ScopeTeam:
		if strings.TrimSpace(s.Ref) == "" {
			return ErrMalformedScope
		}
		return nil
	default:
		return ErrUnknownScopeKind
	}
}

func (s Scope) String() string {
	if s.Kind.RequiresRef() {
		return string(s.Kind) + ":" + s.Ref
	}
	return string(s.Kind)
}

// EvaluationContext is the subject's present department and team membership.
// Empty strings mean the subject has none.
type EvaluationContext struct {
	CurrentDepartment string `json:"current_department,omitempty"`
	CurrentTeam       string `json:"current_team,omitempty"`
}

// Matches decides whether scope applies in ctx. Matching is flat: a
// department scope does not cover the department's teams. A department or
// team scope without a Ref never matches.
func Matches(scope Scope, ctx EvaluationContext) bool {
	switch scope.Kind {
	case ScopeOrg, ScopeNone:
		return true
	case ScopeDepartment:
		return scope.Ref != "" && scope.Ref == ctx.CurrentDepartment
	case ScopeTeam:
		return scope.Ref != "" && scope.Ref == ctx.CurrentTeam
	default:
		return false
	}
}
