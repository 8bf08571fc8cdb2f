package subject

import (
	"time"

	"github.com/frahmantamala/helpdesk-access/internal/access"
)

type ScopeDTO struct {
	Kind string `json:"kind" validate:"required,oneof=org department team none"`
	Ref  string `json:"ref,omitempty" validate:"max=128"`
}

func (s ScopeDTO) toScope() access.Scope {
	kind, ok := access.ParseScopeKind(s.Kind)
	if !ok {
		kind = access.ScopeKind(s.Kind)
	}
	return access.Scope{Kind: kind, Ref: s.Ref}
}

type AssignmentDTO struct {
	RoleKey string   `json:"role_key" validate:"required"`
	Scope   ScopeDTO `json:"scope"`
}

type ReplaceAssignmentsRequest struct {
	Assignments []AssignmentDTO `json:"assignments" validate:"dive"`
}

func (r ReplaceAssignmentsRequest) toAssignments() []access.RoleAssignment {
	out := make([]access.RoleAssignment, len(r.Assignments))
	for i, a := range r.Assignments {
		out[i] = access.RoleAssignment{RoleKey: a.RoleKey, Scope: a.Scope.toScope()}
	}
	return out
}

type UpsertOverrideRequest struct {
	Permission string    `json:"permission" validate:"required"`
	Decision   string    `json:"decision" validate:"required,oneof=inherit allow deny"`
	Scope      *ScopeDTO `json:"scope,omitempty" validate:"required_unless=Decision inherit"`
}

func (r UpsertOverrideRequest) toOverride() access.Override {
	decision, _ := access.ParseDecision(r.Decision)
	o := access.Override{Permission: access.Permission(r.Permission), Decision: decision}
	if r.Scope != nil {
		o.Scope = r.Scope.toScope()
	}
	return o
}

type AddGrantRequest struct {
	Kind       string     `json:"kind" validate:"required,oneof=acting_role permission_override"`
	RoleKey    string     `json:"role_key,omitempty" validate:"required_if=Kind acting_role"`
	Permission string     `json:"permission,omitempty" validate:"required_if=Kind permission_override"`
	Allow      *bool      `json:"allow,omitempty" validate:"required_if=Kind permission_override"`
	Scope      ScopeDTO   `json:"scope"`
	StartAt    *time.Time `json:"start_at,omitempty"`
	EndAt      *time.Time `json:"end_at,omitempty"`
	Reason     string     `json:"reason,omitempty" validate:"max=500"`
}

func (r AddGrantRequest) toGrant() access.Grant {
	kind, _ := access.ParseGrantKind(r.Kind)
	g := access.Grant{
		Kind:       kind,
		RoleKey:    r.RoleKey,
		Permission: access.Permission(r.Permission),
		Scope:      r.Scope.toScope(),
		StartAt:    r.StartAt,
		EndAt:      r.EndAt,
		Reason:     r.Reason,
	}
	if r.Allow != nil {
		g.Allow = *r.Allow
	}
	return g
}

type AssignmentsResponse struct {
	SubjectID   string                  `json:"subject_id"`
	Assignments []access.RoleAssignment `json:"assignments"`
}

type OverridesResponse struct {
	SubjectID string            `json:"subject_id"`
	Overrides []access.Override `json:"overrides"`
}

type GrantResponse struct {
	access.Grant
	Active bool `json:"active"`
}

type GrantsResponse struct {
	SubjectID string          `json:"subject_id"`
	At        time.Time       `json:"at"`
	Grants    []GrantResponse `json:"grants"`
}

type EvaluationContextDTO struct {
	Department string `json:"department,omitempty"`
	Team       string `json:"team,omitempty"`
}

type EffectiveResponse struct {
	SubjectID   string                   `json:"subject_id"`
	Context     EvaluationContextDTO     `json:"context"`
	At          time.Time                `json:"at"`
	Permissions []string                 `json:"permissions"`
	Trace       []access.PermissionTrace `json:"trace"`
}

type DecisionResponse struct {
	SubjectID  string               `json:"subject_id"`
	Permission string               `json:"permission"`
	Context    EvaluationContextDTO `json:"context"`
	At         time.Time            `json:"at"`
	Allowed    bool                 `json:"allowed"`
}

func toGrantResponses(grants []access.Grant, now time.Time) []GrantResponse {
	out := make([]GrantResponse, 0, len(grants))
	for _, g := range grants {
		out = append(out, GrantResponse{Grant: g, Active: g.IsActive(now)})
	}
	return out
}
