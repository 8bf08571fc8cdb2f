package access

import (
	"sort"
	"time"
)

// Input is one snapshot of everything that decides a subject's access. The
// evaluator reads it and never keeps or mutates it.
type Input struct {
	Assignments []RoleAssignment
	Overrides   []Override
	Grants      []Grant
	Context     EvaluationContext
	Now         time.Time
}

// PermissionTrace explains the verdict for one permission.
type PermissionTrace struct {
	Permission Permission `json:"permission"`
	Granted    bool       `json:"granted"`
	GrantedBy  []string   `json:"granted_by,omitempty"`
	DeniedBy   []string   `json:"denied_by,omitempty"`
}

// Evaluator resolves effective permissions against a catalog. It holds no
// mutable state and is safe for concurrent use.
type Evaluator struct {
	catalog *Catalog
}

func NewEvaluator(catalog *Catalog) *Evaluator {
	return &Evaluator{catalog: catalog}
}

// EffectivePermissions computes (Base ∪ Additions) \ Denials:
//
//	Base      the union of every assigned role's permissions; assignment scope is not checked
//	Additions allow overrides and active grants whose scope matches the context
//	Denials   deny overrides and active deny grants whose scope matches the context
//
// Denials are subtracted last, so a denied permission is never granted no
// matter how many rules add it. Unknown roles add nothing and malformed
// scopes never match.
func (e *Evaluator) EffectivePermissions(in Input) PermissionSet {
	r := e.resolve(in, nil)
	final := r.base
	final.AddAll(r.additions)
	final.RemoveAll(r.denials)
	return final
}

func (e *Evaluator) HasPermission(p Permission, in Input) bool {
	return e.EffectivePermissions(in).Has(p)
}

// Explain returns a trace for every permission any rule touched, sorted by
// permission.
func (e *Evaluator) Explain(in Input) []PermissionTrace {
	sources := make(map[Permission]*PermissionTrace)
	r := e.resolve(in, sources)

	final := r.base
	final.AddAll(r.additions)
	final.RemoveAll(r.denials)

	out := make([]PermissionTrace, 0, len(sources))
	for p, t := range sources {
		t.Granted = final.Has(p)
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Permission < out[j].Permission })
	return out
}

type resolution struct {
	base      PermissionSet
	additions PermissionSet
	denials   PermissionSet
}

// resolve builds the three sets. When sources is non-nil it also records
// which rule contributed each permission.
func (e *Evaluator) resolve(in Input, sources map[Permission]*PermissionTrace) resolution {
	r := resolution{
		base:      NewPermissionSet(),
		additions: NewPermissionSet(),
		denials:   NewPermissionSet(),
	}

	note := func(p Permission, source string, deny bool) {
		if sources == nil {
			return
		}
		t, ok := sources[p]
		if !ok {
			t = &PermissionTrace{Permission: p}
			sources[p] = t
		}
		if deny {
			t.DeniedBy = append(t.DeniedBy, source)
		} else {
			t.GrantedBy = append(t.GrantedBy, source)
		}
	}

	for _, a := range in.Assignments {
		for p := range e.catalog.PermissionsOf(a.RoleKey) {
			r.base.Add(p)
			note(p, "role:"+a.RoleKey, false)
		}
	}

	for _, o := range in.Overrides {
		if !Matches(o.Scope, in.Context) {
			continue
		}
		switch o.Decision {
		case DecisionAllow:
			r.additions.Add(o.Permission)
			note(o.Permission, "override:"+o.Scope.String(), false)
		case DecisionDeny:
			r.denials.Add(o.Permission)
			note(o.Permission, "override:"+o.Scope.String(), true)
		case DecisionInherit:
		}
	}

	for _, g := range in.Grants {
		if !IsActive(g, in.Now) || !Matches(g.Scope, in.Context) {
			continue
		}
		source := "grant:" + g.ID
		switch g.Kind {
		case GrantActingRole:
			for p := range e.catalog.PermissionsOf(g.RoleKey) {
				r.additions.Add(p)
				note(p, source+" acting:"+g.RoleKey, false)
			}
		case GrantPermissionOverride:
			if g.Permission == "" {
				continue
			}
			if g.Allow {
				r.additions.Add(g.Permission)
				note(g.Permission, source, false)
			} else {
				r.denials.Add(g.Permission)
				note(g.Permission, source, true)
			}
		}
	}

	return r
}
