package access

import (
	"fmt"
	"sort"
)

// PermissionDef describes a permission for display. Category only groups
// permissions in listings and plays no part in evaluation.
type PermissionDef struct {
	Key         Permission `json:"key"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
}

// Role is a named bundle of permissions. ScopeKind declares what scope an
// assignment of the role must carry.
type Role struct {
	Key         string        `json:"key"`
	Name        string        `json:"name"`
	Permissions PermissionSet `json:"-"`
	ScopeKind   ScopeKind     `json:"scope_kind"`
}

type PermissionCategory struct {
	Name        string          `json:"name"`
	Permissions []PermissionDef `json:"permissions"`
}

// Catalog is the immutable role and permission configuration loaded once at
// startup. It is safe for concurrent use.
type Catalog struct {
	permissions map[Permission]PermissionDef
	roles       map[string]Role
	roleOrder   []string
}

// NewCatalog validates and indexes the definitions. Roles may only reference
// declared permissions.
func NewCatalog(permissions []PermissionDef, roles []Role) (*Catalog, error) {
	c := &Catalog{
		permissions: make(map[Permission]PermissionDef, len(permissions)),
		roles:       make(map[string]Role, len(roles)),
		roleOrder:   make([]string, 0, len(roles)),
	}

	for _, def := range permissions {
		if def.Key == "" {
			return nil, fmt.Errorf("permission key is empty: %w", ErrPermissionNotFound)
		}
		if _, exists := c.permissions[def.Key]; exists {
			return nil, fmt.Errorf("permission %q: %w", def.Key, ErrDuplicateCatalogKey)
		}
		c.permissions[def.Key] = def
	}

	for _, role := range roles {
		if role.Key == "" {
			return nil, fmt.Errorf("role key is empty: %w", ErrRoleNotFound)
		}
		if _, exists := c.roles[role.Key]; exists {
			return nil, fmt.Errorf("role %q: %w", role.Key, ErrDuplicateCatalogKey)
		}
		if _, ok := ParseScopeKind(string(role.ScopeKind)); !ok {
			return nil, fmt.Errorf("role %q scope kind %q: %w", role.Key, role.ScopeKind, ErrUnknownScopeKind)
		}
		for p := range role.Permissions {
			if _, ok := c.permissions[p]; !ok {
				return nil, fmt.Errorf("role %q references %q: %w", role.Key, p, ErrPermissionNotFound)
			}
		}
		role.Permissions = role.Permissions.Clone()
		c.roles[role.Key] = role
		c.roleOrder = append(c.roleOrder, role.Key)
	}

	return c, nil
}

// RoleDefinition returns the role registered under key.
func (c *Catalog) RoleDefinition(key string) (Role, error) {
	role, ok := c.roles[key]
	if !ok {
		return Role{}, fmt.Errorf("role %q: %w", key, ErrRoleNotFound)
	}
	role.Permissions = role.Permissions.Clone()
	return role, nil
}

// PermissionsOf returns a copy of the role's permissions, or an empty set
// when the role is unknown.
func (c *Catalog) PermissionsOf(key string) PermissionSet {
	if c == nil {
		return NewPermissionSet()
	}
	role, ok := c.roles[key]
	if !ok {
		return NewPermissionSet()
	}
	return role.Permissions.Clone()
}

func (c *Catalog) HasPermission(p Permission) bool {
	_, ok := c.permissions[p]
	return ok
}

func (c *Catalog) Permission(p Permission) (PermissionDef, bool) {
	def, ok := c.permissions[p]
	return def, ok
}

// Roles returns the roles in declaration order.
func (c *Catalog) Roles() []Role {
	out := make([]Role, 0, len(c.roleOrder))
	for _, key := range c.roleOrder {
		role := c.roles[key]
		role.Permissions = role.Permissions.Clone()
		out = append(out, role)
	}
	return out
}

// Permissions returns every declared permission sorted by key.
func (c *Catalog) Permissions() []PermissionDef {
	out := make([]PermissionDef, 0, len(c.permissions))
	for _, def := range c.permissions {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Categories groups the permissions by category label, both sorted by name.
func (c *Catalog) Categories() []PermissionCategory {
	byName := make(map[string][]PermissionDef)
	for _, def := range c.Permissions() {
		byName[def.Category] = append(byName[def.Category], def)
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]PermissionCategory, 0, len(names))
	for _, name := range names {
		out = append(out, PermissionCategory{Name: name, Permissions: byName[name]})
	}
	return out
}
