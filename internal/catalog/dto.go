package catalog

import "github.com/frahmantamala/helpdesk-access/internal/access"

type RoleResponse struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	ScopeKind   string   `json:"scope_kind"`
	Permissions []string `json:"permissions"`
}

type RolesResponse struct {
	Roles []RoleResponse `json:"roles"`
}

type PermissionsResponse struct {
	Categories []access.PermissionCategory `json:"categories"`
}

func toRoleResponse(r access.Role) RoleResponse {
	return RoleResponse{
		Key:         r.Key,
		Name:        r.Name,
		ScopeKind:   string(r.ScopeKind),
		Permissions: r.Permissions.Strings(),
	}
}
