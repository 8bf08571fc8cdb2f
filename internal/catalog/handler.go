package catalog

import (
	"net/http"

	"github.com/frahmantamala/helpdesk-access/internal/access"
	"github.com/frahmantamala/helpdesk-access/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Catalog *access.Catalog
}

func NewHandler(baseHandler *transport.BaseHandler, c *access.Catalog) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Catalog:     c,
	}
}

func (h *Handler) GetRoles(w http.ResponseWriter, r *http.Request) {
	roles := h.Catalog.Roles()
	resp := RolesResponse{Roles: make([]RoleResponse, 0, len(roles))}
	for _, role := range roles {
		resp.Roles = append(resp.Roles, toRoleResponse(role))
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetPermissions(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, PermissionsResponse{
		Categories: h.Catalog.Categories(),
	})
}
