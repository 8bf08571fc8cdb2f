// Package catalog builds the role and permission catalog the evaluator runs
// against, either from the built-in helpdesk definitions or from a YAML file.
package catalog

import (
	"github.com/frahmantamala/helpdesk-access/internal/access"
)

const (
	CategoryTickets       = "Tickets"
	CategoryKnowledgeBase = "Knowledge Base"
	CategoryUsers         = "Users"
	CategoryReports       = "Reports"
	CategorySettings      = "Settings"
)

const (
	TicketsCreate  access.Permission = "tickets.create"
	TicketsRead    access.Permission = "tickets.read"
	TicketsUpdate  access.Permission = "tickets.update"
	TicketsAssign  access.Permission = "tickets.assign"
	TicketsDelete  access.Permission = "tickets.delete"
	KBRead         access.Permission = "kb.read"
	KBWrite        access.Permission = "kb.write"
	KBPublish      access.Permission = "kb.publish"
	UsersRead      access.Permission = "users.read"
	UsersManage    access.Permission = "users.manage"
	ReportsView    access.Permission = "reports.view"
	ReportsExport  access.Permission = "reports.export"
	SettingsView   access.Permission = "settings.view"
	SettingsManage access.Permission = "settings.manage"
)

var defaultPermissions = []access.PermissionDef{
	{Key: TicketsCreate, Category: CategoryTickets, Description: "Open new tickets"},
	{Key: TicketsRead, Category: CategoryTickets, Description: "View tickets and their history"},
	{Key: TicketsUpdate, Category: CategoryTickets, Description: "Reply to and change tickets"},
	{Key: TicketsAssign, Category: CategoryTickets, Description: "Assign tickets to agents"},
	{Key: TicketsDelete, Category: CategoryTickets, Description: "Delete tickets"},
	{Key: KBRead, Category: CategoryKnowledgeBase, Description: "Read knowledge base articles"},
	{Key: KBWrite, Category: CategoryKnowledgeBase, Description: "Draft and edit articles"},
	{Key: KBPublish, Category: CategoryKnowledgeBase, Description: "Publish articles"},
	{Key: UsersRead, Category: CategoryUsers, Description: "View users and their access"},
	{Key: UsersManage, Category: CategoryUsers, Description: "Change roles, overrides and grants"},
	{Key: ReportsView, Category: CategoryReports, Description: "View reports"},
	{Key: ReportsExport, Category: CategoryReports, Description: "Export report data"},
	{Key: SettingsView, Category: CategorySettings, Description: "View helpdesk settings"},
	{Key: SettingsManage, Category: CategorySettings, Description: "Change helpdesk settings"},
}

func defaultRoles() []access.Role {
	all := access.NewPermissionSet()
	for _, def := range defaultPermissions {
		all.Add(def.Key)
	}

	admin := all.Clone()
	admin.RemoveAll(access.NewPermissionSet(SettingsManage))

	return []access.Role{
		{Key: "superadmin", Name: "Super Admin", ScopeKind: access.ScopeOrg, Permissions: all},
		{Key: "admin", Name: "Admin", ScopeKind: access.ScopeOrg, Permissions: admin},
		{
			Key: "supervisor", Name: "Supervisor", ScopeKind: access.ScopeDepartment,
			Permissions: access.NewPermissionSet(
				TicketsCreate, TicketsRead, TicketsUpdate, TicketsAssign,
				KBRead, KBWrite, UsersRead, ReportsView,
			),
		},
		{
			Key: "agent", Name: "Agent", ScopeKind: access.ScopeTeam,
			Permissions: access.NewPermissionSet(TicketsRead, TicketsUpdate),
		},
		{
			Key: "viewer", Name: "Viewer", ScopeKind: access.ScopeOrg,
			Permissions: access.NewPermissionSet(TicketsRead, KBRead, UsersRead, ReportsView, SettingsView),
		},
		{
			Key: "customer", Name: "Customer", ScopeKind: access.ScopeNone,
			Permissions: access.NewPermissionSet(TicketsCreate, TicketsRead, KBRead),
		},
	}
}

// Default returns the built-in helpdesk catalog.
func Default() *access.Catalog {
	c, err := access.NewCatalog(defaultPermissions, defaultRoles())
	if err != nil {
		panic("catalog: invalid built-in catalog: " + err.Error())
	}
	return c
}
