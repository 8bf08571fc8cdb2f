package access

import "errors"

var (
	ErrRoleNotFound        = errors.New("access: role not found")
	ErrPermissionNotFound  = errors.New("access: permission not found")
	ErrMalformedScope      = errors.New("access: scope reference required for department and team scopes")
	ErrUnknownScopeKind    = errors.New("access: unknown scope kind")
	ErrScopeKindMismatch   = errors.New("access: assignment scope kind does not match role scope kind")
	ErrUnknownDecision     = errors.New("access: unknown override decision")
	ErrUnknownGrantKind    = errors.New("access: unknown grant kind")
	ErrInvalidGrantWindow  = errors.New("access: grant end must not precede its start")
	ErrGrantNotFound       = errors.New("access: grant not found")
	ErrDuplicateCatalogKey = errors.New("access: duplicate catalog key")
)
