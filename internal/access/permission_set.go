package access

import "sort"

type Permission string

// PermissionSet is an unordered set of permissions. The zero value is an
// empty, read-only set; use NewPermissionSet before adding.
type PermissionSet map[Permission]struct{}

func NewPermissionSet(perms ...Permission) PermissionSet {
	s := make(PermissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

func (s PermissionSet) Add(p Permission) {
	s[p] = struct{}{}
}

func (s PermissionSet) AddAll(other PermissionSet) {
	for p := range other {
		s[p] = struct{}{}
	}
}

func (s PermissionSet) RemoveAll(other PermissionSet) {
	for p := range other {
		delete(s, p)
	}
}

func (s PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(s))
	out.AddAll(s)
	return out
}

// Sorted returns the members in lexical order.
func (s PermissionSet) Sorted() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s PermissionSet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, p := range sorted {
		out[i] = string(p)
	}
	return out
}
