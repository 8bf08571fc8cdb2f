package catalog

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/frahmantamala/helpdesk-access/internal/access"
)

type fileCatalog struct {
	Permissions []filePermission `yaml:"permissions"`
	Roles       []fileRole       `yaml:"roles"`
}

type filePermission struct {
	Key         string `yaml:"key"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
}

type fileRole struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	ScopeKind   string   `yaml:"scope_kind"`
	Permissions []string `yaml:"permissions"`
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*access.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a YAML catalog. Unknown fields are rejected.
func Parse(data []byte) (*access.Catalog, error) {
	var raw fileCatalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	perms := make([]access.PermissionDef, 0, len(raw.Permissions))
	for _, p := range raw.Permissions {
		perms = append(perms, access.PermissionDef{
			Key:         access.Permission(strings.TrimSpace(p.Key)),
			Category:    p.Category,
			Description: p.Description,
		})
	}

	roles := make([]access.Role, 0, len(raw.Roles))
	for _, r := range raw.Roles {
		kind, ok := access.ParseScopeKind(r.ScopeKind)
		if !ok {
			return nil, fmt.Errorf("role %q scope kind %q: %w", r.Key, r.ScopeKind, access.ErrUnknownScopeKind)
		}
		set := access.NewPermissionSet()
		for _, p := range r.Permissions {
			set.Add(access.Permission(strings.TrimSpace(p)))
		}
		name := r.Name
		if name == "" {
			name = r.Key
		}
		roles = append(roles, access.Role{
			Key:         strings.TrimSpace(r.Key),
			Name:        name,
			ScopeKind:   kind,
			Permissions: set,
		})
	}

	return access.NewCatalog(perms, roles)
}

// Load returns the catalog at path, or the built-in one when path is empty.
func Load(path string) (*access.Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
