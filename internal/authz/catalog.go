package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Wildcard permission names with special resolver semantics.
const (
	// PermSystemAll grants every action type. It does not imply parish
	// membership: tenant scoping still applies to holders.
	PermSystemAll = "system.all"
	// PermSystemAdmin expands to the elevated administrative subset
	// declared when the catalog is built.
	PermSystemAdmin = "system.admin"
)

// Definition describes one (resource, action) permission. Its identity is the
// dotted name resource.action, globally unique within a catalog.
type Definition struct {
	Resource    string
	Action      string
	Description string
	System      bool
}

// Name returns the dotted permission name.
func (d Definition) Name() string {
	return d.Resource + "." + d.Action
}

// Catalog is an immutable snapshot of permission definitions, built once at
// startup and passed explicitly into the resolver.
type Catalog struct {
	defs        map[string]Definition
	adminGrants map[string]struct{}
	mutating    map[string]struct{}
}

var (
	errEmptyDefinition = errors.New("catalog: resource and action are required")
	errDuplicateName   = errors.New("catalog: duplicate permission name")
)

// Verbs classified as mutating for readonly tenant scoping. Export is
// included because exports in this system have accounting side effects.
var defaultMutatingVerbs = []string{"create", "update", "delete", "approve", "export", "manage", "revoke"}

// NewCatalog validates the definitions and admin grant list and returns an
// immutable catalog. Extra mutating verbs extend the default classification.
func NewCatalog(defs []Definition, adminGrants []string, extraMutatingVerbs ...string) (*Catalog, error) {
	catalog := &Catalog{
		defs:        make(map[string]Definition, len(defs)),
		adminGrants: make(map[string]struct{}, len(adminGrants)),
		mutating:    make(map[string]struct{}, len(defaultMutatingVerbs)+len(extraMutatingVerbs)),
	}

	for _, def := range defs {
		def.Resource = strings.TrimSpace(def.Resource)
		def.Action = strings.TrimSpace(def.Action)
		if def.Resource == "" || def.Action == "" {
			return nil, errEmptyDefinition
		}

		name := def.Name()
		if _, exists := catalog.defs[name]; exists {
			return nil, fmt.Errorf("%w: %s", errDuplicateName, name)
		}
		catalog.defs[name] = def
	}

	for _, name := range adminGrants {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := catalog.defs[name]; !ok {
			return nil, fmt.Errorf("catalog: admin grant references unknown permission %q", name)
		}
		if name == PermSystemAll {
			return nil, fmt.Errorf("catalog: admin grant must not include %s", PermSystemAll)
		}
		catalog.adminGrants[name] = struct{}{}
	}

	for _, verb := range defaultMutatingVerbs {
		catalog.mutating[verb] = struct{}{}
	}
	for _, verb := range extraMutatingVerbs {
		verb = strings.TrimSpace(strings.ToLower(verb))
		if verb != "" {
			catalog.mutating[verb] = struct{}{}
		}
	}

	return catalog, nil
}

// Lookup returns the definition registered under the dotted name.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	def, ok := c.defs[name]
	return def, ok
}

// Has reports whether the dotted name is part of the catalog.
func (c *Catalog) Has(name string) bool {
	_, ok := c.defs[name]
	return ok
}

// Names returns all permission names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.defs))
	for name := range c.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the catalog contents sorted by name.
func (c *Catalog) Definitions() []Definition {
	defs := make([]Definition, 0, len(c.defs))
	for _, name := range c.Names() {
		defs = append(defs, c.defs[name])
	}
	return defs
}

// AdminGrants returns the permission names expanded from system.admin.
func (c *Catalog) AdminGrants() []string {
	names := make([]string, 0, len(c.adminGrants))
	for name := range c.adminGrants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsMutating classifies a permission by its action verb. Readonly tenant
// members are denied any mutating action.
func (c *Catalog) IsMutating(name string) bool {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return false
	}
	_, ok := c.mutating[name[idx+1:]]
	return ok
}
