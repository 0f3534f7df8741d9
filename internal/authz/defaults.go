package authz

// RoleSeed describes a default role and its permission bindings, loaded once
// at startup as part of the seed data contract.
type RoleSeed struct {
	ID          string
	Name        string
	Description string
	Permissions []string
}

// DefaultDefinitions returns the deployment permission catalog: one
// definition per (resource, action) pair used by the platform modules.
func DefaultDefinitions() []Definition {
	defs := []Definition{
		{Resource: "system", Action: "all", Description: "Every action on every resource", System: true},
		{Resource: "system", Action: "admin", Description: "Elevated administrative subset", System: true},
	}

	crud := func(resource string, extra ...string) {
		actions := append([]string{"read", "create", "update", "delete"}, extra...)
		for _, action := range actions {
			defs = append(defs, Definition{Resource: resource, Action: action, System: true})
		}
	}

	crud("invoices", "approve", "export")
	crud("partners")
	crud("concessions", "approve")
	crud("books")
	crud("vehicles")
	crud("employees")
	crud("users")

	defs = append(defs,
		Definition{Resource: "parishes", Action: "read", System: true},
		Definition{Resource: "parishes", Action: "manage", System: true},
		Definition{Resource: "roles", Action: "read", System: true},
		Definition{Resource: "roles", Action: "manage", System: true},
		Definition{Resource: "access", Action: "manage", Description: "Manage overrides, memberships and record grants", System: true},
		Definition{Resource: "reports", Action: "read", System: true},
		Definition{Resource: "reports", Action: "export", System: true},
		Definition{Resource: "sessions", Action: "read", System: true},
		Definition{Resource: "sessions", Action: "revoke", System: true},
		Definition{Resource: "audit", Action: "read", System: true},
	)

	return defs
}

// DefaultAdminGrants enumerates what system.admin expands to: account,
// role, parish, and session administration, but none of the business
// entities. The gap to system.all is deliberate.
func DefaultAdminGrants() []string {
	return []string{
		"users.read", "users.create", "users.update", "users.delete",
		"roles.read", "roles.manage",
		"access.manage",
		"parishes.read", "parishes.manage",
		"sessions.read", "sessions.revoke",
		"audit.read",
		"reports.read", "reports.export",
	}
}

// DefaultCatalog builds the catalog from the default definitions.
func DefaultCatalog() (*Catalog, error) {
	return NewCatalog(DefaultDefinitions(), DefaultAdminGrants())
}

// DefaultRoleSeeds returns the system roles created at deployment time.
func DefaultRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			ID:          "episcop",
			Name:        "episcop",
			Description: "Diocese oversight with unrestricted action types",
			Permissions: []string{PermSystemAll},
		},
		{
			ID:          "administrator",
			Name:        "administrator",
			Description: "Platform administration",
			Permissions: []string{PermSystemAdmin},
		},
		{
			ID:          "contabil",
			Name:        "contabil",
			Description: "Accounting: invoices, partners, reports",
			Permissions: []string{
				"invoices.read", "invoices.create", "invoices.update", "invoices.delete",
				"invoices.approve", "invoices.export",
				"partners.read", "partners.create", "partners.update",
				"reports.read", "reports.export",
			},
		},
		{
			ID:          "secretar",
			Name:        "secretar",
			Description: "Parish registry: books, concessions, partners",
			Permissions: []string{
				"books.read", "books.create", "books.update", "books.delete",
				"concessions.read", "concessions.create", "concessions.update",
				"partners.read",
				"vehicles.read",
				"employees.read",
			},
		},
		{
			ID:          "vizualizare",
			Name:        "vizualizare",
			Description: "Read-only visibility across business modules",
			Permissions: []string{
				"invoices.read", "partners.read", "concessions.read",
				"books.read", "vehicles.read", "employees.read", "reports.read",
			},
		},
	}
}
