package authz

// Legacy single-role bridge.
//
// Accounts created before the RBAC migration carry a single role enum on the
// user row instead of role bindings. The resolver falls back to this fixed
// mapping only when a user has zero role bindings; the result then flows
// through the override, tenant, and record layers unchanged.
//
// TODO(migration): delete this file once the user.legacy_role column is
// empty for all accounts.

var legacyPermissionSets = map[string][]string{
	"administrator": {
		PermSystemAdmin,
	},
	"contabil": {
		"invoices.read", "invoices.create", "invoices.update", "invoices.delete",
		"invoices.approve", "invoices.export",
		"partners.read", "partners.create", "partners.update",
		"reports.read", "reports.export",
	},
	"secretar": {
		"books.read", "books.create", "books.update",
		"concessions.read", "concessions.create", "concessions.update",
		"partners.read",
		"vehicles.read",
		"employees.read",
	},
	"utilizator": {
		"invoices.read", "partners.read", "books.read",
		"concessions.read", "vehicles.read", "employees.read",
	},
}

// LegacyPermissions returns the synthetic permission set for a pre-RBAC role
// value. Unknown values yield nil, which resolves as no grants.
func LegacyPermissions(legacyRole string) []string {
	perms, ok := legacyPermissionSets[legacyRole]
	if !ok {
		return nil
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}
