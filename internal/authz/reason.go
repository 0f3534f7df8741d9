package authz

// Reason explains why a decision came out the way it did. Callers are
// expected to log it for every decision they act on.
type Reason string

const (
	// ReasonWildcard marks an allow derived from the system.all permission.
	ReasonWildcard Reason = "WILDCARD"
	// ReasonRoleDerived marks an allow derived from an active role binding.
	ReasonRoleDerived Reason = "ROLE_DERIVED"
	// ReasonLegacyRole marks an allow derived from the pre-RBAC single-role mapping.
	ReasonLegacyRole Reason = "LEGACY_ROLE"
	// ReasonExplicitGrant marks an allow forced by a per-user override.
	ReasonExplicitGrant Reason = "EXPLICIT_GRANT"
	// ReasonExplicitDeny marks a deny forced by a per-user override.
	ReasonExplicitDeny Reason = "EXPLICIT_DENY"
	// ReasonNoPermission marks the default deny: no role or override grants the permission.
	ReasonNoPermission Reason = "NO_PERMISSION"
	// ReasonNotTenantMember denies parish-scoped requests from non-members.
	ReasonNotTenantMember Reason = "NOT_TENANT_MEMBER"
	// ReasonReadOnlyTenant denies mutating actions for readonly members.
	ReasonReadOnlyTenant Reason = "READONLY_TENANT"
	// ReasonLimitedTenant denies actions outside the configured subset for limited members.
	ReasonLimitedTenant Reason = "LIMITED_TENANT"
	// ReasonRecordGrant marks an allow forced by a record-level entry.
	ReasonRecordGrant Reason = "RECORD_GRANT"
	// ReasonRecordDeny marks a deny forced by a record-level entry.
	ReasonRecordDeny Reason = "RECORD_DENY"
	// ReasonUnknownPermission denies actions that are not in the catalog.
	ReasonUnknownPermission Reason = "UNKNOWN_PERMISSION"
	// ReasonCallerError denies requests whose identity precondition was violated.
	ReasonCallerError Reason = "CALLER_ERROR"
)

// Decision is the resolver output: a single auditable yes/no with provenance.
type Decision struct {
	Allowed    bool   `json:"allowed"`
	Reason     Reason `json:"reason"`
	Permission string `json:"permission"`

	// LegacyFallback is set when the role layer came from the pre-RBAC
	// single-role mapping rather than role bindings.
	LegacyFallback bool `json:"legacy_fallback,omitempty"`
}

func deny(reason Reason, permission string) Decision {
	return Decision{Allowed: false, Reason: reason, Permission: permission}
}

func allow(reason Reason, permission string) Decision {
	return Decision{Allowed: true, Reason: reason, Permission: permission}
}
