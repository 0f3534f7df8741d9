package authz

import (
	"context"
	"errors"
	"strings"

	"github.com/parohia/parohia/internal/models"
)

// Request identifies one intended action for a decision.
type Request struct {
	UserID       string
	Action       string // dotted permission name, e.g. "invoices.update"
	ResourceType string // opaque resource category, e.g. "invoice"
	ResourceID   string // optional: scopes the decision to one record
	ParishID     string // optional: scopes the decision to one tenant
}

// Config carries per-deployment resolver inputs.
type Config struct {
	// LimitedActions maps a resource type to the permission names a
	// "limited" parish member may still perform. Anything outside the
	// subset is denied for limited members.
	LimitedActions map[string][]string
}

// Resolver combines the role, override, tenant, and record layers into one
// auditable decision. It is a pure function of its inputs plus registry
// state and is safe for concurrent use.
type Resolver struct {
	catalog *Catalog
	store   Store
	limited map[string]map[string]struct{}
}

// NewResolver constructs a resolver over an immutable catalog snapshot and a
// registry store.
func NewResolver(catalog *Catalog, store Store, cfg Config) (*Resolver, error) {
	if catalog == nil {
		return nil, errors.New("resolver: catalog is required")
	}
	if store == nil {
		return nil, errors.New("resolver: store is required")
	}

	limited := make(map[string]map[string]struct{}, len(cfg.LimitedActions))
	for resourceType, actions := range cfg.LimitedActions {
		subset := make(map[string]struct{}, len(actions))
		for _, action := range actions {
			action = strings.TrimSpace(action)
			if action != "" {
				subset[action] = struct{}{}
			}
		}
		limited[resourceType] = subset
	}

	return &Resolver{catalog: catalog, store: store, limited: limited}, nil
}

// Decide evaluates the request through each authorization layer in strict
// order. The returned error is non-nil only for registry failures; callers
// must treat that as "could not determine", never as a deny.
func (r *Resolver) Decide(ctx context.Context, req Request) (Decision, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.Action = strings.TrimSpace(req.Action)
	req.ResourceType = strings.TrimSpace(req.ResourceType)

	// Identity precondition: a validated principal must already be in hand.
	if req.UserID == "" || req.Action == "" {
		return deny(ReasonCallerError, req.Action), nil
	}
	// A record-scoped request must name the record's category.
	if req.ResourceID != "" && req.ResourceType == "" {
		return deny(ReasonCallerError, req.Action), nil
	}

	// Unknown permissions resolve as deny, never as allow-by-default.
	def, known := r.catalog.Lookup(req.Action)
	if !known {
		return deny(ReasonUnknownPermission, req.Action), nil
	}
	// Plain action checks carry the category in the permission itself.
	if req.ResourceType == "" {
		req.ResourceType = def.Resource
	}

	principal, err := r.store.Principal(ctx, req.UserID)
	if errors.Is(err, ErrPrincipalNotFound) {
		return deny(ReasonCallerError, req.Action), nil
	}
	if err != nil {
		return Decision{}, err
	}
	if !principal.Active {
		return deny(ReasonCallerError, req.Action), nil
	}

	rolePerms, legacyFallback := r.effectivePermissions(principal)
	_, wildcard := rolePerms[PermSystemAll]

	decision := deny(ReasonNoPermission, req.Action)
	switch {
	case wildcard:
		decision = allow(ReasonWildcard, req.Action)
	default:
		if _, ok := rolePerms[req.Action]; ok {
			if legacyFallback {
				decision = allow(ReasonLegacyRole, req.Action)
			} else {
				decision = allow(ReasonRoleDerived, req.Action)
			}
		}
	}
	decision.LegacyFallback = legacyFallback

	// Per-user override: deny dominates every role-derived grant,
	// including the wildcard.
	override, err := r.store.Override(ctx, req.UserID, req.Action)
	if err != nil {
		return Decision{}, err
	}
	if override != nil {
		if !override.Granted {
			decision.Allowed = false
			decision.Reason = ReasonExplicitDeny
		} else if !decision.Allowed {
			decision.Allowed = true
			decision.Reason = ReasonExplicitGrant
		}
	}

	// Tenant scoping: permission grants are never tenant-transitive, so
	// even a wildcard holder must be a member of the requested parish.
	if decision.Allowed && req.ParishID != "" {
		decision, err = r.applyTenantScope(ctx, req, decision)
		if err != nil {
			return Decision{}, err
		}
	}

	// Record-level entries outrank everything above.
	if req.ResourceID != "" {
		entry, err := r.store.RecordEntry(ctx, req.UserID, req.ResourceType, req.ResourceID)
		if err != nil {
			return Decision{}, err
		}
		if entry != nil {
			decision.Allowed = entry.Granted
			if entry.Granted {
				decision.Reason = ReasonRecordGrant
			} else {
				decision.Reason = ReasonRecordDeny
			}
		}
	}

	return decision, nil
}

// effectivePermissions returns the role-derived permission set, applying the
// legacy single-role fallback for accounts with zero role bindings and
// expanding the system.admin bundle.
func (r *Resolver) effectivePermissions(principal *Principal) (map[string]struct{}, bool) {
	perms := principal.RolePermissions
	legacy := false

	if !principal.HasRoleBindings {
		legacy = true
		perms = make(map[string]struct{})
		for _, name := range LegacyPermissions(principal.LegacyRole) {
			perms[name] = struct{}{}
		}
	}

	if _, ok := perms[PermSystemAdmin]; ok {
		expanded := make(map[string]struct{}, len(perms)+len(r.catalog.adminGrants))
		for name := range perms {
			expanded[name] = struct{}{}
		}
		for name := range r.catalog.adminGrants {
			expanded[name] = struct{}{}
		}
		perms = expanded
	}

	return perms, legacy
}

func (r *Resolver) applyTenantScope(ctx context.Context, req Request, decision Decision) (Decision, error) {
	membership, err := r.store.Membership(ctx, req.UserID, req.ParishID)
	if err != nil {
		return Decision{}, err
	}
	if membership == nil {
		decision.Allowed = false
		decision.Reason = ReasonNotTenantMember
		return decision, nil
	}

	switch membership.AccessLevel {
	case models.AccessReadOnly:
		if r.catalog.IsMutating(req.Action) {
			decision.Allowed = false
			decision.Reason = ReasonReadOnlyTenant
		}
	case models.AccessLimited:
		subset := r.limited[req.ResourceType]
		if _, ok := subset[req.Action]; !ok {
			decision.Allowed = false
			decision.Reason = ReasonLimitedTenant
		}
	}

	return decision, nil
}

// PrimaryMembership picks the user's primary parish. Multiple primaries are
// tolerated: the lowest parish id wins so behaviour stays reproducible.
// Returns nil when no membership is marked primary.
func PrimaryMembership(memberships []models.ParishMembership) *models.ParishMembership {
	var primary *models.ParishMembership
	for i := range memberships {
		m := &memberships[i]
		if !m.IsPrimary {
			continue
		}
		if primary == nil || m.ParishID < primary.ParishID {
			primary = m
		}
	}
	return primary
}
