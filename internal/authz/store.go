package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/parohia/parohia/internal/models"
)

// ErrPrincipalNotFound indicates the user id passed to the resolver does not
// reference a known account. The resolver maps it to a CALLER_ERROR deny.
var ErrPrincipalNotFound = errors.New("authz: principal not found")

// Principal is the role-layer view of a user as the resolver consumes it.
type Principal struct {
	UserID     string
	Active     bool
	LegacyRole string

	// HasRoleBindings distinguishes "no bindings at all" (legacy fallback
	// applies) from "bindings exist but grant nothing".
	HasRoleBindings bool

	// RolePermissions holds the permission names granted by active roles.
	RolePermissions map[string]struct{}
}

// Store exposes read-only access to the five authorization registries. All
// lookups are pure reads; failures surface as errors, never as denies.
type Store interface {
	// Principal loads the user together with their active-role permission
	// names. Returns ErrPrincipalNotFound for unknown ids.
	Principal(ctx context.Context, userID string) (*Principal, error)

	// Override returns the per-user override for one permission, or nil
	// when none exists.
	Override(ctx context.Context, userID, permissionID string) (*models.PermissionOverride, error)

	// Membership returns the parish membership for (user, parish), or nil
	// when the user is not a member.
	Membership(ctx context.Context, userID, parishID string) (*models.ParishMembership, error)

	// Memberships returns all parish memberships of the user.
	Memberships(ctx context.Context, userID string) ([]models.ParishMembership, error)

	// RecordEntry returns the record-level entry for one resource
	// instance, or nil when none exists.
	RecordEntry(ctx context.Context, userID, resourceType, resourceID string) (*models.RecordAccessEntry, error)
}

// GormStore implements Store against the shared relational database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore constructs a registry store backed by the provided database.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("authz store: db is required")
	}
	return &GormStore{db: db}, nil
}

// Principal loads the user and derives the active-role permission set.
func (s *GormStore) Principal(ctx context.Context, userID string) (*Principal, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrPrincipalNotFound
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Roles.Permissions").
		First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPrincipalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("authz store: load principal: %w", err)
	}

	principal := &Principal{
		UserID:          user.ID,
		Active:          user.IsActive,
		LegacyRole:      strings.TrimSpace(user.LegacyRole),
		HasRoleBindings: len(user.Roles) > 0,
		RolePermissions: make(map[string]struct{}),
	}

	for _, role := range user.Roles {
		if !role.IsActive {
			continue
		}
		for _, perm := range role.Permissions {
			principal.RolePermissions[perm.ID] = struct{}{}
		}
	}

	return principal, nil
}

// Override fetches the per-user override row for the exact permission.
func (s *GormStore) Override(ctx context.Context, userID, permissionID string) (*models.PermissionOverride, error) {
	var override models.PermissionOverride
	err := s.db.WithContext(ctx).
		First(&override, "user_id = ? AND permission_id = ?", userID, permissionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("authz store: load override: %w", err)
	}
	return &override, nil
}

// Membership fetches the parish membership row for (user, parish).
func (s *GormStore) Membership(ctx context.Context, userID, parishID string) (*models.ParishMembership, error) {
	var membership models.ParishMembership
	err := s.db.WithContext(ctx).
		First(&membership, "user_id = ? AND parish_id = ?", userID, parishID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("authz store: load membership: %w", err)
	}
	return &membership, nil
}

// Memberships lists every parish membership of the user.
func (s *GormStore) Memberships(ctx context.Context, userID string) ([]models.ParishMembership, error) {
	var memberships []models.ParishMembership
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&memberships).Error
	if err != nil {
		return nil, fmt.Errorf("authz store: list memberships: %w", err)
	}
	return memberships, nil
}

// RecordEntry fetches the record-level entry for one resource instance.
func (s *GormStore) RecordEntry(ctx context.Context, userID, resourceType, resourceID string) (*models.RecordAccessEntry, error) {
	var entry models.RecordAccessEntry
	err := s.db.WithContext(ctx).
		First(&entry, "user_id = ? AND resource_type = ? AND resource_id = ?", userID, resourceType, resourceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("authz store: load record entry: %w", err)
	}
	return &entry, nil
}
