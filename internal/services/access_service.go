package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/parohia/parohia/internal/authz"
	"github.com/parohia/parohia/internal/models"
	apperrors "github.com/parohia/parohia/pkg/errors"
)

var (
	// ErrParishNotFound indicates the requested parish does not exist.
	ErrParishNotFound = apperrors.New("PARISH_NOT_FOUND", "Parish not found", http.StatusNotFound)
	// ErrMembershipNotFound indicates no membership row exists for the pair.
	ErrMembershipNotFound = apperrors.New("MEMBERSHIP_NOT_FOUND", "Membership not found", http.StatusNotFound)
)

// AccessService manages permission overrides, parish memberships, and
// record-level access entries for individual users.
type AccessService struct {
	db           *gorm.DB
	catalog      *authz.Catalog
	auditService *AuditService
}

// NewAccessService constructs an AccessService using the provided database handle.
func NewAccessService(db *gorm.DB, catalog *authz.Catalog, audit *AuditService) (*AccessService, error) {
	if db == nil {
		return nil, errors.New("access service: db is required")
	}
	if catalog == nil {
		return nil, errors.New("access service: catalog is required")
	}
	return &AccessService{
		db:           db,
		catalog:      catalog,
		auditService: audit,
	}, nil
}

// SetOverride creates or replaces the per-user override for one permission.
// Granted=false records an explicit deny.
func (s *AccessService) SetOverride(ctx context.Context, userID, permission string, granted bool) (*models.PermissionOverride, error) {
	ctx = ensureContext(ctx)

	permission = strings.TrimSpace(permission)
	if !s.catalog.Has(permission) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown permission %q", permission))
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	override := &models.PermissionOverride{
		UserID:       userID,
		PermissionID: permission,
		Granted:      granted,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "permission_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"granted", "updated_at"}),
	}).Create(override).Error
	if err != nil {
		return nil, fmt.Errorf("access service: set override: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "access.override_set",
		Resource: permission,
		Result:   "success",
		Metadata: map[string]any{"granted": granted},
	})

	return override, nil
}

// ClearOverride removes the override for one (user, permission) pair if present.
func (s *AccessService) ClearOverride(ctx context.Context, userID, permission string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND permission_id = ?", userID, strings.TrimSpace(permission)).
		Delete(&models.PermissionOverride{})
	if result.Error != nil {
		return fmt.Errorf("access service: clear override: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		recordAudit(s.auditService, ctx, AuditEntry{
			UserID:   &userID,
			Action:   "access.override_clear",
			Resource: permission,
			Result:   "success",
		})
	}

	return nil
}

// ListOverrides returns all overrides recorded for the user.
func (s *AccessService) ListOverrides(ctx context.Context, userID string) ([]models.PermissionOverride, error) {
	ctx = ensureContext(ctx)

	var overrides []models.PermissionOverride
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("permission_id ASC").
		Find(&overrides).Error; err != nil {
		return nil, fmt.Errorf("access service: list overrides: %w", err)
	}
	return overrides, nil
}

// MembershipInput describes the payload accepted by UpsertMembership.
type MembershipInput struct {
	UserID      string
	ParishID    string
	AccessLevel models.AccessLevel
	IsPrimary   bool
}

// UpsertMembership creates or updates a user's membership in a parish.
// Marking a membership primary demotes the user's other primary memberships
// inside the same transaction.
func (s *AccessService) UpsertMembership(ctx context.Context, input MembershipInput) (*models.ParishMembership, error) {
	ctx = ensureContext(ctx)

	if !input.AccessLevel.Valid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("invalid access level %q", input.AccessLevel))
	}
	if err := s.requireUser(ctx, input.UserID); err != nil {
		return nil, err
	}
	if err := s.requireParish(ctx, input.ParishID); err != nil {
		return nil, err
	}

	membership := &models.ParishMembership{
		UserID:      input.UserID,
		ParishID:    input.ParishID,
		AccessLevel: input.AccessLevel,
		IsPrimary:   input.IsPrimary,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.IsPrimary {
			if err := tx.Model(&models.ParishMembership{}).
				Where("user_id = ? AND parish_id <> ?", input.UserID, input.ParishID).
				Update("is_primary", false).Error; err != nil {
				return fmt.Errorf("access service: demote primary memberships: %w", err)
			}
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "parish_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_level", "is_primary", "updated_at"}),
		}).Create(membership).Error
	})
	if err != nil {
		return nil, fmt.Errorf("access service: upsert membership: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &input.UserID,
		Action:   "access.membership_upsert",
		ParishID: input.ParishID,
		Result:   "success",
		Metadata: map[string]any{
			"access_level": string(input.AccessLevel),
			"is_primary":   input.IsPrimary,
		},
	})

	return membership, nil
}

// RemoveMembership deletes the membership row for the (user, parish) pair.
func (s *AccessService) RemoveMembership(ctx context.Context, userID, parishID string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND parish_id = ?", userID, parishID).
		Delete(&models.ParishMembership{})
	if result.Error != nil {
		return fmt.Errorf("access service: remove membership: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMembershipNotFound
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "access.membership_remove",
		ParishID: parishID,
		Result:   "success",
	})

	return nil
}

// ListMemberships returns the user's memberships with parishes preloaded.
func (s *AccessService) ListMemberships(ctx context.Context, userID string) ([]models.ParishMembership, error) {
	ctx = ensureContext(ctx)

	var memberships []models.ParishMembership
	if err := s.db.WithContext(ctx).
		Preload("Parish").
		Where("user_id = ?", userID).
		Order("parish_id ASC").
		Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("access service: list memberships: %w", err)
	}
	return memberships, nil
}

// RecordAccessInput describes the payload accepted by SetRecordAccess.
type RecordAccessInput struct {
	UserID       string
	ResourceType string
	ResourceID   string
	Granted      bool
	GrantedByID  string
}

// SetRecordAccess creates or replaces a record-level entry for one resource instance.
func (s *AccessService) SetRecordAccess(ctx context.Context, input RecordAccessInput) (*models.RecordAccessEntry, error) {
	ctx = ensureContext(ctx)

	resourceType := strings.TrimSpace(input.ResourceType)
	resourceID := strings.TrimSpace(input.ResourceID)
	if resourceType == "" || resourceID == "" {
		return nil, apperrors.NewBadRequest("resource type and id are required")
	}
	if err := s.requireUser(ctx, input.UserID); err != nil {
		return nil, err
	}

	entry := &models.RecordAccessEntry{
		UserID:       input.UserID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Granted:      input.Granted,
	}
	if grantedBy := strings.TrimSpace(input.GrantedByID); grantedBy != "" {
		entry.GrantedByID = &grantedBy
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "resource_type"}, {Name: "resource_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"granted", "granted_by_id", "updated_at"}),
	}).Create(entry).Error
	if err != nil {
		return nil, fmt.Errorf("access service: set record access: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &input.UserID,
		Action:   "access.record_set",
		Resource: resourceType + ":" + resourceID,
		Result:   "success",
		Metadata: map[string]any{"granted": input.Granted},
	})

	return entry, nil
}

// ClearRecordAccess removes the record-level entry for one resource instance.
func (s *AccessService) ClearRecordAccess(ctx context.Context, userID, resourceType, resourceID string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND resource_type = ? AND resource_id = ?",
			userID, strings.TrimSpace(resourceType), strings.TrimSpace(resourceID)).
		Delete(&models.RecordAccessEntry{})
	if result.Error != nil {
		return fmt.Errorf("access service: clear record access: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		recordAudit(s.auditService, ctx, AuditEntry{
			UserID:   &userID,
			Action:   "access.record_clear",
			Resource: resourceType + ":" + resourceID,
			Result:   "success",
		})
	}

	return nil
}

// ListRecordAccess returns the record-level entries recorded for the user.
func (s *AccessService) ListRecordAccess(ctx context.Context, userID string) ([]models.RecordAccessEntry, error) {
	ctx = ensureContext(ctx)

	var entries []models.RecordAccessEntry
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("resource_type ASC, resource_id ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("access service: list record access: %w", err)
	}
	return entries, nil
}

func (s *AccessService) requireUser(ctx context.Context, userID string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return fmt.Errorf("access service: load user: %w", err)
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *AccessService) requireParish(ctx context.Context, parishID string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Parish{}).Where("id = ?", parishID).Count(&count).Error; err != nil {
		return fmt.Errorf("access service: load parish: %w", err)
	}
	if count == 0 {
		return ErrParishNotFound
	}
	return nil
}
