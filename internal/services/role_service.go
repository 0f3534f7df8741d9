package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/parohia/parohia/internal/authz"
	"github.com/parohia/parohia/internal/models"
	apperrors "github.com/parohia/parohia/pkg/errors"
)

var (
	// ErrRoleNotFound indicates the requested role does not exist.
	ErrRoleNotFound = apperrors.New("ROLE_NOT_FOUND", "Role not found", http.StatusNotFound)
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrSystemRoleImmutable prevents destructive operations on system roles.
	ErrSystemRoleImmutable = apperrors.New("ROLE_IMMUTABLE", "System roles cannot be modified", http.StatusBadRequest)
)

// RoleService provides role management and role assignment helpers.
type RoleService struct {
	db           *gorm.DB
	catalog      *authz.Catalog
	auditService *AuditService
}

// NewRoleService constructs a RoleService validating permission names against the catalog.
func NewRoleService(db *gorm.DB, catalog *authz.Catalog, audit *AuditService) (*RoleService, error) {
	if db == nil {
		return nil, errors.New("role service: db is required")
	}
	if catalog == nil {
		return nil, errors.New("role service: catalog is required")
	}
	return &RoleService{
		db:           db,
		catalog:      catalog,
		auditService: audit,
	}, nil
}

// CreateRoleInput describes the payload accepted by CreateRole.
type CreateRoleInput struct {
	Name        string
	Description string
}

// UpdateRoleInput describes mutable fields on a role.
type UpdateRoleInput struct {
	Name        string
	Description *string
	IsActive    *bool
}

// CreateRole registers a new custom role.
func (s *RoleService) CreateRole(ctx context.Context, input CreateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("role name is required")
	}

	role := &models.Role{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		IsActive:    true,
	}

	if err := s.db.WithContext(ctx).Create(role).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("role name already exists")
		}
		return nil, fmt.Errorf("role service: create role: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "role.create",
		Resource: role.ID,
		Result:   "success",
		Metadata: map[string]any{"name": role.Name},
	})

	return role, nil
}

// UpdateRole modifies existing role metadata. System role names are immutable
// but their description and active flag may still change.
func (s *RoleService) UpdateRole(ctx context.Context, roleID string, input UpdateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)

	var role models.Role
	if err := s.db.WithContext(ctx).First(&role, "id = ?", roleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("role service: load role: %w", err)
	}

	if role.IsSystem {
		if name := strings.TrimSpace(input.Name); name != "" && name != role.Name {
			return nil, ErrSystemRoleImmutable
		}
	}

	updates := map[string]any{}
	if name := strings.TrimSpace(input.Name); name != "" && name != role.Name {
		updates["name"] = name
	}
	if input.Description != nil && strings.TrimSpace(*input.Description) != role.Description {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.IsActive != nil && *input.IsActive != role.IsActive {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) == 0 {
		return &role, nil
	}

	if err := s.db.WithContext(ctx).Model(&role).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("role name already exists")
		}
		return nil, fmt.Errorf("role service: update role: %w", err)
	}

	if err := s.db.WithContext(ctx).First(&role, "id = ?", roleID).Error; err != nil {
		return nil, fmt.Errorf("role service: reload role: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "role.update",
		Resource: role.ID,
		Result:   "success",
		Metadata: updates,
	})

	return &role, nil
}

// DeleteRole removes non-system roles permanently.
func (s *RoleService) DeleteRole(ctx context.Context, roleID string) error {
	ctx = ensureContext(ctx)

	var role models.Role
	if err := s.db.WithContext(ctx).First(&role, "id = ?", roleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("role service: load role: %w", err)
	}

	if role.IsSystem {
		return ErrSystemRoleImmutable
	}

	if err := s.db.WithContext(ctx).Model(&role).Association("Permissions").Clear(); err != nil {
		return fmt.Errorf("role service: clear role permissions: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&role).Association("Users").Clear(); err != nil {
		return fmt.Errorf("role service: clear role users: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&role).Error; err != nil {
		return fmt.Errorf("role service: delete role: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "role.delete",
		Resource: role.ID,
		Result:   "success",
		Metadata: map[string]any{"name": role.Name},
	})

	return nil
}

// GetRole loads a single role with its permissions.
func (s *RoleService) GetRole(ctx context.Context, roleID string) (*models.Role, error) {
	ctx = ensureContext(ctx)

	var role models.Role
	if err := s.db.WithContext(ctx).Preload("Permissions").First(&role, "id = ?", roleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("role service: load role: %w", err)
	}
	return &role, nil
}

// ListRoles returns all roles ordered by creation date.
func (s *RoleService) ListRoles(ctx context.Context) ([]models.Role, error) {
	ctx = ensureContext(ctx)

	var roles []models.Role
	if err := s.db.WithContext(ctx).Preload("Permissions").Order("created_at ASC").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("role service: list roles: %w", err)
	}
	return roles, nil
}

// ReplacePermissions replaces the role's permission set with the provided
// dotted names. Every name must exist in the catalog.
func (s *RoleService) ReplacePermissions(ctx context.Context, roleID string, permissionNames []string) error {
	ctx = ensureContext(ctx)

	names := normaliseIDs(permissionNames)
	for _, name := range names {
		if !s.catalog.Has(name) {
			return apperrors.NewBadRequest(fmt.Sprintf("unknown permission %q", name))
		}
	}
	sort.Strings(names)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.First(&role, "id = ?", roleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoleNotFound
			}
			return fmt.Errorf("role service: load role: %w", err)
		}

		if role.IsSystem {
			return ErrSystemRoleImmutable
		}

		if len(names) == 0 {
			return tx.Model(&role).Association("Permissions").Clear()
		}

		var perms []models.Permission
		if err := tx.Where("id IN ?", names).Find(&perms).Error; err != nil {
			return fmt.Errorf("role service: load permissions: %w", err)
		}
		if len(perms) != len(names) {
			return fmt.Errorf("role service: some permissions are missing in database")
		}

		if err := tx.Model(&role).Association("Permissions").Replace(perms); err != nil {
			return fmt.Errorf("role service: update permissions: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "role.set_permissions",
		Resource: roleID,
		Result:   "success",
		Metadata: map[string]any{"permissions": names},
	})

	return nil
}

// AssignRole binds a role to a user. Assigning an already bound role is a no-op.
func (s *RoleService) AssignRole(ctx context.Context, userID, roleID string) error {
	ctx = ensureContext(ctx)

	user, role, err := s.loadUserAndRole(ctx, userID, roleID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Model(user).Association("Roles").Append(role); err != nil {
		if !isUniqueConstraintError(err) {
			return fmt.Errorf("role service: assign role: %w", err)
		}
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &user.ID,
		Action:   "role.assign",
		Resource: role.ID,
		Result:   "success",
		Metadata: map[string]any{"role": role.Name},
	})

	return nil
}

// RemoveRole unbinds a role from a user.
func (s *RoleService) RemoveRole(ctx context.Context, userID, roleID string) error {
	ctx = ensureContext(ctx)

	user, role, err := s.loadUserAndRole(ctx, userID, roleID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Model(user).Association("Roles").Delete(role); err != nil {
		return fmt.Errorf("role service: remove role: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &user.ID,
		Action:   "role.remove",
		Resource: role.ID,
		Result:   "success",
		Metadata: map[string]any{"role": role.Name},
	})

	return nil
}

func (s *RoleService) loadUserAndRole(ctx context.Context, userID, roleID string) (*models.User, *models.Role, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("role service: load user: %w", err)
	}

	var role models.Role
	if err := s.db.WithContext(ctx).First(&role, "id = ?", roleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrRoleNotFound
		}
		return nil, nil, fmt.Errorf("role service: load role: %w", err)
	}

	return &user, &role, nil
}
