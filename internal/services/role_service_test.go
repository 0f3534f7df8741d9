package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parohia/parohia/internal/authz"
	"github.com/parohia/parohia/internal/models"
)

func TestCreateRoleAndReplacePermissions(t *testing.T) {
	db, catalog := newServiceTestEnv(t)

	svc, err := NewRoleService(db, catalog, nil)
	require.NoError(t, err)

	role, err := svc.CreateRole(context.Background(), CreateRoleInput{
		Name:        "casier",
		Description: "Cash desk operations",
	})
	require.NoError(t, err)
	require.True(t, role.IsActive)
	require.False(t, role.IsSystem)

	err = svc.ReplacePermissions(context.Background(), role.ID, []string{"invoices.read", "invoices.create"})
	require.NoError(t, err)

	loaded, err := svc.GetRole(context.Background(), role.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Permissions, 2)
}

func TestCreateRoleDuplicateName(t *testing.T) {
	db, catalog := newServiceTestEnv(t)

	svc, err := NewRoleService(db, catalog, nil)
	require.NoError(t, err)

	_, err = svc.CreateRole(context.Background(), CreateRoleInput{Name: "casier"})
	require.NoError(t, err)

	_, err = svc.CreateRole(context.Background(), CreateRoleInput{Name: "casier"})
	require.Error(t, err)
}

func TestReplacePermissionsRejectsUnknownName(t *testing.T) {
	db, catalog := newServiceTestEnv(t)

	svc, err := NewRoleService(db, catalog, nil)
	require.NoError(t, err)

	role, err := svc.CreateRole(context.Background(), CreateRoleInput{Name: "casier"})
	require.NoError(t, err)

	err = svc.ReplacePermissions(context.Background(), role.ID, []string{"invoices.read", "nonsense.verb"})
	require.Error(t, err)
}

func TestSystemRoleImmutability(t *testing.T) {
	db, catalog := newServiceTestEnv(t)

	svc, err := NewRoleService(db, catalog, nil)
	require.NoError(t, err)

	var episcop models.Role
	require.NoError(t, db.First(&episcop, "name = ?", "episcop").Error)
	require.True(t, episcop.IsSystem)

	_, err = svc.UpdateRole(context.Background(), episcop.ID, UpdateRoleInput{Name: "altceva"})
	require.ErrorIs(t, err, ErrSystemRoleImmutable)

	err = svc.ReplacePermissions(context.Background(), episcop.ID, []string{"invoices.read"})
	require.ErrorIs(t, err, ErrSystemRoleImmutable)

	err = svc.DeleteRole(context.Background(), episcop.ID)
	require.ErrorIs(t, err, ErrSystemRoleImmutable)
}

func TestUpdateRoleDescriptionAndActiveFlag(t *testing.T) {
	db, catalog := newServiceTestEnv(t)

	svc, err := NewRoleService(db, catalog, nil)
	require.NoError(t, err)

	role, err := svc.CreateRole(context.Background(), CreateRoleInput{Name: "casier"})
	require.NoError(t, err)

	desc := "Updated description"
	inactive := false
	updated, err := svc.UpdateRole(context.Background(), role.ID, UpdateRoleInput{
		Description: &desc,
		IsActive:    &inactive,
	})
	require.NoError(t, err)
	require.Equal(t, desc, updated.Description)
	require.False(t, updated.IsActive)
}

func TestAssignAndRemoveRole(t *testing.T) {
	db, catalog := newServiceTestEnv(t)

	svc, err := NewRoleService(db, catalog, nil)
	require.NoError(t, err)

	user := createServiceTestUser(t, db, "preot")
	role, err := svc.CreateRole(context.Background(), CreateRoleInput{Name: "casier"})
	require.NoError(t, err)

	require.NoError(t, svc.AssignRole(context.Background(), user.ID, role.ID))
	// Re-assigning is a no-op.
	require.NoError(t, svc.AssignRole(context.Background(), user.ID, role.ID))

	var loaded models.User
	require.NoError(t, db.Preload("Roles").First(&loaded, "id = ?", user.ID).Error)
	require.Len(t, loaded.Roles, 1)

	require.NoError(t, svc.RemoveRole(context.Background(), user.ID, role.ID))

	require.NoError(t, db.Preload("Roles").First(&loaded, "id = ?", user.ID).Error)
	require.Empty(t, loaded.Roles)
}

func TestAssignRoleUnknownTargets(t *testing.T) {
	db, catalog := newServiceTestEnv(t)

	svc, err := NewRoleService(db, catalog, nil)
	require.NoError(t, err)

	user := createServiceTestUser(t, db, "preot")
	role, err := svc.CreateRole(context.Background(), CreateRoleInput{Name: "casier"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.AssignRole(context.Background(), "missing-user", role.ID), ErrUserNotFound)
	require.ErrorIs(t, svc.AssignRole(context.Background(), user.ID, "missing-role"), ErrRoleNotFound)
}

func TestDeleteRoleDetachesUsers(t *testing.T) {
	db, catalog := newServiceTestEnv(t)

	svc, err := NewRoleService(db, catalog, nil)
	require.NoError(t, err)

	user := createServiceTestUser(t, db, "preot")
	role, err := svc.CreateRole(context.Background(), CreateRoleInput{Name: "casier"})
	require.NoError(t, err)
	require.NoError(t, svc.ReplacePermissions(context.Background(), role.ID, []string{"invoices.read"}))
	require.NoError(t, svc.AssignRole(context.Background(), user.ID, role.ID))

	require.NoError(t, svc.DeleteRole(context.Background(), role.ID))

	_, err = svc.GetRole(context.Background(), role.ID)
	require.ErrorIs(t, err, ErrRoleNotFound)

	var loaded models.User
	require.NoError(t, db.Preload("Roles").First(&loaded, "id = ?", user.ID).Error)
	require.Empty(t, loaded.Roles)
}

func TestSeededRolesMatchCatalog(t *testing.T) {
	db, catalog := newServiceTestEnv(t)

	svc, err := NewRoleService(db, catalog, nil)
	require.NoError(t, err)

	roles, err := svc.ListRoles(context.Background())
	require.NoError(t, err)

	byName := make(map[string]models.Role, len(roles))
	for _, role := range roles {
		byName[role.Name] = role
	}

	for _, seed := range authz.DefaultRoleSeeds() {
		role, ok := byName[seed.Name]
		require.True(t, ok, "seed role %s missing", seed.Name)
		require.True(t, role.IsSystem)
		require.Len(t, role.Permissions, len(seed.Permissions))
	}
}
