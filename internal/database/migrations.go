package database

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/parohia/parohia/internal/authz"
	"github.com/parohia/parohia/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Parish{},
		&models.Role{},
		&models.Permission{},
		&models.PermissionOverride{},
		&models.ParishMembership{},
		&models.RecordAccessEntry{},
		&models.Session{},
		&models.AuditLog{},
		&models.CacheEntry{},
	)
}

// SeedData loads the static seed payload: the permission catalog, the default
// system roles, and their permission bindings. Idempotent: reruns upsert
// catalog rows and leave existing roles untouched.
func SeedData(db *gorm.DB) error {
	catalog, err := authz.DefaultCatalog()
	if err != nil {
		return fmt.Errorf("build default catalog: %w", err)
	}

	if err := SyncCatalog(db, catalog); err != nil {
		return err
	}

	for _, seed := range authz.DefaultRoleSeeds() {
		role := models.Role{
			BaseModel:   models.BaseModel{ID: seed.ID},
			Name:        seed.Name,
			Description: seed.Description,
			IsSystem:    true,
			IsActive:    true,
		}

		var existing models.Role
		err := db.Where("id = ?", seed.ID).First(&existing).Error
		switch {
		case err == nil:
			continue // never overwrite administrative changes on reseed
		case err != gorm.ErrRecordNotFound:
			return fmt.Errorf("seed role %s: %w", seed.ID, err)
		}

		if err := db.Create(&role).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", seed.ID, err)
		}

		if err := bindRolePermissions(db, role.ID, seed.Permissions); err != nil {
			return fmt.Errorf("seed role %s bindings: %w", seed.ID, err)
		}
	}

	return nil
}

// SyncCatalog upserts the immutable catalog snapshot into the permissions
// table so role bindings have rows to reference.
func SyncCatalog(db *gorm.DB, catalog *authz.Catalog) error {
	for _, def := range catalog.Definitions() {
		record := models.Permission{
			BaseModel:   models.BaseModel{ID: def.Name()},
			Resource:    def.Resource,
			Action:      def.Action,
			Description: def.Description,
			IsSystem:    def.System,
		}

		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"resource", "action", "description", "is_system"}),
		}).Create(&record).Error; err != nil {
			return fmt.Errorf("sync permission %s: %w", def.Name(), err)
		}
	}

	return nil
}

func bindRolePermissions(db *gorm.DB, roleID string, permissionNames []string) error {
	if len(permissionNames) == 0 {
		return nil
	}

	var role models.Role
	if err := db.Where("id = ?", roleID).First(&role).Error; err != nil {
		return err
	}

	var perms []models.Permission
	if err := db.Where("id IN ?", permissionNames).Find(&perms).Error; err != nil {
		return err
	}
	if len(perms) == 0 {
		return nil
	}

	return db.Model(&role).Association("Permissions").Append(&perms)
}
