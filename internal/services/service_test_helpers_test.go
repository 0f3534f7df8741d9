package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/parohia/parohia/internal/authz"
	"github.com/parohia/parohia/internal/database/testutil"
	"github.com/parohia/parohia/internal/models"
)

func newServiceTestEnv(t *testing.T) (*gorm.DB, *authz.Catalog) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	catalog, err := authz.DefaultCatalog()
	require.NoError(t, err)

	return db, catalog
}

func createServiceTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed",
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createServiceTestParish(t *testing.T, db *gorm.DB, name string) *models.Parish {
	t.Helper()

	parish := &models.Parish{Name: name}
	require.NoError(t, db.Create(parish).Error)
	return parish
}
