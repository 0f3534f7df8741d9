package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/parohia/parohia/internal/auth"
	"github.com/parohia/parohia/internal/authz"
	"github.com/parohia/parohia/internal/database/testutil"
	"github.com/parohia/parohia/internal/models"
	"github.com/parohia/parohia/internal/services"
	"github.com/parohia/parohia/pkg/crypto"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	catalog, err := authz.DefaultCatalog()
	require.NoError(t, err)
	store, err := authz.NewGormStore(db)
	require.NoError(t, err)
	resolver, err := authz.NewResolver(catalog, store, authz.Config{})
	require.NoError(t, err)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "router-test-secret"})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{})
	require.NoError(t, err)
	authenticator, err := iauth.NewAuthenticator(db, nil)
	require.NoError(t, err)

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)
	roles, err := services.NewRoleService(db, catalog, audit)
	require.NoError(t, err)
	access, err := services.NewAccessService(db, catalog, audit)
	require.NoError(t, err)

	router, err := NewRouter(Deps{
		DB:            db,
		JWT:           jwtSvc,
		Sessions:      sessions,
		Authenticator: authenticator,
		Catalog:       catalog,
		Resolver:      resolver,
		Roles:         roles,
		Access:        access,
		Audit:         audit,
	})
	require.NoError(t, err)

	return router, db
}

func createRouterTestUser(t *testing.T, db *gorm.DB, username, password, roleName string) *models.User {
	t.Helper()

	hashed, err := crypto.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hashed,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)

	if roleName != "" {
		var role models.Role
		require.NoError(t, db.First(&role, "name = ?", roleName).Error)
		require.NoError(t, db.Model(user).Association("Roles").Append(&role))
	}

	return user
}

func loginAs(t *testing.T, router *gin.Engine, username, password string) string {
	t.Helper()

	body, err := json.Marshal(gin.H{"identifier": username, "password": password})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Data struct {
			Tokens struct {
				AccessToken string `json:"access_token"`
			} `json:"tokens"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.NotEmpty(t, payload.Data.Tokens.AccessToken)

	return payload.Data.Tokens.AccessToken
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/health", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestLoginAndAuthzCheck(t *testing.T) {
	router, db := newTestRouter(t)

	createRouterTestUser(t, db, "contabil1", "parola123", "contabil")
	token := loginAs(t, router, "contabil1", "parola123")

	body, _ := json.Marshal(gin.H{"action": "invoices.read"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/authz/check", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Data struct {
			Allowed bool   `json:"allowed"`
			Reason  string `json:"reason"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.True(t, payload.Data.Allowed)
	require.Equal(t, "ROLE_DERIVED", payload.Data.Reason)

	// A permission outside the role's set is denied, not an error.
	body, _ = json.Marshal(gin.H{"action": "users.delete"})
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/api/authz/check", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.False(t, payload.Data.Allowed)
	require.Equal(t, "NO_PERMISSION", payload.Data.Reason)
}

func TestAuthzCheckPersistsDecisionAudit(t *testing.T) {
	router, db := newTestRouter(t)

	user := createRouterTestUser(t, db, "contabil2", "parola123", "contabil")
	token := loginAs(t, router, "contabil2", "parola123")

	body, _ := json.Marshal(gin.H{"action": "invoices.approve", "parish_id": "P1"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/authz/check", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var entry models.AuditLog
	require.NoError(t, db.Where("user_id = ? AND action = ?", user.ID, "invoices.approve").
		First(&entry).Error)
	require.Equal(t, "deny", entry.Result)
	require.Equal(t, "NOT_TENANT_MEMBER", entry.Reason)
	require.Equal(t, "P1", entry.ParishID)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	router, db := newTestRouter(t)

	createRouterTestUser(t, db, "contabil1", "parola123", "contabil")

	body, _ := json.Marshal(gin.H{"identifier": "contabil1", "password": "gresit"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleRoutesRequireManagePermission(t *testing.T) {
	router, db := newTestRouter(t)

	createRouterTestUser(t, db, "viz1", "parola123", "vizualizare")
	token := loginAs(t, router, "viz1", "parola123")

	body, _ := json.Marshal(gin.H{"name": "casier"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/roles", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminCanManageRolesAndOverrides(t *testing.T) {
	router, db := newTestRouter(t)

	createRouterTestUser(t, db, "admin1", "parola123", "administrator")
	target := createRouterTestUser(t, db, "tinta", "parola123", "")
	token := loginAs(t, router, "admin1", "parola123")

	// Create a role.
	body, _ := json.Marshal(gin.H{"name": "casier", "description": "Cash desk"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/roles", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	// Set an explicit deny override on the target user.
	body, _ = json.Marshal(gin.H{"permission": "invoices.approve", "granted": false})
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("PUT", "/api/users/"+target.ID+"/overrides", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.PermissionOverride{}).
		Where("user_id = ?", target.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/roles", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetricsEndpointExposed(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "go_goroutines")
}
