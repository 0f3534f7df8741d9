package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/parohia/parohia/internal/auth"
	"github.com/parohia/parohia/internal/authz"
	"github.com/parohia/parohia/internal/handlers"
	"github.com/parohia/parohia/internal/middleware"
	"github.com/parohia/parohia/internal/services"
)

// Deps bundles everything the router needs.
type Deps struct {
	DB            *gorm.DB
	JWT           *iauth.JWTService
	Sessions      *iauth.SessionService
	Authenticator *iauth.Authenticator
	Catalog       *authz.Catalog
	Resolver      *authz.Resolver
	Roles         *services.RoleService
	Access        *services.AccessService
	Audit         *services.AuditService
}

func (d Deps) validate() error {
	switch {
	case d.DB == nil:
		return fmt.Errorf("database handle must be provided")
	case d.JWT == nil:
		return fmt.Errorf("jwt service must be provided")
	case d.Sessions == nil:
		return fmt.Errorf("session service must be provided")
	case d.Authenticator == nil:
		return fmt.Errorf("authenticator must be provided")
	case d.Catalog == nil:
		return fmt.Errorf("catalog must be provided")
	case d.Resolver == nil:
		return fmt.Errorf("resolver must be provided")
	case d.Roles == nil:
		return fmt.Errorf("role service must be provided")
	case d.Access == nil:
		return fmt.Errorf("access service must be provided")
	case d.Audit == nil:
		return fmt.Errorf("audit service must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	// Health endpoint (public)
	r.GET("/api/health", handlers.Health(deps.DB))

	authHandler := handlers.NewAuthHandler(deps.Authenticator, deps.Sessions)

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
	}

	requireAuth := middleware.Auth(deps.JWT)

	api := r.Group("/api")
	api.Use(requireAuth)

	api.POST("/auth/logout-all", authHandler.LogoutAll)

	// Decision endpoint
	authzHandler := handlers.NewAuthzHandler(deps.Resolver, deps.Audit)
	api.POST("/authz/check", authzHandler.Check)

	// Permission catalog (read-only)
	catalogHandler := handlers.NewCatalogHandler(deps.Catalog)
	api.GET("/permissions", middleware.RequireDecision(deps.Resolver, "roles.read"), catalogHandler.List)

	// Roles
	roleHandler := handlers.NewRoleHandler(deps.Roles)
	roles := api.Group("/roles")
	{
		roles.GET("", middleware.RequireDecision(deps.Resolver, "roles.read"), roleHandler.List)
		roles.GET("/:id", middleware.RequireDecision(deps.Resolver, "roles.read"), roleHandler.Get)
		roles.POST("", middleware.RequireDecision(deps.Resolver, "roles.manage"), roleHandler.Create)
		roles.PATCH("/:id", middleware.RequireDecision(deps.Resolver, "roles.manage"), roleHandler.Update)
		roles.DELETE("/:id", middleware.RequireDecision(deps.Resolver, "roles.manage"), roleHandler.Delete)
		roles.PUT("/:id/permissions", middleware.RequireDecision(deps.Resolver, "roles.manage"), roleHandler.SetPermissions)
	}

	// Per-user access management
	accessHandler := handlers.NewAccessHandler(deps.Access)
	users := api.Group("/users")
	{
		users.POST("/:id/roles/:roleId", middleware.RequireDecision(deps.Resolver, "roles.manage"), roleHandler.Assign)
		users.DELETE("/:id/roles/:roleId", middleware.RequireDecision(deps.Resolver, "roles.manage"), roleHandler.Remove)

		users.GET("/:id/overrides", middleware.RequireDecision(deps.Resolver, "access.manage"), accessHandler.ListOverrides)
		users.PUT("/:id/overrides", middleware.RequireDecision(deps.Resolver, "access.manage"), accessHandler.SetOverride)
		users.DELETE("/:id/overrides/:permission", middleware.RequireDecision(deps.Resolver, "access.manage"), accessHandler.ClearOverride)

		users.GET("/:id/memberships", middleware.RequireDecision(deps.Resolver, "access.manage"), accessHandler.ListMemberships)
		users.PUT("/:id/memberships", middleware.RequireDecision(deps.Resolver, "access.manage"), accessHandler.UpsertMembership)
		users.DELETE("/:id/memberships/:parishId", middleware.RequireDecision(deps.Resolver, "access.manage"), accessHandler.RemoveMembership)

		users.GET("/:id/records", middleware.RequireDecision(deps.Resolver, "access.manage"), accessHandler.ListRecordAccess)
		users.PUT("/:id/records", middleware.RequireDecision(deps.Resolver, "access.manage"), accessHandler.SetRecordAccess)
		users.DELETE("/:id/records/:resourceType/:resourceId", middleware.RequireDecision(deps.Resolver, "access.manage"), accessHandler.ClearRecordAccess)
	}

	// Audit trail
	auditHandler := handlers.NewAuditHandler(deps.Audit)
	audit := api.Group("/audit")
	{
		audit.GET("", middleware.RequireDecision(deps.Resolver, "audit.read"), auditHandler.List)
		audit.GET("/export", middleware.RequireDecision(deps.Resolver, "audit.read"), auditHandler.Export)
	}

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
