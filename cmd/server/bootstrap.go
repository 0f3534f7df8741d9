package main

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/parohia/parohia/internal/api"
	"github.com/parohia/parohia/internal/app"
	iauth "github.com/parohia/parohia/internal/auth"
	"github.com/parohia/parohia/internal/authz"
	"github.com/parohia/parohia/internal/cache"
	"github.com/parohia/parohia/internal/services"
)

// runtimeStack holds the fully wired service graph behind the HTTP surface.
type runtimeStack struct {
	JWT           *iauth.JWTService
	Sessions      *iauth.SessionService
	Authenticator *iauth.Authenticator
	Catalog       *authz.Catalog
	Resolver      *authz.Resolver
	Roles         *services.RoleService
	Access        *services.AccessService
	Audit         *services.AuditService
}

// buildRuntime wires every service from configuration and a live database handle.
func buildRuntime(cfg *app.Config, db *gorm.DB) (*runtimeStack, error) {
	jwtService, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	sessionCfg := cfg.Auth.SessionServiceConfig()
	sessionCfg.Cache = iauth.NewSessionStoreCache(cache.NewDatabaseStore(db))

	sessionSvc, err := iauth.NewSessionService(db, jwtService, sessionCfg)
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	authenticator, err := iauth.NewAuthenticator(db, nil)
	if err != nil {
		return nil, fmt.Errorf("initialise authenticator: %w", err)
	}

	catalog, err := authz.NewCatalog(
		authz.DefaultDefinitions(),
		authz.DefaultAdminGrants(),
		cfg.Authz.ExtraMutatingVerbs...,
	)
	if err != nil {
		return nil, fmt.Errorf("build permission catalog: %w", err)
	}

	store, err := authz.NewGormStore(db)
	if err != nil {
		return nil, fmt.Errorf("initialise authz store: %w", err)
	}

	resolver, err := authz.NewResolver(catalog, store, cfg.Authz.ResolverConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise resolver: %w", err)
	}

	auditSvc, err := services.NewAuditService(db)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}

	roleSvc, err := services.NewRoleService(db, catalog, auditSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise role service: %w", err)
	}

	accessSvc, err := services.NewAccessService(db, catalog, auditSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise access service: %w", err)
	}

	return &runtimeStack{
		JWT:           jwtService,
		Sessions:      sessionSvc,
		Authenticator: authenticator,
		Catalog:       catalog,
		Resolver:      resolver,
		Roles:         roleSvc,
		Access:        accessSvc,
		Audit:         auditSvc,
	}, nil
}

func (s *runtimeStack) routerDeps(db *gorm.DB) api.Deps {
	return api.Deps{
		DB:            db,
		JWT:           s.JWT,
		Sessions:      s.Sessions,
		Authenticator: s.Authenticator,
		Catalog:       s.Catalog,
		Resolver:      s.Resolver,
		Roles:         s.Roles,
		Access:        s.Access,
		Audit:         s.Audit,
	}
}
