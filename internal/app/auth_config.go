package app

import (
	"github.com/parohia/parohia/internal/auth"
	"github.com/parohia/parohia/internal/authz"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// SessionServiceConfig converts AuthConfig into SessionService parameters.
func (c AuthConfig) SessionServiceConfig() auth.SessionConfig {
	ttl := c.Session.TTL
	if ttl <= 0 {
		ttl = auth.DefaultSessionTTL
	}

	length := c.Session.TokenLength
	if length <= 0 {
		length = 32
	}

	return auth.SessionConfig{
		SessionTTL:  ttl,
		TokenLength: length,
	}
}

// ResolverConfig converts AuthzConfig into the resolver's parameters.
func (c AuthzConfig) ResolverConfig() authz.Config {
	return authz.Config{
		LimitedActions: c.LimitedActions,
	}
}
