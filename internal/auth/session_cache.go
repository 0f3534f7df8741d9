package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/parohia/parohia/internal/cache"
	"github.com/parohia/parohia/internal/models"
)

const sessionCacheKeyPrefix = "auth:sessions:token:"

// NewSessionStoreCache wraps any cache.Store inside a SessionCache implementation.
func NewSessionStoreCache(store cache.Store) SessionCache {
	if store == nil {
		return nil
	}
	return &sessionStoreCache{store: store}
}

type sessionStoreCache struct {
	store cache.Store
}

func (c *sessionStoreCache) Get(ctx context.Context, tokenHash string) (*models.Session, error) {
	key := cacheKey(tokenHash)
	if key == "" {
		return nil, errSessionCacheMiss
	}

	data, found, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errSessionCacheMiss
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("session cache: decode: %w", err)
	}
	// TokenHash is serialised with json:"-" on the model; restore it so
	// revocation can delete the cache entry.
	session.TokenHash = tokenHash
	return &session, nil
}

func (c *sessionStoreCache) Set(ctx context.Context, session *models.Session, ttl time.Duration) error {
	if session == nil {
		return nil
	}
	key := cacheKey(session.TokenHash)
	if key == "" {
		return nil
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("session cache: encode: %w", err)
	}

	return c.store.Set(ctx, key, data, ttl)
}

func (c *sessionStoreCache) Delete(ctx context.Context, tokenHash string) error {
	key := cacheKey(tokenHash)
	if key == "" {
		return nil
	}
	return c.store.Delete(ctx, key)
}

func cacheKey(tokenHash string) string {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return ""
	}
	return sessionCacheKeyPrefix + tokenHash
}
