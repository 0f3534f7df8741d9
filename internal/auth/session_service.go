package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/parohia/parohia/internal/models"
	"github.com/parohia/parohia/pkg/crypto"
	"github.com/parohia/parohia/pkg/metrics"
)

// DefaultSessionTTL is the fallback session lifetime.
const DefaultSessionTTL = 30 * 24 * time.Hour

// SessionConfig describes tunable behaviour for the SessionService.
type SessionConfig struct {
	SessionTTL  time.Duration
	TokenLength int
	Clock       func() time.Time
	Cache       SessionCache
}

// SessionMetadata captures contextual information about the client.
type SessionMetadata struct {
	IPAddress string
	UserAgent string
}

// TokenPair represents the opaque session token and its companion JWT.
type TokenPair struct {
	SessionToken string
	AccessToken  string
}

var (
	// ErrSessionNotFound indicates that no session matches the provided token.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrSessionRevoked marks a session revoked by the user or administrators.
	ErrSessionRevoked = errors.New("session: revoked")
	// ErrSessionExpired signals that a session token has reached its expiry.
	ErrSessionExpired = errors.New("session: expired")
	// ErrSessionInvalidToken is returned when the supplied token is malformed.
	ErrSessionInvalidToken = errors.New("session: invalid token")
)

var errSessionCacheMiss = errors.New("session cache miss")

// SessionCache represents a cache backend for session rows keyed by token hash.
type SessionCache interface {
	Get(ctx context.Context, tokenHash string) (*models.Session, error)
	Set(ctx context.Context, session *models.Session, ttl time.Duration) error
	Delete(ctx context.Context, tokenHash string) error
}

// SessionService manages creation, validation, and revocation of sessions.
// Sessions are looked up by an opaque token; only its hash is persisted.
type SessionService struct {
	db       *gorm.DB
	jwt      *JWTService
	ttl      time.Duration
	tokenLen int
	now      func() time.Time
	cache    SessionCache
}

// NewSessionService constructs a session manager backed by the provided database.
func NewSessionService(db *gorm.DB, jwtService *JWTService, cfg SessionConfig) (*SessionService, error) {
	if db == nil {
		return nil, errors.New("session service: db is required")
	}
	if jwtService == nil {
		return nil, errors.New("session service: jwt service is required")
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	length := cfg.TokenLength
	if length <= 0 {
		length = 48
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &SessionService{
		db:       db,
		jwt:      jwtService,
		ttl:      ttl,
		tokenLen: length,
		now:      clock,
		cache:    cfg.Cache,
	}, nil
}

// Create generates a new session and issues its token pair.
func (s *SessionService) Create(ctx context.Context, userID string, meta SessionMetadata) (TokenPair, *models.Session, error) {
	if strings.TrimSpace(userID) == "" {
		return TokenPair{}, nil, errors.New("session service: user id is required")
	}

	token, err := crypto.GenerateToken(s.tokenLen)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: generate token: %w", err)
	}

	now := s.now()

	session := &models.Session{
		UserID:     userID,
		TokenHash:  crypto.HashToken(token),
		IPAddress:  strings.TrimSpace(meta.IPAddress),
		UserAgent:  strings.TrimSpace(meta.UserAgent),
		ExpiresAt:  now.Add(s.ttl),
		LastUsedAt: now,
	}

	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: create session: %w", err)
	}

	metrics.ActiveSessions.Inc()

	accessToken, err := s.jwt.GenerateAccessToken(AccessTokenInput{
		UserID:    userID,
		SessionID: session.ID,
	})
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: generate access token: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, session, s.ttl) // cache failures are non-fatal
	}

	return TokenPair{SessionToken: token, AccessToken: accessToken}, session, nil
}

// Validate resolves an opaque session token to the owning user id. It is a
// pure lookup plus expiry comparison; nothing is mutated on the read path.
func (s *SessionService) Validate(ctx context.Context, token string) (string, error) {
	session, err := s.lookup(ctx, token)
	if err != nil {
		return "", err
	}

	now := s.now()
	if session.RevokedAt != nil {
		return "", ErrSessionRevoked
	}
	if now.After(session.ExpiresAt) {
		return "", ErrSessionExpired
	}

	return session.UserID, nil
}

// Touch records session use. Separate from Validate so the read path stays pure.
func (s *SessionService) Touch(ctx context.Context, token string) error {
	session, err := s.lookup(ctx, token)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).
		Model(session).
		Update("last_used_at", s.now()).Error
}

// Revoke invalidates a single session by token. The cache entry is removed
// synchronously so a revoked session cannot be observed late.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	session, err := s.lookup(ctx, token)
	if err != nil {
		return err
	}

	// Idempotent: a second revoke must not touch the row or the gauge.
	if session.RevokedAt != nil {
		return nil
	}

	now := s.now()
	if err := s.db.WithContext(ctx).
		Model(session).
		Update("revoked_at", &now).Error; err != nil {
		return fmt.Errorf("session service: revoke session: %w", err)
	}

	metrics.ActiveSessions.Dec()

	if s.cache != nil {
		_ = s.cache.Delete(ctx, session.TokenHash)
	}

	return nil
}

// RevokeAllForUser invalidates every active session owned by the user.
func (s *SessionService) RevokeAllForUser(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("session service: user id is required")
	}

	var sessions []models.Session
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Find(&sessions).Error; err != nil {
		return fmt.Errorf("session service: list sessions: %w", err)
	}

	now := s.now()
	if err := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", &now).Error; err != nil {
		return fmt.Errorf("session service: revoke sessions: %w", err)
	}

	metrics.ActiveSessions.Sub(float64(len(sessions)))

	if s.cache != nil {
		for i := range sessions {
			_ = s.cache.Delete(ctx, sessions[i].TokenHash)
		}
	}

	return nil
}

// PurgeExpired deletes sessions whose expiry is in the past. Run by the
// maintenance sweeper; correctness never depends on it.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	now := s.now()

	// Revoked rows already left the gauge when they were revoked; only the
	// expired-but-unrevoked ones still count as active.
	var unrevoked int64
	if err := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("expires_at < ? AND revoked_at IS NULL", now).
		Count(&unrevoked).Error; err != nil {
		return 0, fmt.Errorf("session service: count expired: %w", err)
	}

	result := s.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("session service: purge expired: %w", result.Error)
	}

	metrics.ActiveSessions.Sub(float64(unrevoked))

	return result.RowsAffected, nil
}

func (s *SessionService) lookup(ctx context.Context, token string) (*models.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrSessionInvalidToken
	}

	hash := crypto.HashToken(token)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, hash); err == nil && cached != nil {
			return cached, nil
		}
	}

	var session models.Session
	err := s.db.WithContext(ctx).Where("token_hash = ?", hash).Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session service: find session: %w", err)
	}

	if s.cache != nil {
		if ttl := time.Until(session.ExpiresAt); ttl > 0 {
			_ = s.cache.Set(ctx, &session, ttl)
		}
	}

	return &session, nil
}
