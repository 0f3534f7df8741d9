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
)

var (
	// ErrInvalidCredentials is returned when the supplied identity/password pair is invalid.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrAccountDisabled signals that the user has been deactivated.
	ErrAccountDisabled = errors.New("auth: account disabled")
)

// AuthenticateInput contains the credentials presented at login.
type AuthenticateInput struct {
	Identifier string
	Password   string
	IPAddress  string
	UserAgent  string
}

// Authenticator verifies username/password credentials against stored hashes.
type Authenticator struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewAuthenticator builds a credential verifier backed by the users table.
func NewAuthenticator(db *gorm.DB, clock func() time.Time) (*Authenticator, error) {
	if db == nil {
		return nil, errors.New("authenticator: db is required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &Authenticator{db: db, clock: clock}, nil
}

// Authenticate verifies the supplied credentials and returns the associated
// user when successful. Unknown identities and bad passwords are
// indistinguishable to the caller.
func (a *Authenticator) Authenticate(ctx context.Context, input AuthenticateInput) (*models.User, error) {
	identity := strings.TrimSpace(input.Identifier)
	if identity == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	var user models.User
	err := a.db.WithContext(ctx).
		Where("LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?)", identity, identity).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("authenticator: query user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	if !crypto.VerifyPassword(user.Password, input.Password) {
		return nil, ErrInvalidCredentials
	}

	now := a.clock()
	user.LastLoginAt = &now
	user.LastLoginIP = strings.TrimSpace(input.IPAddress)

	if err := a.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"last_login_at": now,
		"last_login_ip": user.LastLoginIP,
	}).Error; err != nil {
		return nil, fmt.Errorf("authenticator: update user: %w", err)
	}

	return &user, nil
}
