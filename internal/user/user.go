// Package user provides the principal model and the credential store
// consumed by the authentication core. The store exposes only the narrow
// surface authentication needs: lookup by username, recording logins, and
// the writes required to provision accounts.
package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no principal matches the lookup. The login
// flow collapses it into a generic invalid-credentials failure so responses
// cannot distinguish unknown usernames from wrong passwords.
var ErrNotFound = errors.New("user not found")

// ErrAlreadyExists is returned when creating a principal whose username or
// email is already taken.
var ErrAlreadyExists = errors.New("user already exists")

// Principal is an identity that can authenticate. The authentication core
// reads it; ownership of the record stays with the store.
type Principal struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	PasswordHash string     `json:"-"` // Never expose in JSON
	Role         Role       `json:"role"`
	Active       bool       `json:"active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// FullName joins the optional name parts for display.
func (p *Principal) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Validate checks the fields the store requires.
func (p *Principal) Validate() error {
	if p.Username == "" {
		return errors.New("username is required")
	}
	if p.Email == "" {
		return errors.New("email is required")
	}
	if p.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if !p.Role.Valid() {
		return errors.New("role must be one of ADMIN, MANAGER, VIEWER")
	}
	return nil
}

// Store defines the credential store interface.
type Store interface {
	// FindByUsername retrieves a principal by unique username.
	// Returns ErrNotFound when no row matches.
	FindByUsername(ctx context.Context, username string) (*Principal, error)

	// RecordLogin marks a successful-login timestamp. Best effort from the
	// login flow's point of view; a failure never fails the login.
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error

	// Create stores a new principal. Used for provisioning and tests.
	Create(ctx context.Context, p *Principal) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	// SetActive flips the account's active flag.
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
