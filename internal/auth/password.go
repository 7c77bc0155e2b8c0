// Package auth implements the stateless authentication core: password
// hashing, token issuance and validation, the login flow, and the
// per-request authentication gate.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultBCryptCost is the default cost parameter for bcrypt hashing
	// (12 = ~250ms per hash).
	DefaultBCryptCost = 12

	minBCryptCost = bcrypt.MinCost
	maxBCryptCost = bcrypt.MaxCost
)

// PasswordHasher hashes and verifies passwords using bcrypt with a
// configurable work factor.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher with the given bcrypt cost.
// Costs outside the bcrypt range fall back to DefaultBCryptCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < minBCryptCost || cost > maxBCryptCost {
		cost = DefaultBCryptCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash hashes a password using bcrypt. Each call generates a fresh salt,
// so hashing the same password twice yields different stored strings.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// Verify checks a password against a bcrypt hash. Any failure, including a
// malformed hash or an internal bcrypt error, reports false; credential
// checks fail closed and never surface a distinct error.
func (h *PasswordHasher) Verify(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}

	// bcrypt.CompareHashAndPassword uses constant-time comparison internally
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
