package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/plmforge/auth-core/internal/user"
)

// Claims represents the JWT claims carried by an access token. The subject
// is the principal's username; the principal id and role ride alongside as
// custom claims.
type Claims struct {
	jwt.RegisteredClaims

	UserID string `json:"uid,omitempty"`
	Role   string `json:"role,omitempty"`
}

// HasRole checks if the claims carry the given role.
func (c *Claims) HasRole(role user.Role) bool {
	return c.Role == string(role)
}

// HasAnyRole checks if the claims carry any of the given roles.
func (c *Claims) HasAnyRole(roles ...user.Role) bool {
	for _, r := range roles {
		if c.HasRole(r) {
			return true
		}
	}
	return false
}
