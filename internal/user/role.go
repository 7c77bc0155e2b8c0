package user

import "fmt"

// Role is the closed set of principal roles. Stored as a VARCHAR in the
// users table and carried verbatim in token claims.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleViewer  Role = "VIEWER"
)

// DefaultRole is assigned to principals created without an explicit role.
const DefaultRole = RoleViewer

// ParseRole converts a stored or claimed role string into a Role.
// Unknown values are rejected rather than passed through.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleViewer:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// Valid reports whether the role is one of the closed enumeration.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r Role) String() string {
	return string(r)
}
