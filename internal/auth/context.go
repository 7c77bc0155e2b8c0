package auth

import (
	"context"

	"github.com/plmforge/auth-core/internal/user"
)

// Identity is the request-scoped authenticated identity. It exists only for
// the lifetime of a single request and is never shared across requests.
type Identity struct {
	Subject     string    `json:"subject"`
	PrincipalID string    `json:"principal_id"`
	Role        user.Role `json:"role"`
}

// identityKey is a private type so no other package can collide with (or
// forge) the identity entry in a request context.
type identityKey struct{}

// WithIdentity returns a context carrying the authenticated identity.
// Only the authentication gate populates this after token validation.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext retrieves the authenticated identity.
// Returns nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *Identity {
	if v, ok := ctx.Value(identityKey{}).(*Identity); ok {
		return v
	}
	return nil
}
