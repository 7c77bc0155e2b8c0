package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/plmforge/auth-core/internal/metrics"
	"github.com/plmforge/auth-core/internal/user"
)

// Gate is the per-request authentication middleware. It runs ahead of every
// handler, decides whether the target path is public, and establishes (or
// leaves empty) the request's identity context.
//
// The gate never rejects a request. An absent, malformed, or invalid token
// means the request proceeds anonymously; turning "anonymous on a protected
// resource" into a rejection is the job of a downstream authorization
// check such as RequireAuthenticated.
type Gate struct {
	provider    *TokenProvider
	publicPaths func() []string
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewGate creates the authentication gate. publicPaths is called per
// request so a hot-reloaded allow-list takes effect without restart.
func NewGate(provider *TokenProvider, publicPaths func() []string, m *metrics.Metrics, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publicPaths == nil {
		publicPaths = func() []string { return nil }
	}
	return &Gate{
		provider:    provider,
		publicPaths: publicPaths,
		metrics:     m,
		logger:      logger,
	}
}

// Handler returns the gin middleware.
func (g *Gate) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		// CORS preflight and allow-listed prefixes pass through untouched.
		if c.Request.Method == http.MethodOptions || g.isPublicPath(path) {
			g.record(metrics.OutcomePublic)
			c.Next()
			return
		}

		token := extractBearer(c.Request)
		if token == "" {
			g.record(metrics.OutcomeAnonymous)
			c.Next()
			return
		}

		identity := g.resolveIdentity(token, path)
		if identity == nil {
			g.record(metrics.OutcomeInvalidToken)
			c.Next()
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), identity))
		g.record(metrics.OutcomeAuthenticated)
		c.Next()
	}
}

// resolveIdentity validates the token and builds the request identity.
// Every failure, including a panic in the token library, yields nil so the
// request proceeds anonymously instead of crashing the pipeline.
func (g *Gate) resolveIdentity(token, path string) (identity *Identity) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Panic during token validation, treating as anonymous",
				zap.Any("panic", r),
				zap.String("path", path))
			identity = nil
		}
	}()

	claims, err := g.provider.ValidateClaims(token)
	if err != nil {
		// Expired, malformed, and tampered tokens all land here; the
		// distinction is never surfaced to the caller.
		g.logger.Debug("Token validation failed",
			zap.String("path", path),
			zap.Error(err))
		if g.metrics != nil {
			g.metrics.RecordValidation("invalid")
		}
		return nil
	}
	if g.metrics != nil {
		g.metrics.RecordValidation("valid")
	}

	role, err := user.ParseRole(claims.Role)
	if err != nil {
		g.logger.Warn("Token carries unknown role, treating as anonymous",
			zap.String("subject", claims.Subject),
			zap.String("role", claims.Role))
		return nil
	}

	return &Identity{
		Subject:     claims.Subject,
		PrincipalID: claims.UserID,
		Role:        role,
	}
}

func (g *Gate) isPublicPath(path string) bool {
	for _, prefix := range g.publicPaths() {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (g *Gate) record(outcome string) {
	if g.metrics != nil {
		g.metrics.RecordGate(outcome)
	}
}

// extractBearer pulls the token out of a standard Authorization header.
// Returns "" for an absent header or a non-Bearer scheme.
func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// RequireAuthenticated rejects requests whose identity context is empty.
// The gate itself fails open to anonymous, so any route that must not be
// reached anonymously needs this (or RequireRole) mounted after the gate.
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IdentityFromContext(c.Request.Context()) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": ErrUnauthorized.Error(),
			})
			return
		}
		c.Next()
	}
}

// RequireRole rejects requests unless the authenticated identity carries
// one of the given roles.
func RequireRole(roles ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := IdentityFromContext(c.Request.Context())
		if identity == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": ErrUnauthorized.Error(),
			})
			return
		}

		for _, role := range roles {
			if identity.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "insufficient permissions",
		})
	}
}
