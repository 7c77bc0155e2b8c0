package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/plmforge/auth-core/internal/user"
)

// TokenConfig contains token provider configuration. The signing secret is
// loaded once at startup and injected here; rotating it invalidates every
// previously issued token.
type TokenConfig struct {
	Secret   string
	Issuer   string
	Lifetime time.Duration
}

// Validate checks if the configuration is usable.
func (c *TokenConfig) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("signing secret is required")
	}
	if c.Lifetime <= 0 {
		return fmt.Errorf("token lifetime must be positive, got %s", c.Lifetime)
	}
	return nil
}

// DefaultTokenConfig returns a token configuration with the default
// 24 hour lifetime. The secret must still be supplied by the caller.
func DefaultTokenConfig() *TokenConfig {
	return &TokenConfig{
		Issuer:   "auth-core",
		Lifetime: 24 * time.Hour,
	}
}

// TokenProvider issues and validates HS256-signed bearer tokens. Issuance
// and validation are pure functions of (token bytes, secret, clock), so a
// single provider is safely shared across concurrent requests.
type TokenProvider struct {
	secret []byte
	config *TokenConfig

	// now is swappable for expiry tests
	now func() time.Time
}

// NewTokenProvider creates a token provider with the given configuration.
func NewTokenProvider(cfg *TokenConfig) (*TokenProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &TokenProvider{
		secret: []byte(cfg.Secret),
		config: cfg,
		now:    time.Now,
	}, nil
}

// Issue creates a signed token for the principal and returns the compact
// token string plus the lifetime in seconds for client display. Each call
// issues an independent token with its own expiry window.
func (p *TokenProvider) Issue(principal *user.Principal) (string, int64, error) {
	if principal == nil {
		return "", 0, fmt.Errorf("principal is required")
	}
	if principal.Username == "" {
		return "", 0, fmt.Errorf("principal has no username")
	}

	now := p.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.Username,
			Issuer:    p.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.config.Lifetime)),
		},
		UserID: principal.ID.String(),
		Role:   string(principal.Role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", 0, fmt.Errorf("sign token: %w", err)
	}

	return signed, int64(p.config.Lifetime.Seconds()), nil
}

// Validate reports whether a token has a valid signature, a well-formed
// payload, and an expiry in the future. Every failure mode collapses to
// false; nothing is raised to the caller.
func (p *TokenProvider) Validate(tokenString string) bool {
	_, err := p.ValidateClaims(tokenString)
	return err == nil
}

// ValidateClaims validates a token and returns its claims. Used by the
// authentication gate, which needs the subject and role after validation.
func (p *TokenProvider) ValidateClaims(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("empty token")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, p.keyFunc,
		jwt.WithTimeFunc(p.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}

	if p.config.Issuer != "" && claims.Issuer != p.config.Issuer {
		return nil, fmt.Errorf("invalid issuer: expected %s, got %s", p.config.Issuer, claims.Issuer)
	}

	return claims, nil
}

// ExtractSubject returns the subject embedded in a token without verifying
// the signature. Callers must run Validate first; the result of extracting
// from an invalid token carries no authorization weight.
func (p *TokenProvider) ExtractSubject(tokenString string) (string, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return "", fmt.Errorf("invalid claims type")
	}

	return claims.Subject, nil
}

// keyFunc returns the signing key and pins the algorithm to HS256.
func (p *TokenProvider) keyFunc(token *jwt.Token) (interface{}, error) {
	switch alg := token.Method.Alg(); alg {
	case "HS256":
		return p.secret, nil
	case "none":
		// Explicitly reject "none" algorithm (security)
		return nil, fmt.Errorf("'none' algorithm not allowed")
	default:
		return nil, fmt.Errorf("unexpected signing method: %v", alg)
	}
}
