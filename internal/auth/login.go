package auth

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/plmforge/auth-core/internal/audit"
	"github.com/plmforge/auth-core/internal/metrics"
	"github.com/plmforge/auth-core/internal/ratelimit"
	"github.com/plmforge/auth-core/internal/user"
)

// LoginServiceConfig wires the collaborators of the login flow.
type LoginServiceConfig struct {
	Store   user.Store
	Hasher  *PasswordHasher
	Tokens  *TokenProvider
	Limiter ratelimit.Limiter
	Trail   *audit.Trail
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// LoginService turns a (username, password) pair into a token or a
// rejection. It runs once per login attempt and is independent of the
// per-request authentication gate.
type LoginService struct {
	store   user.Store
	hasher  *PasswordHasher
	tokens  *TokenProvider
	limiter ratelimit.Limiter
	trail   *audit.Trail
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// LoginResult is the successful outcome of a login: a principal summary
// plus a freshly issued token.
type LoginResult struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName,omitempty"`
	Role      user.Role `json:"role"`
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expiresIn"`
}

// NewLoginService creates a login service. Store, Hasher and Tokens are
// required; the limiter, audit trail and metrics default to no-ops.
func NewLoginService(cfg LoginServiceConfig) (*LoginService, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token provider is required")
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.NoopLimiter{}
	}
	if cfg.Trail == nil {
		cfg.Trail = audit.NewTrail(nil, nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &LoginService{
		store:   cfg.Store,
		hasher:  cfg.Hasher,
		tokens:  cfg.Tokens,
		limiter: cfg.Limiter,
		trail:   cfg.Trail,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}, nil
}

// Login authenticates a credential pair. The two user-visible failures are
// ErrInvalidCredentials and ErrAccountInactive (plus ErrTooManyAttempts
// when throttled); every internal fault collapses into one of those or a
// generic error, never a distinct verification error.
//
// Repeated successful logins are independent: each issues a distinct token
// with its own expiry window.
func (s *LoginService) Login(ctx context.Context, username, password, clientIP, userAgent string) (*LoginResult, error) {
	start := time.Now()

	result, err := s.login(ctx, username, password, clientIP, userAgent)

	if s.metrics != nil {
		s.metrics.RecordLogin(loginMetricResult(err), time.Since(start).Seconds())
	}

	return result, err
}

func (s *LoginService) login(ctx context.Context, username, password, clientIP, userAgent string) (*LoginResult, error) {
	if username == "" || password == "" {
		s.trail.LoginFailure(username, "missing credentials", clientIP, userAgent)
		return nil, ErrInvalidCredentials
	}

	// Throttle before touching the store so brute force cannot probe it.
	allowed, _, _, err := s.limiter.Allow(ctx, username+":"+clientIP)
	if err != nil {
		// Limiter trouble is an availability problem, not an auth decision.
		s.logger.Warn("Rate limiter check failed, allowing attempt",
			zap.String("username", username),
			zap.Error(err))
	} else if !allowed {
		s.logger.Warn("Login attempt rate limited",
			zap.String("username", username),
			zap.String("remote_addr", clientIP))
		s.trail.RateLimitExceeded(username, clientIP)
		return nil, ErrTooManyAttempts
	}

	principal, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		// Unknown username and store faults both collapse into the generic
		// rejection so responses cannot enumerate usernames.
		if err != user.ErrNotFound {
			s.logger.Error("Credential store lookup failed",
				zap.String("username", username),
				zap.Error(err))
		}
		s.trail.LoginFailure(username, "user not found", clientIP, userAgent)
		return nil, ErrInvalidCredentials
	}

	if !principal.Active {
		s.logger.Warn("Inactive account attempted login",
			zap.String("username", username))
		s.trail.LoginFailure(username, "account inactive", clientIP, userAgent)
		return nil, ErrAccountInactive
	}

	if !s.hasher.Verify(password, principal.PasswordHash) {
		s.logger.Warn("Invalid password during login",
			zap.String("username", username))
		s.trail.LoginFailure(username, "invalid password", clientIP, userAgent)
		return nil, ErrInvalidCredentials
	}

	// Best effort: a failed last-login write must not fail the login.
	// Two near-simultaneous logins race last-write-wins, which is fine.
	if err := s.store.RecordLogin(ctx, principal.ID, time.Now()); err != nil {
		s.logger.Warn("Failed to record last login",
			zap.String("username", username),
			zap.Error(err))
	}

	token, expiresIn, err := s.tokens.Issue(principal)
	if err != nil {
		s.logger.Error("Failed to issue token",
			zap.String("username", username),
			zap.Error(err))
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.trail.LoginSuccess(username, principal.ID.String(), clientIP, userAgent)
	s.trail.TokenIssued(username, principal.ID.String(), expiresIn)

	s.logger.Info("User logged in",
		zap.String("username", username),
		zap.String("user_id", principal.ID.String()),
		zap.Int64("expires_in", expiresIn))

	return &LoginResult{
		UserID:    principal.ID.String(),
		Username:  principal.Username,
		Email:     principal.Email,
		FullName:  principal.FullName(),
		Role:      principal.Role,
		Token:     token,
		ExpiresIn: expiresIn,
	}, nil
}

func loginMetricResult(err error) string {
	switch err {
	case nil:
		return metrics.ResultSuccess
	case ErrInvalidCredentials:
		return metrics.ResultInvalidCredentials
	case ErrAccountInactive:
		return metrics.ResultAccountInactive
	case ErrTooManyAttempts:
		return metrics.ResultRateLimited
	default:
		return metrics.ResultError
	}
}
