package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/plmforge/auth-core/internal/auth"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	login  *auth.LoginService
	tokens *auth.TokenProvider
	logger *zap.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(login *auth.LoginService, tokens *auth.TokenProvider, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuthHandler{
		login:  login,
		tokens: tokens,
		logger: logger,
	}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ErrorResponse represents an error response body
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidateResponse represents the token validation response
type ValidateResponse struct {
	Valid bool `json:"valid"`
}

// Login handles POST /api/v1/auth/login.
//
// Responses:
//   - 200 with {userId, username, email, fullName, role, token, expiresIn}
//   - 400 for a malformed body
//   - 401 for unknown username or wrong password (one generic message)
//   - 403 for an inactive account
//   - 429 when login attempts are throttled
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid login request",
			zap.Error(err),
			zap.String("remote_addr", c.ClientIP()))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "username and password are required",
		})
		return
	}

	result, err := h.login.Login(
		c.Request.Context(),
		req.Username,
		req.Password,
		c.ClientIP(),
		c.Request.UserAgent(),
	)

	if err != nil {
		switch err {
		case auth.ErrInvalidCredentials:
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error: auth.ErrInvalidCredentials.Error(),
			})
		case auth.ErrAccountInactive:
			c.JSON(http.StatusForbidden, ErrorResponse{
				Error: auth.ErrAccountInactive.Error(),
			})
		case auth.ErrTooManyAttempts:
			c.JSON(http.StatusTooManyRequests, ErrorResponse{
				Error: auth.ErrTooManyAttempts.Error(),
			})
		default:
			h.logger.Error("Login failed",
				zap.String("username", req.Username),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error: "login failed",
			})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// Validate handles GET /api/v1/auth/validate. It reports whether the
// bearer token in the Authorization header is currently valid. A missing
// or malformed header is reported as invalid, never as an HTTP error.
func (h *AuthHandler) Validate(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		c.JSON(http.StatusOK, ValidateResponse{Valid: false})
		return
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	c.JSON(http.StatusOK, ValidateResponse{Valid: h.tokens.Validate(token)})
}
