package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plmforge/auth-core/internal/user"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// gateRouter mounts the gate ahead of a probe handler that reports the
// request identity.
func gateRouter(t *testing.T, provider *TokenProvider, publicPaths []string) *gin.Engine {
	t.Helper()

	gate := NewGate(provider, func() []string { return publicPaths }, nil, nil)

	router := gin.New()
	router.Use(gate.Handler())

	probe := func(c *gin.Context) {
		identity := IdentityFromContext(c.Request.Context())
		if identity == nil {
			c.JSON(http.StatusOK, gin.H{"anonymous": true})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"anonymous": false,
			"subject":   identity.Subject,
			"role":      string(identity.Role),
		})
	}
	router.GET("/api/v1/parts", probe)
	router.GET("/health", probe)
	router.OPTIONS("/api/v1/parts", probe)
	return router
}

func doRequest(router *gin.Engine, method, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGatePublicPathBypassesValidation(t *testing.T) {
	provider := testTokenProvider(t)
	router := gateRouter(t, provider, []string{"/health", "/api/v1/auth"})

	// No header at all on a public path.
	w := doRequest(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	// A garbage token on a public path is never even inspected.
	w = doRequest(router, http.MethodGet, "/health", "Bearer garbage")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"anonymous":true`)
}

func TestGateOptionsPreflightPassesThrough(t *testing.T) {
	provider := testTokenProvider(t)
	router := gateRouter(t, provider, nil)

	w := doRequest(router, http.MethodOptions, "/api/v1/parts", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGateMissingHeaderIsAnonymous(t *testing.T) {
	provider := testTokenProvider(t)
	router := gateRouter(t, provider, nil)

	w := doRequest(router, http.MethodGet, "/api/v1/parts", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"anonymous":true`)
}

func TestGateInvalidTokensAreAnonymous(t *testing.T) {
	provider := testTokenProvider(t)
	router := gateRouter(t, provider, nil)

	tests := []struct {
		name   string
		header string
	}{
		{name: "non-bearer scheme", header: "Basic dXNlcjpwYXNz"},
		{name: "bearer with garbage", header: "Bearer not-a-token"},
		{name: "bearer with no token", header: "Bearer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodGet, "/api/v1/parts", tt.header)
			// The gate never rejects; it strips the identity instead.
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), `"anonymous":true`)
		})
	}
}

func TestGateExpiredTokenIsAnonymous(t *testing.T) {
	provider := testTokenProvider(t)

	token, _, err := provider.Issue(testPrincipal())
	require.NoError(t, err)

	provider.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	router := gateRouter(t, provider, nil)

	w := doRequest(router, http.MethodGet, "/api/v1/parts", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"anonymous":true`)
}

func TestGateValidTokenEstablishesIdentity(t *testing.T) {
	provider := testTokenProvider(t)
	router := gateRouter(t, provider, nil)

	token, _, err := provider.Issue(testPrincipal())
	require.NoError(t, err)

	w := doRequest(router, http.MethodGet, "/api/v1/parts", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"subject":"jdoe"`)
	assert.Contains(t, w.Body.String(), `"role":"MANAGER"`)
}

func TestGateBearerSchemeIsCaseInsensitive(t *testing.T) {
	provider := testTokenProvider(t)
	router := gateRouter(t, provider, nil)

	token, _, err := provider.Issue(testPrincipal())
	require.NoError(t, err)

	w := doRequest(router, http.MethodGet, "/api/v1/parts", "bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"subject":"jdoe"`)
}

func TestGateIdentityDoesNotLeakAcrossRequests(t *testing.T) {
	provider := testTokenProvider(t)
	router := gateRouter(t, provider, nil)

	token, _, err := provider.Issue(testPrincipal())
	require.NoError(t, err)

	w := doRequest(router, http.MethodGet, "/api/v1/parts", "Bearer "+token)
	assert.Contains(t, w.Body.String(), `"subject":"jdoe"`)

	// The very next request without a token starts from a clean context.
	w = doRequest(router, http.MethodGet, "/api/v1/parts", "")
	assert.Contains(t, w.Body.String(), `"anonymous":true`)
}

func TestGatePanicDuringValidationIsContained(t *testing.T) {
	provider := testTokenProvider(t)

	token, _, err := provider.Issue(testPrincipal())
	require.NoError(t, err)

	// Blow up inside the validation path; the request must still complete
	// anonymously instead of crashing the middleware chain.
	provider.now = func() time.Time { panic("clock failure") }
	router := gateRouter(t, provider, nil)

	w := doRequest(router, http.MethodGet, "/api/v1/parts", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"anonymous":true`)
}

func TestGateUnknownRoleIsAnonymous(t *testing.T) {
	provider := testTokenProvider(t)

	principal := testPrincipal()
	principal.Role = user.Role("SUPERUSER")
	token, _, err := provider.Issue(principal)
	require.NoError(t, err)

	router := gateRouter(t, provider, nil)
	w := doRequest(router, http.MethodGet, "/api/v1/parts", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"anonymous":true`)
}

func TestRequireAuthenticated(t *testing.T) {
	provider := testTokenProvider(t)
	gate := NewGate(provider, nil, nil, nil)

	router := gin.New()
	router.Use(gate.Handler())
	protected := router.Group("/api/v1/admin", RequireAuthenticated())
	protected.GET("/users", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := doRequest(router, http.MethodGet, "/api/v1/admin/users", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, _, err := provider.Issue(testPrincipal())
	require.NoError(t, err)

	w = doRequest(router, http.MethodGet, "/api/v1/admin/users", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole(t *testing.T) {
	provider := testTokenProvider(t)
	gate := NewGate(provider, nil, nil, nil)

	router := gin.New()
	router.Use(gate.Handler())
	router.GET("/api/v1/admin/users", RequireRole(user.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// Anonymous.
	w := doRequest(router, http.MethodGet, "/api/v1/admin/users", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Authenticated with the wrong role.
	token, _, err := provider.Issue(testPrincipal())
	require.NoError(t, err)
	w = doRequest(router, http.MethodGet, "/api/v1/admin/users", "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Authenticated as admin.
	admin := testPrincipal()
	admin.Username = "root"
	admin.Role = user.RoleAdmin
	adminToken, _, err := provider.Issue(admin)
	require.NoError(t, err)
	w = doRequest(router, http.MethodGet, "/api/v1/admin/users", "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "standard", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "missing", header: "", want: ""},
		{name: "wrong scheme", header: "Basic abc", want: ""},
		{name: "scheme only", header: "Bearer", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, extractBearer(req))
		})
	}
}
