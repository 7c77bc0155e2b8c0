package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plmforge/auth-core/internal/metrics"
)

func adminGet(srv *AdminServer, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestAdminHealth(t *testing.T) {
	srv := NewAdminServer(":0", nil, nil, nil)

	w := adminGet(srv, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "UP", status.Status)
}

func TestAdminReadiness(t *testing.T) {
	srv := NewAdminServer(":0", nil, nil, nil)

	w := adminGet(srv, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "READY")

	// Draining: readiness flips without touching liveness.
	srv.SetReady(false)
	w = adminGet(srv, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_READY")

	w = adminGet(srv, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminMetricsEndpoint(t *testing.T) {
	m := metrics.New("auth_test")
	m.RecordLogin(metrics.ResultSuccess, 0.05)
	m.RecordValidation("valid")
	m.RecordGate(metrics.OutcomeAuthenticated)

	srv := NewAdminServer(":0", m, nil, nil)

	w := adminGet(srv, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "auth_test_logins_total")
	assert.Contains(t, body, "auth_test_token_validations_total")
	assert.Contains(t, body, "auth_test_gate_requests_total")
}
