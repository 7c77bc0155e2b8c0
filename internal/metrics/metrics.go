// Package metrics exposes Prometheus instrumentation for the
// authentication core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login result labels.
const (
	ResultSuccess            = "success"
	ResultInvalidCredentials = "invalid_credentials"
	ResultAccountInactive    = "account_inactive"
	ResultRateLimited        = "rate_limited"
	ResultError              = "error"
)

// Gate outcome labels.
const (
	OutcomePublic        = "public"
	OutcomeAnonymous     = "anonymous"
	OutcomeAuthenticated = "authenticated"
	OutcomeInvalidToken  = "invalid_token"
)

// Metrics holds the Prometheus collectors for the auth subsystem.
type Metrics struct {
	loginsTotal      *prometheus.CounterVec
	validationsTotal *prometheus.CounterVec
	gateRequests     *prometheus.CounterVec
	loginDuration    prometheus.Histogram

	registry *prometheus.Registry
}

// New creates a metrics instance with its own registry.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	// Register standard Go metrics
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	loginsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Total number of login attempts by result",
		},
		[]string{"result"},
	)

	validationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_validations_total",
			Help:      "Total number of token validations by result",
		},
		[]string{"result"},
	)

	gateRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_requests_total",
			Help:      "Requests through the authentication gate by outcome",
		},
		[]string{"outcome"},
	)

	// Login latency is dominated by the bcrypt work factor: 10ms to 2.5s
	loginDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "login_duration_seconds",
			Help:      "Login flow latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	registry.MustRegister(loginsTotal, validationsTotal, gateRequests, loginDuration)

	return &Metrics{
		loginsTotal:      loginsTotal,
		validationsTotal: validationsTotal,
		gateRequests:     gateRequests,
		loginDuration:    loginDuration,
		registry:         registry,
	}
}

// RecordLogin counts a login attempt and its duration.
func (m *Metrics) RecordLogin(result string, seconds float64) {
	m.loginsTotal.WithLabelValues(result).Inc()
	m.loginDuration.Observe(seconds)
}

// RecordValidation counts a token validation.
func (m *Metrics) RecordValidation(result string) {
	m.validationsTotal.WithLabelValues(result).Inc()
}

// RecordGate counts a request passing through the authentication gate.
func (m *Metrics) RecordGate(outcome string) {
	m.gateRequests.WithLabelValues(outcome).Inc()
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
