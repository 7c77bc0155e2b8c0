package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/plmforge/auth-core/internal/metrics"
)

// AdminServer serves health, readiness and metrics on a separate listener
// so operational traffic never mixes with the authenticated API.
type AdminServer struct {
	httpServer *http.Server
	logger     *zap.Logger
	db         *sql.DB

	mu    sync.RWMutex
	ready bool
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// NewAdminServer creates the admin server. db may be nil when the service
// runs against the in-memory store.
func NewAdminServer(addr string, m *metrics.Metrics, db *sql.DB, logger *zap.Logger) *AdminServer {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &AdminServer{
		logger: logger,
		db:     db,
		ready:  true,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.healthHandler).Methods("GET")
	router.HandleFunc("/ready", s.readyHandler).Methods("GET")
	if m != nil {
		router.Handle("/metrics", m.Handler()).Methods("GET")
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// SetReady updates the readiness status. Flipped to false during shutdown
// so load balancers drain before the listener closes.
func (s *AdminServer) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady returns the current readiness status
func (s *AdminServer) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Start starts the admin server.
func (s *AdminServer) Start() error {
	s.logger.Info("Starting admin server",
		zap.String("addr", s.httpServer.Addr),
	)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the admin server.
func (s *AdminServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down admin server")
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP implements http.Handler for tests.
func (s *AdminServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// healthHandler handles GET /health - basic liveness check
func (s *AdminServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthStatus{
		Status:    "UP",
		Timestamp: time.Now().UTC(),
	})
}

// readyHandler handles GET /ready - readiness with dependency checks
func (s *AdminServer) readyHandler(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	allReady := s.IsReady()

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.db.PingContext(ctx); err != nil {
			checks["database"] = "unavailable"
			allReady = false
		} else {
			checks["database"] = "ready"
		}
	}

	status := HealthStatus{
		Status:    "READY",
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	}
	code := http.StatusOK
	if !allReady {
		status.Status = "NOT_READY"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, status)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
