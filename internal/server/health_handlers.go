package server

import (
	"errors"
	"net/http"
	"time"

	"cadenza/internal/session"
)

// HealthStatus represents operational status for the /health endpoint.
type HealthStatus struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Database  string         `json:"database"`
	Storage   string         `json:"storage"`
	Player    string         `json:"player"`
	Clients   int            `json:"activeClients"`
	Tracks    int            `json:"trackCount"`
	Details   map[string]any `json:"details,omitempty"`
}

// handleHealthCheck returns basic liveness + dependency checks.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Database:  "ok",
		Storage:   "ok",
		Player:    string(s.session.Player().State().Status),
		Clients:   s.session.Clients().Count(),
		Tracks:    s.session.Library().Len(),
		Details:   make(map[string]any),
	}

	if err := s.session.CheckPlayLog(); err != nil {
		if errors.Is(err, session.ErrPlayLogDisabled) {
			health.Database = "disabled"
		} else {
			health.Status = "unhealthy"
			health.Database = "error"
			health.Details["database_error"] = err.Error()
		}
	}

	if err := s.session.CheckStorage(); err != nil {
		health.Status = "unhealthy"
		health.Storage = "error"
		health.Details["storage_error"] = err.Error()
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	s.respondJSON(w, statusCode, health)
}
