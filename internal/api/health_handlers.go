package api

import (
	"net/http"
	"time"

	"github.com/stepweaver/cashflow-server/internal/http/response"
)

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
}

// handleHealthCheck reports overall server health.
// GET /health.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]ComponentHealth)
	overall := "healthy"

	dbHealth := s.checkDatabase()
	components["database"] = dbHealth
	if dbHealth.Status != "healthy" {
		overall = "unhealthy"
	}

	resp := HealthResponse{
		Status:     overall,
		Components: components,
	}

	status := http.StatusOK
	if overall != "healthy" {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, status, resp, s.logger)
}

// checkDatabase measures a no-op read transaction against Badger.
func (s *Server) checkDatabase() ComponentHealth {
	start := time.Now()
	if err := s.store.Ping(); err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Message: "database unavailable",
		}
	}
	return ComponentHealth{
		Status:  "healthy",
		Latency: time.Since(start).String(),
	}
}
