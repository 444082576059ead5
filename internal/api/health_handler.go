package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/phrazzld/task-orchestrator/internal/api/shared"
	"github.com/phrazzld/task-orchestrator/internal/platform/logger"
	"github.com/phrazzld/task-orchestrator/internal/redact"
	"github.com/phrazzld/task-orchestrator/internal/service"
)

// HealthChecker checks the dependencies of the service.
type HealthChecker interface {
	CheckDatabase(ctx context.Context) error
	CheckBroker(ctx context.Context) (string, error)
	CheckWorkers(ctx context.Context) ([]string, error)
}

// HealthHandler serves the liveness and dependency checks.
type HealthHandler struct {
	checker HealthChecker
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Root handles GET /.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{Message: "Async Task Orchestrator is running"})
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, ServiceHealthResponse{Status: "ok", Service: "api"})
}

// Database handles GET /health/db.
func (h *HealthHandler) Database(w http.ResponseWriter, r *http.Request) {
	if err := h.checker.CheckDatabase(r.Context()); err != nil {
		respondUnhealthy(w, r, "DB error: "+redact.Error(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, DatabaseHealthResponse{Status: "ok", Database: "connected"})
}

// Redis handles GET /health/redis.
func (h *HealthHandler) Redis(w http.ResponseWriter, r *http.Request) {
	url, err := h.checker.CheckBroker(r.Context())
	if err != nil {
		respondUnhealthy(w, r, "Redis error: "+redact.Error(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, RedisHealthResponse{Status: "ok", Redis: url})
}

// Workers handles GET /health/workers.
func (h *HealthHandler) Workers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.checker.CheckWorkers(r.Context())
	if err != nil {
		msg := "No workers responding"
		if !errors.Is(err, service.ErrNoWorkers) {
			msg = "Worker check failed: " + redact.Error(err)
		}
		respondUnhealthy(w, r, msg, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, WorkersHealthResponse{Status: "ok", Workers: workers})
}

func respondUnhealthy(w http.ResponseWriter, r *http.Request, message string, err error) {
	logger.FromContext(r.Context()).Warn("health check failed",
		"path", r.URL.Path,
		"error", redact.Error(err))
	shared.RespondWithJSON(w, r, http.StatusServiceUnavailable, HealthErrorResponse{Status: "error", Error: message})
}
