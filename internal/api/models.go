package api

import (
	"time"

	"github.com/google/uuid"
)

// ProcessDataRequest defines the payload for the job submission endpoint.
type ProcessDataRequest struct {
	Data map[string]any `json:"data" validate:"required"`
}

// ProcessedTaskResult is the persisted result of a job as returned to clients.
type ProcessedTaskResult struct {
	ID             int64          `json:"id"`
	TaskID         uuid.UUID      `json:"task_id"`
	Status         string         `json:"status"`
	InputData      map[string]any `json:"input_data"`
	ProcessedItems int            `json:"processed_items"`
	ResultMessage  string         `json:"result_message"`
	CreatedAt      time.Time      `json:"created_at"`
}

// TaskStatusResponse is returned by both the submission and the status endpoints.
// Result and Error serialize as null when absent.
type TaskStatusResponse struct {
	TaskID  uuid.UUID            `json:"task_id"`
	State   string               `json:"state"`
	Message string               `json:"message"`
	Result  *ProcessedTaskResult `json:"result"`
	Error   *string              `json:"error"`
}

// MessageResponse carries a single informational message.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthErrorResponse is returned by a failed health check.
type HealthErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// ServiceHealthResponse is returned by the process liveness check.
type ServiceHealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// DatabaseHealthResponse is returned by a successful database check.
type DatabaseHealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// RedisHealthResponse is returned by a successful broker check.
type RedisHealthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis"`
}

// WorkersHealthResponse is returned by a successful worker check.
type WorkersHealthResponse struct {
	Status  string   `json:"status"`
	Workers []string `json:"workers"`
}
