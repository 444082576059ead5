package api

import (
	"net/http"

	"github.com/phrazzld/task-orchestrator/internal/api/shared"
	"github.com/phrazzld/task-orchestrator/internal/domain"
	"github.com/phrazzld/task-orchestrator/internal/platform/logger"
	"github.com/phrazzld/task-orchestrator/internal/service"
)

// JobHandler handles job submission and status requests
type JobHandler struct {
	jobs service.JobService
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(jobs service.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// ProcessData handles POST /example/process-data requests.
// The job is enqueued and its id returned immediately with 202 Accepted.
func (h *JobHandler) ProcessData(w http.ResponseWriter, r *http.Request) {
	var req ProcessDataRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	job, err := h.jobs.Submit(r.Context(), req.Data)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, TaskStatusResponse{
		TaskID:  job.ID,
		State:   string(domain.JobStateQueued),
		Message: service.QueuedMessage(job.ID),
	})
}

// GetTaskStatus handles GET /example/task/{task_id} requests.
func (h *JobHandler) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "task_id")
	if err != nil {
		logger.FromContext(r.Context()).Debug("invalid task_id", "error", err)
		HandleAPIError(w, r, err, "")
		return
	}

	status, err := h.jobs.Status(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskStatusToResponse(status))
}

func taskStatusToResponse(s *service.TaskStatus) TaskStatusResponse {
	resp := TaskStatusResponse{
		TaskID:  s.TaskID,
		State:   string(s.State),
		Message: s.Message,
	}
	if s.Result != nil {
		resp.Result = resultToResponse(s.Result)
	}
	if s.State == domain.JobStateFailure {
		msg := s.Error
		resp.Error = &msg
	}
	return resp
}

func resultToResponse(r *domain.ResultRecord) *ProcessedTaskResult {
	return &ProcessedTaskResult{
		ID:             r.ID,
		TaskID:         r.TaskID,
		Status:         string(r.Status),
		InputData:      r.InputData,
		ProcessedItems: r.ProcessedItems,
		ResultMessage:  r.ResultMessage,
		CreatedAt:      r.CreatedAt,
	}
}
