package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/task-orchestrator/internal/domain"
	"github.com/phrazzld/task-orchestrator/internal/platform/logger"
	"github.com/phrazzld/task-orchestrator/internal/store"
)

// JobBroker is the broker surface used by the job service.
type JobBroker interface {
	// Enqueue makes a job available to workers.
	Enqueue(ctx context.Context, job *domain.Job) error

	// JobStatus returns the live state of a job, or domain.ErrJobNotFound.
	JobStatus(ctx context.Context, id uuid.UUID) (*domain.JobStatus, error)
}

// ResultReader reads persisted job results.
type ResultReader interface {
	// GetResult returns the record for a job, or an error matching store.ErrNotFound.
	GetResult(ctx context.Context, taskID uuid.UUID) (*domain.ResultRecord, error)
}

// TaskStatus is the merged view of a job: broker state plus the persisted result.
type TaskStatus struct {
	TaskID  uuid.UUID
	State   domain.JobState
	Message string
	// Result is nil while no record has been written.
	Result *domain.ResultRecord
	// Error is set only when State is FAILURE.
	Error string
}

// JobService submits jobs and resolves their status.
type JobService interface {
	// Submit enqueues payload for asynchronous processing and returns the job
	// without waiting for it to run.
	Submit(ctx context.Context, payload map[string]any) (*domain.Job, error)

	// Status merges the broker state of a job with its persisted result.
	Status(ctx context.Context, id uuid.UUID) (*TaskStatus, error)
}

type jobServiceImpl struct {
	broker  JobBroker
	results ResultReader
	logger  *slog.Logger
}

// NewJobService creates a JobService.
// It returns an error if any of the required dependencies are nil.
func NewJobService(broker JobBroker, results ResultReader, logger *slog.Logger) (JobService, error) {
	if broker == nil {
		return nil, errors.New("job service: broker cannot be nil")
	}
	if results == nil {
		return nil, errors.New("job service: results cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &jobServiceImpl{
		broker:  broker,
		results: results,
		logger:  logger.With("component", "job_service"),
	}, nil
}

// Submit creates a job and places it on the queue.
func (s *jobServiceImpl) Submit(ctx context.Context, payload map[string]any) (*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	job := domain.NewJob(payload)

	if err := s.broker.Enqueue(ctx, job); err != nil {
		log.Error("failed to enqueue task",
			"task_id", job.ID,
			"error", err)
		return nil, NewJobServiceError("submit", ErrQueueUnavailable, err)
	}

	log.Info("task queued", "task_id", job.ID, "items", len(job.Payload))
	return job, nil
}

// Status resolves the state of a job.
//
// The executor records SUCCESS only after the result commit, so SUCCESS with
// no record means the write was lost. A record alongside a non-terminal state
// means a redelivered attempt is running or the final state update failed; the
// broker state is reported as is and the record attached.
func (s *jobServiceImpl) Status(ctx context.Context, id uuid.UUID) (*TaskStatus, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With("task_id", id)

	live, err := s.broker.JobStatus(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrJobNotFound) {
			log.Error("failed to read task state", "error", err)
		}
		return nil, NewJobServiceError("status", ErrBrokerUnavailable, err)
	}

	status := &TaskStatus{
		TaskID:  id,
		State:   live.State,
		Message: StatusMessage(live.State),
	}
	if live.State == domain.JobStateFailure {
		status.Error = live.Error
	}

	record, err := s.results.GetResult(ctx, id)
	switch {
	case err == nil:
		status.Result = record
	case store.IsNotFoundError(err):
		if live.State == domain.JobStateSuccess {
			log.Warn("task reported success but no result record exists")
		}
	default:
		log.Error("failed to read task result", "error", err)
		return nil, NewJobServiceError("status", ErrResultStoreUnavailable, err)
	}

	return status, nil
}

// StatusMessage returns the human readable message reported for a state.
func StatusMessage(state domain.JobState) string {
	switch state {
	case domain.JobStatePending:
		return "Task is waiting in the queue."
	case domain.JobStateRunning:
		return "Task is currently running."
	case domain.JobStateRetry:
		return "Task failed and is waiting to be retried."
	case domain.JobStateSuccess:
		return "Task completed successfully."
	case domain.JobStateFailure:
		return "Task failed."
	default:
		return fmt.Sprintf("Task is in state: %s", state)
	}
}

// QueuedMessage is the message returned to the submitter of a job.
func QueuedMessage(id uuid.UUID) string {
	return fmt.Sprintf("Data processing task queued with ID: %s", id)
}
