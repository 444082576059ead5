package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/task-orchestrator/internal/domain"
)

// Service errors. The API layer maps these to HTTP status codes.
var (
	// ErrQueueUnavailable indicates the broker rejected a submission.
	// API layer should map this to HTTP 503 Service Unavailable.
	ErrQueueUnavailable = errors.New("task queue unavailable")

	// ErrJobNotFound indicates the broker has no record of the job.
	// API layer should map this to HTTP 404 Not Found.
	ErrJobNotFound = errors.New("task not found")

	// ErrResultStoreUnavailable indicates the result store could not be read.
	ErrResultStoreUnavailable = errors.New("result store unavailable")

	// ErrBrokerUnavailable indicates the broker could not be read.
	ErrBrokerUnavailable = errors.New("broker unavailable")

	// ErrNoWorkers indicates no worker answered the liveness check.
	ErrNoWorkers = errors.New("no workers responding")
)

// JobServiceError wraps errors from the job service with context.
type JobServiceError struct {
	// Operation is the operation that failed (e.g., "submit", "status")
	Operation string
	// Sentinel is the service error callers match with errors.Is.
	Sentinel error
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for JobServiceError.
func (e *JobServiceError) Error() string {
	return fmt.Sprintf("job service %s failed: %v: %v", e.Operation, e.Sentinel, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is/errors.As.
func (e *JobServiceError) Unwrap() []error {
	return []error{e.Sentinel, e.Err}
}

// NewJobServiceError classifies err for operation. Broker not-found errors
// become ErrJobNotFound unwrapped; anything else is wrapped with sentinel.
func NewJobServiceError(operation string, sentinel, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrJobNotFound) {
		return ErrJobNotFound
	}
	return &JobServiceError{
		Operation: operation,
		Sentinel:  sentinel,
		Err:       err,
	}
}
