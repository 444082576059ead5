package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/task-orchestrator/internal/domain"
)

// ResultStore persists the durable outcome of processed jobs.
type ResultStore interface {
	// SaveResult writes the record for a job exactly once.
	// Returns ErrDuplicate if a record for record.TaskID already exists;
	// callers treat that as "already processed".
	// Returns ErrInvalidEntity if the record fails validation.
	SaveResult(ctx context.Context, record *domain.ResultRecord) error

	// GetResult retrieves the record written for taskID.
	// Returns ErrResultNotFound if the job has not produced a record.
	GetResult(ctx context.Context, taskID uuid.UUID) (*domain.ResultRecord, error)

	// WithTx returns a new ResultStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ResultStore
}
