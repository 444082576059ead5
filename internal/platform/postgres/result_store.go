package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/task-orchestrator/internal/domain"
	"github.com/phrazzld/task-orchestrator/internal/platform/logger"
	"github.com/phrazzld/task-orchestrator/internal/store"
)

const (
	resultExistsQuery = `SELECT EXISTS (SELECT 1 FROM processed_tasks WHERE task_id = $1)`

	insertResultQuery = `
		INSERT INTO processed_tasks (task_id, status, input_data, processed_items, result_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	getResultQuery = `
		SELECT id, task_id, status, input_data, processed_items, result_message, created_at
		FROM processed_tasks
		WHERE task_id = $1
	`
)

// PostgresResultStore implements the store.ResultStore interface using PostgreSQL
type PostgresResultStore struct {
	db store.DBTX
	// sqlDB is set when the store owns a pool and may open its own transactions.
	sqlDB *sql.DB
}

var _ store.ResultStore = (*PostgresResultStore)(nil)

// NewPostgresResultStore creates a new PostgresResultStore
func NewPostgresResultStore(db *sql.DB) *PostgresResultStore {
	return &PostgresResultStore{db: db, sqlDB: db}
}

// WithTx returns a store bound to tx. SaveResult on the returned store runs
// inside tx instead of opening its own transaction.
func (s *PostgresResultStore) WithTx(tx *sql.Tx) store.ResultStore {
	return &PostgresResultStore{db: tx}
}

// SaveResult writes the record in a single transaction: an existence check
// followed by the insert. Both an existing row and a unique-key violation from
// a concurrent writer yield store.ErrResultExists.
func (s *PostgresResultStore) SaveResult(ctx context.Context, record *domain.ResultRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	if s.sqlDB == nil {
		return s.saveResult(ctx, s.db, record)
	}
	return store.RunInTransaction(ctx, s.sqlDB, func(ctx context.Context, tx *sql.Tx) error {
		return s.saveResult(ctx, tx, record)
	})
}

func (s *PostgresResultStore) saveResult(ctx context.Context, db store.DBTX, record *domain.ResultRecord) error {
	log := logger.FromContext(ctx)

	var exists bool
	if err := db.QueryRowContext(ctx, resultExistsQuery, record.TaskID).Scan(&exists); err != nil {
		log.Error("failed to check for existing result",
			"task_id", record.TaskID,
			"error", err)
		return fmt.Errorf("failed to check for existing result: %w", MapError(err))
	}
	if exists {
		return store.ErrResultExists
	}

	input, err := json.Marshal(record.InputData)
	if err != nil {
		return fmt.Errorf("%w: input data is not JSON encodable: %v", store.ErrInvalidEntity, err)
	}

	err = db.QueryRowContext(ctx, insertResultQuery,
		record.TaskID,
		record.Status,
		input,
		record.ProcessedItems,
		record.ResultMessage,
		record.CreatedAt,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrResultExists
		}
		log.Error("failed to insert result",
			"task_id", record.TaskID,
			"error", err)
		return fmt.Errorf("failed to insert result: %w", MapError(err))
	}

	return nil
}

// GetResult retrieves the record written for taskID.
func (s *PostgresResultStore) GetResult(ctx context.Context, taskID uuid.UUID) (*domain.ResultRecord, error) {
	var (
		record domain.ResultRecord
		input  []byte
	)

	err := s.db.QueryRowContext(ctx, getResultQuery, taskID).Scan(
		&record.ID,
		&record.TaskID,
		&record.Status,
		&input,
		&record.ProcessedItems,
		&record.ResultMessage,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrResultNotFound
		}
		logger.FromContext(ctx).Error("failed to get result",
			"task_id", taskID,
			"error", err)
		return nil, fmt.Errorf("failed to get result: %w", MapError(err))
	}

	if err := json.Unmarshal(input, &record.InputData); err != nil {
		return nil, fmt.Errorf("failed to decode stored input data: %w", err)
	}

	return &record, nil
}
