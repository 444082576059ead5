package task

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/task-orchestrator/internal/domain"
	"github.com/phrazzld/task-orchestrator/internal/store"
)

// MockResultStore implements the store.ResultStore interface for testing.
// The default implementation enforces one record per task id.
type MockResultStore struct {
	mutex   sync.RWMutex
	records map[uuid.UUID]*domain.ResultRecord
	saves   int

	SaveFn func(ctx context.Context, record *domain.ResultRecord) error
}

var _ store.ResultStore = (*MockResultStore)(nil)

// NewMockResultStore creates a new MockResultStore with default implementations
func NewMockResultStore() *MockResultStore {
	s := &MockResultStore{records: make(map[uuid.UUID]*domain.ResultRecord)}

	s.SaveFn = func(ctx context.Context, record *domain.ResultRecord) error {
		s.mutex.Lock()
		defer s.mutex.Unlock()

		if _, exists := s.records[record.TaskID]; exists {
			return store.ErrResultExists
		}
		record.ID = int64(len(s.records) + 1)
		copied := *record
		s.records[record.TaskID] = &copied
		return nil
	}

	return s
}

// SaveResult delegates to SaveFn.
func (s *MockResultStore) SaveResult(ctx context.Context, record *domain.ResultRecord) error {
	s.mutex.Lock()
	s.saves++
	s.mutex.Unlock()
	return s.SaveFn(ctx, record)
}

// GetResult returns the stored record or store.ErrResultNotFound.
func (s *MockResultStore) GetResult(ctx context.Context, taskID uuid.UUID) (*domain.ResultRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	record, ok := s.records[taskID]
	if !ok {
		return nil, store.ErrResultNotFound
	}
	copied := *record
	return &copied, nil
}

// WithTx returns the same store.
func (s *MockResultStore) WithTx(tx *sql.Tx) store.ResultStore {
	return s
}

// Count returns the number of stored records.
func (s *MockResultStore) Count() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.records)
}

// SaveCalls returns how many times SaveResult was called.
func (s *MockResultStore) SaveCalls() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.saves
}
