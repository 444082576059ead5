package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/phrazzld/task-orchestrator/internal/domain"
)

// MockJobBroker mocks the JobBroker interface
type MockJobBroker struct {
	mock.Mock
}

func (m *MockJobBroker) Enqueue(ctx context.Context, job *domain.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobBroker) JobStatus(ctx context.Context, id uuid.UUID) (*domain.JobStatus, error) {
	args := m.Called(ctx, id)
	status, _ := args.Get(0).(*domain.JobStatus)
	return status, args.Error(1)
}

// MockResultReader mocks the ResultReader interface
type MockResultReader struct {
	mock.Mock
}

func (m *MockResultReader) GetResult(ctx context.Context, taskID uuid.UUID) (*domain.ResultRecord, error) {
	args := m.Called(ctx, taskID)
	record, _ := args.Get(0).(*domain.ResultRecord)
	return record, args.Error(1)
}

// MockWorkerLister mocks the WorkerLister interface
type MockWorkerLister struct {
	mock.Mock
}

func (m *MockWorkerLister) ActiveWorkers(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	workers, _ := args.Get(0).([]string)
	return workers, args.Error(1)
}
