package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/phrazzld/task-orchestrator/internal/domain"
	"github.com/phrazzld/task-orchestrator/internal/service"
)

// MockJobService is a mock implementation of service.JobService for testing
type MockJobService struct {
	SubmitFn func(ctx context.Context, payload map[string]any) (*domain.Job, error)
	StatusFn func(ctx context.Context, id uuid.UUID) (*service.TaskStatus, error)
}

// Submit implements service.JobService
func (m *MockJobService) Submit(ctx context.Context, payload map[string]any) (*domain.Job, error) {
	if m.SubmitFn != nil {
		return m.SubmitFn(ctx, payload)
	}
	return domain.NewJob(payload), nil
}

// Status implements service.JobService
func (m *MockJobService) Status(ctx context.Context, id uuid.UUID) (*service.TaskStatus, error) {
	if m.StatusFn != nil {
		return m.StatusFn(ctx, id)
	}
	return nil, service.ErrJobNotFound
}

// MockHealthChecker is a mock implementation of HealthChecker for testing
type MockHealthChecker struct {
	CheckDatabaseFn func(ctx context.Context) error
	CheckBrokerFn   func(ctx context.Context) (string, error)
	CheckWorkersFn  func(ctx context.Context) ([]string, error)
}

// CheckDatabase implements HealthChecker
func (m *MockHealthChecker) CheckDatabase(ctx context.Context) error {
	if m.CheckDatabaseFn != nil {
		return m.CheckDatabaseFn(ctx)
	}
	return nil
}

// CheckBroker implements HealthChecker
func (m *MockHealthChecker) CheckBroker(ctx context.Context) (string, error) {
	if m.CheckBrokerFn != nil {
		return m.CheckBrokerFn(ctx)
	}
	return "redis://localhost:6379/0", nil
}

// CheckWorkers implements HealthChecker
func (m *MockHealthChecker) CheckWorkers(ctx context.Context) ([]string, error) {
	if m.CheckWorkersFn != nil {
		return m.CheckWorkersFn(ctx)
	}
	return []string{"worker@localhost"}, nil
}
