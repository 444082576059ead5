package service

import (
	"context"
	"fmt"
	"time"

	"github.com/phrazzld/task-orchestrator/internal/redact"
)

// WorkerCheckTimeout bounds how long the worker liveness check may take.
const WorkerCheckTimeout = time.Second

// Pinger checks connectivity to a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

// Ping calls f(ctx).
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// WorkerLister lists workers whose heartbeat is current.
type WorkerLister interface {
	ActiveWorkers(ctx context.Context) ([]string, error)
}

// HealthService checks the process dependencies.
type HealthService struct {
	database Pinger
	broker   Pinger
	workers  WorkerLister
	// brokerURL is reported by the broker check with its password masked.
	brokerURL string
}

// NewHealthService creates a HealthService.
func NewHealthService(database, broker Pinger, workers WorkerLister, brokerURL string) *HealthService {
	return &HealthService{
		database:  database,
		broker:    broker,
		workers:   workers,
		brokerURL: brokerURL,
	}
}

// CheckDatabase runs a trivial query against the result store.
func (h *HealthService) CheckDatabase(ctx context.Context) error {
	return h.database.Ping(ctx)
}

// CheckBroker pings Redis and returns the broker URL with its password masked.
func (h *HealthService) CheckBroker(ctx context.Context) (string, error) {
	if err := h.broker.Ping(ctx); err != nil {
		return "", err
	}
	return redact.URL(h.brokerURL), nil
}

// CheckWorkers returns the workers answering within WorkerCheckTimeout.
// It returns ErrNoWorkers when none do.
func (h *HealthService) CheckWorkers(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, WorkerCheckTimeout)
	defer cancel()

	workers, err := h.workers.ActiveWorkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	if len(workers) == 0 {
		return nil, ErrNoWorkers
	}
	return workers, nil
}
