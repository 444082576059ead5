package task

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/task-orchestrator/internal/domain"
)

// StateRecorder records job state transitions on the broker.
type StateRecorder interface {
	SetState(ctx context.Context, id uuid.UUID, update domain.StateUpdate) error
}

// Broker is the subset of the job broker used by workers.
type Broker interface {
	StateRecorder

	// Dequeue claims the next job for workerID, waiting up to timeout.
	// It returns a nil delivery and no error when nothing arrived in time.
	Dequeue(ctx context.Context, workerID string, timeout time.Duration) (*domain.Delivery, error)

	// Ack releases a claimed job once it reached a terminal state.
	Ack(ctx context.Context, workerID string, d *domain.Delivery) error

	RegisterWorker(ctx context.Context, workerID string, ttl time.Duration) error

	// RecoverWorker requeues jobs still claimed under workerID by a previous
	// process that stopped without deregistering.
	RecoverWorker(ctx context.Context, workerID string) (int, error)

	Heartbeat(ctx context.Context, workerID string, ttl time.Duration) error

	// DeregisterWorker removes workerID and requeues jobs it still holds.
	DeregisterWorker(ctx context.Context, workerID string) (int, error)

	// RequeueOrphaned requeues jobs held by workers whose heartbeat lapsed.
	RequeueOrphaned(ctx context.Context) (int, error)
}

// JobExecutor runs a single claimed job to a terminal state.
type JobExecutor interface {
	Execute(ctx context.Context, workerID string, d *domain.Delivery) error
}
