package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/task-orchestrator/internal/domain"
)

// MockBroker implements the Broker interface for testing.
// By default it keeps an in-memory queue and records every state update.
type MockBroker struct {
	mutex     sync.Mutex
	queue     []*domain.Delivery
	acked     []uuid.UUID
	updates   map[uuid.UUID][]domain.StateUpdate
	workers   map[string]time.Duration
	beats     int
	requeues  int
	recovered []string

	DequeueFn         func(ctx context.Context, workerID string, timeout time.Duration) (*domain.Delivery, error)
	AckFn             func(ctx context.Context, workerID string, d *domain.Delivery) error
	SetStateFn        func(ctx context.Context, id uuid.UUID, update domain.StateUpdate) error
	RegisterWorkerFn  func(ctx context.Context, workerID string, ttl time.Duration) error
	RecoverWorkerFn   func(ctx context.Context, workerID string) (int, error)
	HeartbeatFn       func(ctx context.Context, workerID string, ttl time.Duration) error
	DeregisterFn      func(ctx context.Context, workerID string) (int, error)
	RequeueOrphanedFn func(ctx context.Context) (int, error)
}

var _ Broker = (*MockBroker)(nil)

// NewMockBroker creates a MockBroker with default implementations
func NewMockBroker() *MockBroker {
	return &MockBroker{
		updates: make(map[uuid.UUID][]domain.StateUpdate),
		workers: make(map[string]time.Duration),
	}
}

// Push adds a job to the in-memory queue.
func (b *MockBroker) Push(job *domain.Job) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.queue = append(b.queue, &domain.Delivery{Job: job, Receipt: job.ID.String()})
}

// Dequeue pops the oldest queued job, or waits for timeout (bounded to keep
// tests fast) when the queue is empty.
func (b *MockBroker) Dequeue(ctx context.Context, workerID string, timeout time.Duration) (*domain.Delivery, error) {
	if b.DequeueFn != nil {
		return b.DequeueFn(ctx, workerID, timeout)
	}

	b.mutex.Lock()
	if len(b.queue) > 0 {
		d := b.queue[0]
		b.queue = b.queue[1:]
		b.mutex.Unlock()
		return d, nil
	}
	b.mutex.Unlock()

	wait := min(timeout, 10*time.Millisecond)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(wait):
		return nil, nil
	}
}

// Ack records the acknowledged job.
func (b *MockBroker) Ack(ctx context.Context, workerID string, d *domain.Delivery) error {
	if b.AckFn != nil {
		return b.AckFn(ctx, workerID, d)
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.acked = append(b.acked, d.Job.ID)
	return nil
}

// SetState records the update.
func (b *MockBroker) SetState(ctx context.Context, id uuid.UUID, update domain.StateUpdate) error {
	b.mutex.Lock()
	b.updates[id] = append(b.updates[id], update)
	b.mutex.Unlock()

	if b.SetStateFn != nil {
		return b.SetStateFn(ctx, id, update)
	}
	return nil
}

// RegisterWorker records the worker.
func (b *MockBroker) RegisterWorker(ctx context.Context, workerID string, ttl time.Duration) error {
	if b.RegisterWorkerFn != nil {
		return b.RegisterWorkerFn(ctx, workerID, ttl)
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.workers[workerID] = ttl
	return nil
}

// RecoverWorker records the recovered worker id.
func (b *MockBroker) RecoverWorker(ctx context.Context, workerID string) (int, error) {
	if b.RecoverWorkerFn != nil {
		return b.RecoverWorkerFn(ctx, workerID)
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.recovered = append(b.recovered, workerID)
	return 0, nil
}

// Heartbeat counts heartbeats.
func (b *MockBroker) Heartbeat(ctx context.Context, workerID string, ttl time.Duration) error {
	if b.HeartbeatFn != nil {
		return b.HeartbeatFn(ctx, workerID, ttl)
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.beats++
	return nil
}

// DeregisterWorker forgets the worker.
func (b *MockBroker) DeregisterWorker(ctx context.Context, workerID string) (int, error) {
	if b.DeregisterFn != nil {
		return b.DeregisterFn(ctx, workerID)
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	delete(b.workers, workerID)
	return 0, nil
}

// RequeueOrphaned counts calls.
func (b *MockBroker) RequeueOrphaned(ctx context.Context) (int, error) {
	if b.RequeueOrphanedFn != nil {
		return b.RequeueOrphanedFn(ctx)
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.requeues++
	return 0, nil
}

// States returns the states recorded for a job in order.
func (b *MockBroker) States(id uuid.UUID) []domain.JobState {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	states := make([]domain.JobState, 0, len(b.updates[id]))
	for _, u := range b.updates[id] {
		states = append(states, u.State)
	}
	return states
}

// Updates returns the updates recorded for a job in order.
func (b *MockBroker) Updates(id uuid.UUID) []domain.StateUpdate {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return append([]domain.StateUpdate(nil), b.updates[id]...)
}

// Acked returns the ids of acknowledged jobs.
func (b *MockBroker) Acked() []uuid.UUID {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return append([]uuid.UUID(nil), b.acked...)
}

// Registered reports whether workerID is currently registered.
func (b *MockBroker) Registered(workerID string) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	_, ok := b.workers[workerID]
	return ok
}

// RequeueCalls returns how often RequeueOrphaned ran with the default implementation.
func (b *MockBroker) RequeueCalls() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.requeues
}

// Recovered returns the worker ids passed to RecoverWorker.
func (b *MockBroker) Recovered() []string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return append([]string(nil), b.recovered...)
}

// Heartbeats returns how many heartbeats were sent with the default implementation.
func (b *MockBroker) Heartbeats() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.beats
}
