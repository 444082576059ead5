package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/task-orchestrator/internal/config"
	"github.com/phrazzld/task-orchestrator/internal/domain"
)

// ackTimeout bounds broker calls made after the pool context was cancelled.
const ackTimeout = 5 * time.Second

// WorkerPoolConfig holds configuration for the worker pool
type WorkerPoolConfig struct {
	// WorkerID identifies this pool on the broker, in name@host form.
	WorkerID string

	// Concurrency determines how many jobs are executed at the same time.
	// If zero or negative, defaults to 1
	Concurrency int

	// DequeueTimeout is how long a worker blocks waiting for a job before
	// checking for shutdown.
	DequeueTimeout time.Duration

	// HeartbeatInterval is how often liveness is refreshed. HeartbeatTTL is how
	// long the broker considers the pool alive without a refresh.
	HeartbeatInterval time.Duration
	HeartbeatTTL      time.Duration

	// OrphanCheckInterval defines how often jobs of dead workers are requeued.
	OrphanCheckInterval time.Duration
}

// WorkerID formats a worker identity from a name and a hostname.
func WorkerID(name, hostname string) string {
	return name + "@" + hostname
}

// WorkerPoolConfigFromConfig builds the pool configuration for this host.
func WorkerPoolConfigFromConfig(cfg config.WorkerConfig, hostname string) WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerID:            WorkerID(cfg.Name, hostname),
		Concurrency:         cfg.Concurrency,
		DequeueTimeout:      cfg.DequeueTimeout,
		HeartbeatInterval:   cfg.HeartbeatInterval,
		HeartbeatTTL:        cfg.HeartbeatTTL,
		OrphanCheckInterval: cfg.OrphanCheckInterval,
	}
}

// WorkerPool claims jobs from the broker and hands them to an executor.
// Alongside the workers it runs a heartbeat loop and a monitor that requeues
// jobs left behind by workers that stopped heartbeating.
type WorkerPool struct {
	broker   Broker
	executor JobExecutor
	config   WorkerPoolConfig
	logger   *slog.Logger

	// errHandler is called when a job reaches FAILURE.
	errHandler func(job *domain.Job, err error)

	mu      sync.Mutex
	cancel  context.CancelFunc
	group   *errgroup.Group
	started bool
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(broker Broker, executor JobExecutor, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	if config.Concurrency <= 0 {
		logger.Warn("invalid worker concurrency specified, using default",
			"specified_count", config.Concurrency,
			"default_count", 1)
		config.Concurrency = 1
	}

	return &WorkerPool{
		broker:   broker,
		executor: executor,
		config:   config,
		logger:   logger.With("worker_id", config.WorkerID),
		errHandler: func(job *domain.Job, err error) {
			logger.Error("task execution failed",
				"task_id", job.ID,
				"error", err)
		},
	}
}

// SetErrorHandler allows setting a custom error handler function
func (p *WorkerPool) SetErrorHandler(handler func(job *domain.Job, err error)) {
	p.errHandler = handler
}

// ID returns the worker identity announced on the broker.
func (p *WorkerPool) ID() string {
	return p.config.WorkerID
}

// Start registers the worker, requeues jobs orphaned by dead workers and
// begins processing. It returns once the goroutines are running.
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.New("worker pool already started")
	}

	if err := p.broker.RegisterWorker(ctx, p.config.WorkerID, p.config.HeartbeatTTL); err != nil {
		return fmt.Errorf("failed to register worker: %w", err)
	}

	// A previous process with this identity may have crashed holding jobs.
	// Its registration is live again now, so orphan recovery would skip them.
	if n, err := p.broker.RecoverWorker(ctx, p.config.WorkerID); err != nil {
		p.logger.Error("failed to recover tasks of previous run", "error", err)
	} else if n > 0 {
		p.logger.Info("recovered tasks of previous run", "count", n)
	}

	// Recover jobs abandoned by workers that died before this one started.
	p.requeueOrphaned(ctx)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	group, gctx := errgroup.WithContext(runCtx)

	for slot := range p.config.Concurrency {
		group.Go(func() error { return p.worker(gctx, slot) })
	}
	group.Go(func() error { return p.heartbeatLoop(gctx) })
	group.Go(func() error { return p.orphanMonitor(gctx) })

	p.cancel = cancel
	p.group = group
	p.started = true

	p.logger.Info("worker pool started", "concurrency", p.config.Concurrency)
	return nil
}

// Stop signals the workers to finish, waits for in-flight jobs and removes the
// worker from the broker. Jobs still claimed by this worker are requeued.
//
// If ctx expires first the registration is left to lapse instead, so jobs
// still executing here are not handed to another worker while they run.
// Orphan recovery requeues them once the heartbeat TTL has passed.
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil
	}

	p.cancel()
	done := make(chan error, 1)
	go func() { done <- p.group.Wait() }()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		p.started = false
		p.logger.Warn("worker pool stop timed out, leaving in-flight tasks to orphan recovery")
		return fmt.Errorf("timed out waiting for workers: %w", ctx.Err())
	}
	p.started = false

	requeued, err := p.broker.DeregisterWorker(context.WithoutCancel(ctx), p.config.WorkerID)
	if err != nil {
		return errors.Join(waitErr, fmt.Errorf("failed to deregister worker: %w", err))
	}

	p.logger.Info("worker pool stopped", "requeued", requeued)
	return waitErr
}

// worker claims and executes jobs until ctx is cancelled.
func (p *WorkerPool) worker(ctx context.Context, slot int) error {
	log := p.logger.With("slot", slot)
	log.Debug("starting worker")

	for ctx.Err() == nil {
		d, err := p.broker.Dequeue(ctx, p.config.WorkerID, p.config.DequeueTimeout)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				break
			}
			log.Error("failed to dequeue task", "error", err)
			// Back off so an unreachable broker is not hammered.
			_ = sleepContext(ctx, time.Second)
		case d != nil:
			p.processDelivery(ctx, log, d)
		}
	}

	log.Debug("stopping worker")
	return nil
}

// processDelivery executes a claimed job and acknowledges it unless the
// execution was interrupted before a terminal state.
func (p *WorkerPool) processDelivery(ctx context.Context, log *slog.Logger, d *domain.Delivery) {
	err := p.executor.Execute(ctx, p.config.WorkerID, d)
	if errors.Is(err, ErrInterrupted) {
		log.Info("task left for redelivery", "task_id", d.Job.ID)
		return
	}
	if err != nil {
		p.errHandler(d.Job, err)
	}

	ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ackTimeout)
	defer cancel()
	if err := p.broker.Ack(ackCtx, p.config.WorkerID, d); err != nil {
		log.Error("failed to acknowledge task", "task_id", d.Job.ID, "error", err)
	}
}

// heartbeatLoop keeps the worker registration alive.
func (p *WorkerPool) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(p.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.broker.Heartbeat(ctx, p.config.WorkerID, p.config.HeartbeatTTL); err != nil && ctx.Err() == nil {
				p.logger.Error("failed to send heartbeat", "error", err)
			}
		}
	}
}

// orphanMonitor periodically requeues jobs held by dead workers.
func (p *WorkerPool) orphanMonitor(ctx context.Context) error {
	ticker := time.NewTicker(p.config.OrphanCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.requeueOrphaned(ctx)
		}
	}
}

func (p *WorkerPool) requeueOrphaned(ctx context.Context) {
	n, err := p.broker.RequeueOrphaned(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("failed to requeue orphaned tasks", "error", err)
		}
		return
	}
	if n > 0 {
		p.logger.Info("requeued orphaned tasks", "count", n)
	}
}
