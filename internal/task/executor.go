package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/task-orchestrator/internal/domain"
	"github.com/phrazzld/task-orchestrator/internal/store"
)

var (
	// ErrRetriesExhausted is returned when every attempt of a job failed.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrInterrupted is returned when shutdown arrived while waiting to retry.
	// The job has not reached a terminal state and must not be acknowledged.
	ErrInterrupted = errors.New("execution interrupted")
)

// Executor runs jobs: process the payload, persist the result, and retry the
// whole attempt with backoff on failure.
type Executor struct {
	states  StateRecorder
	results store.ResultStore
	process ProcessFunc
	policy  RetryPolicy
	logger  *slog.Logger

	// sleep waits between attempts. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

var _ JobExecutor = (*Executor)(nil)

// NewExecutor creates an Executor.
func NewExecutor(
	states StateRecorder,
	results store.ResultStore,
	process ProcessFunc,
	policy RetryPolicy,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		states:  states,
		results: results,
		process: process,
		policy:  policy,
		logger:  logger,
		sleep:   sleepContext,
	}
}

// Execute runs the delivered job until it succeeds or its attempts are used
// up. Attempts started by earlier deliveries count toward the limit.
//
// Attempts run on a context that ignores cancellation of ctx, so a started
// attempt always completes. Only the wait between attempts observes ctx; if it
// is cancelled there, ErrInterrupted is returned and the job stays claimed.
//
// SUCCESS is recorded only after the result is committed.
func (e *Executor) Execute(ctx context.Context, workerID string, d *domain.Delivery) error {
	job := d.Job
	runCtx := context.WithoutCancel(ctx)
	log := e.logger.With("task_id", job.ID, "worker_id", workerID)
	maxAttempts := e.policy.MaxAttempts()

	if d.Attempts > 0 {
		log.Info("task redelivered", "previous_attempts", d.Attempts)
	}
	if d.Attempts >= maxAttempts {
		return e.finishExhausted(runCtx, log, job, d.Attempts)
	}

	for attempt := d.Attempts + 1; ; attempt++ {
		e.recordState(runCtx, log, job.ID, domain.StateUpdate{
			State:    domain.JobStateRunning,
			Attempt:  attempt,
			WorkerID: workerID,
		})
		log.Info("processing task", "attempt", attempt)

		err := e.attempt(runCtx, log, job)
		if err == nil {
			e.recordState(runCtx, log, job.ID, domain.StateUpdate{State: domain.JobStateSuccess})
			log.Info("task completed successfully", "attempt", attempt)
			return nil
		}

		if attempt >= maxAttempts {
			e.recordState(runCtx, log, job.ID, domain.StateUpdate{
				State: domain.JobStateFailure,
				Error: err.Error(),
			})
			log.Error("task failed, no retries left", "attempt", attempt, "error", err)
			return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
		}

		delay := e.policy.Delay(attempt)
		e.recordState(runCtx, log, job.ID, domain.StateUpdate{
			State: domain.JobStateRetry,
			Error: err.Error(),
		})
		log.Warn("task attempt failed, retrying",
			"attempt", attempt,
			"retry_in", delay,
			"error", err)

		if err := e.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%w: task %s: %w", ErrInterrupted, job.ID, err)
		}
	}
}

// finishExhausted settles a redelivered job whose attempts were all used by
// earlier deliveries. A result written by the last of them still counts.
func (e *Executor) finishExhausted(ctx context.Context, log *slog.Logger, job *domain.Job, attempts int) error {
	_, err := e.results.GetResult(ctx, job.ID)
	if err == nil {
		e.recordState(ctx, log, job.ID, domain.StateUpdate{State: domain.JobStateSuccess})
		log.Info("task already processed")
		return nil
	}

	cause := errors.New("no attempts left after redelivery")
	if !store.IsNotFoundError(err) {
		cause = fmt.Errorf("no attempts left after redelivery, result lookup failed: %w", err)
	}
	e.recordState(ctx, log, job.ID, domain.StateUpdate{
		State: domain.JobStateFailure,
		Error: cause.Error(),
	})
	log.Error("task failed, no retries left", "attempt", attempts, "error", cause)
	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, cause)
}

// attempt processes the payload and writes the result record.
func (e *Executor) attempt(ctx context.Context, log *slog.Logger, job *domain.Job) error {
	res, err := e.process(ctx, job.Payload)
	if err != nil {
		return fmt.Errorf("process: %w", err)
	}

	record, err := domain.NewSuccessRecord(job.ID, job.Payload, res.ProcessedItems, res.Message)
	if err != nil {
		return fmt.Errorf("build result: %w", err)
	}

	if err := e.results.SaveResult(ctx, record); err != nil {
		if store.IsDuplicateError(err) {
			log.Info("task already processed")
			return nil
		}
		return fmt.Errorf("save result: %w", err)
	}

	return nil
}

// recordState logs instead of failing when the broker rejects an update.
// The result record stays authoritative.
func (e *Executor) recordState(ctx context.Context, log *slog.Logger, id uuid.UUID, update domain.StateUpdate) {
	if err := e.states.SetState(ctx, id, update); err != nil {
		log.Error("failed to record task state",
			"state", update.State,
			"error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
