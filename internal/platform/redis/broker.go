package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/task-orchestrator/internal/domain"
)

// Job state hash fields.
const (
	fieldState       = "state"
	fieldError       = "error"
	fieldAttempts    = "attempts"
	fieldWorkerID    = "worker_id"
	fieldSubmittedAt = "submitted_at"
	fieldStartedAt   = "started_at"
	fieldFinishedAt  = "finished_at"
)

// Broker is a Redis backed job queue, job state tracker and worker registry.
// It is safe for concurrent use.
type Broker struct {
	client goredis.UniversalClient
	keys   keyspace
	// expiry bounds how long job state hashes are kept after the last update.
	expiry time.Duration
}

// NewBroker creates a broker using keys under prefix.
func NewBroker(client goredis.UniversalClient, prefix string, expiry time.Duration) *Broker {
	return &Broker{
		client: client,
		keys:   keyspace{prefix: prefix},
		expiry: expiry,
	}
}

// Enqueue records the job as PENDING and appends its envelope to the queue.
// Both writes happen in one MULTI/EXEC so a job is never visible in only one place.
// The PENDING hash has no expiry; the TTL starts with the first state update,
// so a job waiting in a long backlog stays visible to status polling.
func (b *Broker) Enqueue(ctx context.Context, job *domain.Job) error {
	envelope, err := job.Marshal()
	if err != nil {
		return err
	}

	key := b.keys.job(job.ID.String())
	pipe := b.client.TxPipeline()
	pipe.HSet(ctx, key,
		fieldState, string(domain.JobStatePending),
		fieldAttempts, 0,
		fieldSubmittedAt, formatTime(job.SubmittedAt),
	)
	pipe.LPush(ctx, b.keys.queue(), envelope)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("broker: enqueue %s: %w", job.ID, err)
	}
	return nil
}

// Dequeue waits up to timeout for a job and moves it atomically into the
// processing list of workerID. It returns a nil delivery and no error when the
// wait elapsed with an empty queue.
//
// Delivery.Attempts carries the attempts recorded for the job so far, which is
// non-zero when the job is redelivered. It is zero if the state hash is gone.
func (b *Broker) Dequeue(ctx context.Context, workerID string, timeout time.Duration) (*domain.Delivery, error) {
	processing := b.keys.processing(workerID)

	raw, err := b.client.BRPopLPush(ctx, b.keys.queue(), processing, timeout).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("broker: dequeue: %w", err)
	}

	job, err := domain.UnmarshalJob([]byte(raw))
	if err != nil {
		if remErr := b.client.LRem(ctx, processing, 1, raw).Err(); remErr != nil {
			return nil, fmt.Errorf("broker: drop malformed envelope: %w", remErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	d := &domain.Delivery{Job: job, Receipt: raw}

	attempts, err := b.client.HGet(ctx, b.keys.job(job.ID.String()), fieldAttempts).Int()
	switch {
	case err == nil:
		d.Attempts = attempts
	case !errors.Is(err, goredis.Nil):
		b.release(ctx, processing, raw)
		return nil, fmt.Errorf("broker: read attempts of %s: %w", job.ID, err)
	}

	return d, nil
}

// release puts a claimed envelope back at the head of the queue.
func (b *Broker) release(ctx context.Context, processing, raw string) {
	pipe := b.client.TxPipeline()
	pipe.LRem(ctx, processing, 1, raw)
	pipe.RPush(ctx, b.keys.queue(), raw)
	_, _ = pipe.Exec(ctx)
}

// Ack removes a delivery from the processing list of workerID.
func (b *Broker) Ack(ctx context.Context, workerID string, d *domain.Delivery) error {
	if err := b.client.LRem(ctx, b.keys.processing(workerID), 1, d.Receipt).Err(); err != nil {
		return fmt.Errorf("broker: ack %s: %w", d.Job.ID, err)
	}
	return nil
}

// SetState records a state transition for a job and refreshes its expiry.
// started_at is written on the first RUNNING transition and finished_at on
// terminal ones.
func (b *Broker) SetState(ctx context.Context, id uuid.UUID, update domain.StateUpdate) error {
	if !update.State.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidJobState, update.State)
	}

	key := b.keys.job(id.String())
	now := formatTime(time.Now())

	values := []any{
		fieldState, string(update.State),
		fieldError, update.Error,
	}
	if update.Attempt > 0 {
		values = append(values, fieldAttempts, update.Attempt)
	}
	if update.WorkerID != "" {
		values = append(values, fieldWorkerID, update.WorkerID)
	}
	if update.State.IsTerminal() {
		values = append(values, fieldFinishedAt, now)
	}

	pipe := b.client.TxPipeline()
	pipe.HSet(ctx, key, values...)
	if update.State == domain.JobStateRunning {
		pipe.HSetNX(ctx, key, fieldStartedAt, now)
	}
	pipe.Expire(ctx, key, b.expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("broker: set state %s=%s: %w", id, update.State, err)
	}
	return nil
}

// JobStatus returns the live state of a job, or domain.ErrJobNotFound.
func (b *Broker) JobStatus(ctx context.Context, id uuid.UUID) (*domain.JobStatus, error) {
	vals, err := b.client.HGetAll(ctx, b.keys.job(id.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("broker: job status %s: %w", id, err)
	}
	if len(vals) == 0 {
		return nil, domain.ErrJobNotFound
	}

	status := &domain.JobStatus{
		JobID:    id,
		State:    domain.JobState(vals[fieldState]),
		Error:    vals[fieldError],
		WorkerID: vals[fieldWorkerID],
	}
	if v, ok := vals[fieldAttempts]; ok {
		status.Attempts, _ = strconv.Atoi(v)
	}
	if t, ok := parseTime(vals[fieldSubmittedAt]); ok {
		status.SubmittedAt = t
	}
	if t, ok := parseTime(vals[fieldStartedAt]); ok {
		status.StartedAt = &t
	}
	if t, ok := parseTime(vals[fieldFinishedAt]); ok {
		status.FinishedAt = &t
	}
	return status, nil
}

// Ping checks connectivity to Redis.
func (b *Broker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
