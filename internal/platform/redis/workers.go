package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RegisterWorker announces workerID with a heartbeat that lapses after ttl.
func (b *Broker) RegisterWorker(ctx context.Context, workerID string, ttl time.Duration) error {
	now := formatTime(time.Now())
	key := b.keys.worker(workerID)

	pipe := b.client.TxPipeline()
	pipe.HSet(ctx, key, "id", workerID, "started_at", now, "last_seen", now)
	pipe.PExpire(ctx, key, ttl)
	pipe.SAdd(ctx, b.keys.workers(), workerID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("broker: register worker %s: %w", workerID, err)
	}
	return nil
}

// Heartbeat extends the liveness of workerID by ttl. A worker whose key
// already lapsed is registered again.
func (b *Broker) Heartbeat(ctx context.Context, workerID string, ttl time.Duration) error {
	key := b.keys.worker(workerID)

	pipe := b.client.TxPipeline()
	pipe.HSet(ctx, key, "id", workerID, "last_seen", formatTime(time.Now()))
	pipe.PExpire(ctx, key, ttl)
	pipe.SAdd(ctx, b.keys.workers(), workerID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("broker: heartbeat %s: %w", workerID, err)
	}
	return nil
}

// DeregisterWorker removes workerID from the registry. Jobs still in its
// processing list are returned to the queue first.
func (b *Broker) DeregisterWorker(ctx context.Context, workerID string) (int, error) {
	requeued, err := b.drainProcessing(ctx, workerID)
	if err != nil {
		return requeued, err
	}

	pipe := b.client.TxPipeline()
	pipe.Del(ctx, b.keys.worker(workerID))
	pipe.SRem(ctx, b.keys.workers(), workerID)
	if _, err := pipe.Exec(ctx); err != nil {
		return requeued, fmt.Errorf("broker: deregister worker %s: %w", workerID, err)
	}
	return requeued, nil
}

// RecoverWorker returns jobs left in the processing list of workerID by an
// earlier process with the same identity to the queue. It must run before
// the worker claims new jobs.
func (b *Broker) RecoverWorker(ctx context.Context, workerID string) (int, error) {
	return b.drainProcessing(ctx, workerID)
}

// ActiveWorkers returns the ids of registered workers whose heartbeat has not lapsed.
func (b *Broker) ActiveWorkers(ctx context.Context) ([]string, error) {
	alive, _, err := b.partitionWorkers(ctx)
	if err != nil {
		return nil, err
	}
	return alive, nil
}

// RequeueOrphaned moves the in-flight jobs of every worker whose heartbeat
// lapsed back onto the queue and forgets those workers. It returns how many
// jobs were requeued.
func (b *Broker) RequeueOrphaned(ctx context.Context) (int, error) {
	_, dead, err := b.partitionWorkers(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, workerID := range dead {
		n, err := b.drainProcessing(ctx, workerID)
		total += n
		if err != nil {
			return total, err
		}
		if err := b.client.SRem(ctx, b.keys.workers(), workerID).Err(); err != nil {
			return total, fmt.Errorf("broker: forget worker %s: %w", workerID, err)
		}
	}
	return total, nil
}

// drainProcessing moves every envelope in the processing list of workerID back
// onto the queue, oldest claim first.
func (b *Broker) drainProcessing(ctx context.Context, workerID string) (int, error) {
	processing := b.keys.processing(workerID)
	n := 0
	for {
		err := b.client.RPopLPush(ctx, processing, b.keys.queue()).Err()
		if errors.Is(err, goredis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("broker: requeue jobs of %s: %w", workerID, err)
		}
		n++
	}
}

func (b *Broker) partitionWorkers(ctx context.Context) (alive, dead []string, err error) {
	ids, err := b.client.SMembers(ctx, b.keys.workers()).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("broker: list workers: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil, nil
	}
	sort.Strings(ids)

	pipe := b.client.Pipeline()
	checks := make([]*goredis.IntCmd, len(ids))
	for i, id := range ids {
		checks[i] = pipe.Exists(ctx, b.keys.worker(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, nil, fmt.Errorf("broker: check workers: %w", err)
	}

	for i, id := range ids {
		if checks[i].Val() > 0 {
			alive = append(alive, id)
		} else {
			dead = append(dead, id)
		}
	}
	return alive, dead, nil
}
