package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/task-orchestrator/internal/domain"
	"github.com/phrazzld/task-orchestrator/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func noJitterPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Minute}
}

// sleepRecorder replaces the executor's wait and records requested delays.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return s.err
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func deliver(job *domain.Job) *domain.Delivery {
	return &domain.Delivery{Job: job, Receipt: job.ID.String()}
}

func newTestExecutor(broker *MockBroker, results *MockResultStore, process ProcessFunc) (*Executor, *sleepRecorder) {
	rec := &sleepRecorder{}
	e := NewExecutor(broker, results, process, noJitterPolicy(), testLogger())
	e.sleep = rec.sleep
	return e, rec
}

func TestExecutor_Success(t *testing.T) {
	t.Parallel()

	broker := NewMockBroker()
	results := NewMockResultStore()
	e, rec := newTestExecutor(broker, results, CountItems(0))
	job := domain.NewJob(map[string]any{"a": 1, "b": 2})

	err := e.Execute(context.Background(), "w1", deliver(job))

	require.NoError(t, err)
	assert.Equal(t, []domain.JobState{domain.JobStateRunning, domain.JobStateSuccess}, broker.States(job.ID))
	assert.Empty(t, rec.Delays())

	record, err := results.GetResult(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultStatusSuccess, record.Status)
	assert.Equal(t, 2, record.ProcessedItems)
	assert.Equal(t, "Processed 2 items", record.ResultMessage)
	assert.Equal(t, job.Payload, record.InputData)

	updates := broker.Updates(job.ID)
	assert.Equal(t, 1, updates[0].Attempt)
	assert.Equal(t, "w1", updates[0].WorkerID)
}

func TestExecutor_EmptyPayload(t *testing.T) {
	t.Parallel()

	results := NewMockResultStore()
	e, _ := newTestExecutor(NewMockBroker(), results, CountItems(0))
	job := domain.NewJob(map[string]any{})

	require.NoError(t, e.Execute(context.Background(), "w1", deliver(job)))

	record, err := results.GetResult(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, record.ProcessedItems)
	assert.Equal(t, "Processed 0 items", record.ResultMessage)
}

func TestExecutor_RedeliveryIsIdempotent(t *testing.T) {
	t.Parallel()

	broker := NewMockBroker()
	results := NewMockResultStore()
	e, _ := newTestExecutor(broker, results, CountItems(0))
	job := domain.NewJob(map[string]any{"a": 1})

	require.NoError(t, e.Execute(context.Background(), "w1", deliver(job)))
	require.NoError(t, e.Execute(context.Background(), "w2", deliver(job)))

	assert.Equal(t, 1, results.Count())
	assert.Equal(t, 2, results.SaveCalls())
	assert.Equal(t, []domain.JobState{
		domain.JobStateRunning, domain.JobStateSuccess,
		domain.JobStateRunning, domain.JobStateSuccess,
	}, broker.States(job.ID))
}

func TestExecutor_ConcurrentDeliveriesWriteOneRecord(t *testing.T) {
	t.Parallel()

	results := NewMockResultStore()
	e, _ := newTestExecutor(NewMockBroker(), results, CountItems(0))
	job := domain.NewJob(map[string]any{"a": 1, "b": 2})

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- e.Execute(context.Background(), "w1", deliver(job))
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, results.Count())
}

func TestExecutor_RetriesTransientStoreFailure(t *testing.T) {
	t.Parallel()

	broker := NewMockBroker()
	results := NewMockResultStore()
	save := results.SaveFn
	failures := 2
	results.SaveFn = func(ctx context.Context, record *domain.ResultRecord) error {
		if failures > 0 {
			failures--
			return errors.New("connection refused")
		}
		return save(ctx, record)
	}
	e, rec := newTestExecutor(broker, results, CountItems(0))
	job := domain.NewJob(map[string]any{"a": 1})

	err := e.Execute(context.Background(), "w1", deliver(job))

	require.NoError(t, err)
	assert.Equal(t, []domain.JobState{
		domain.JobStateRunning, domain.JobStateRetry,
		domain.JobStateRunning, domain.JobStateRetry,
		domain.JobStateRunning, domain.JobStateSuccess,
	}, broker.States(job.ID))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.Delays())
	assert.Equal(t, 1, results.Count())

	updates := broker.Updates(job.ID)
	assert.Contains(t, updates[1].Error, "connection refused")
	assert.Equal(t, 3, updates[4].Attempt)
	assert.Empty(t, updates[5].Error)
}

func TestExecutor_FailsAfterMaxRetries(t *testing.T) {
	t.Parallel()

	broker := NewMockBroker()
	results := NewMockResultStore()
	results.SaveFn = func(ctx context.Context, record *domain.ResultRecord) error {
		return errors.New("database is down")
	}
	e, rec := newTestExecutor(broker, results, CountItems(0))
	job := domain.NewJob(map[string]any{"a": 1})

	err := e.Execute(context.Background(), "w1", deliver(job))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 4, results.SaveCalls())
	assert.Equal(t, 0, results.Count())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, rec.Delays())

	states := broker.States(job.ID)
	require.Len(t, states, 8)
	assert.Equal(t, domain.JobStateFailure, states[len(states)-1])

	updates := broker.Updates(job.ID)
	assert.Contains(t, updates[len(updates)-1].Error, "database is down")
}

func TestExecutor_ProcessingErrorIsRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	process := func(ctx context.Context, payload map[string]any) (ProcessResult, error) {
		calls++
		if calls == 1 {
			return ProcessResult{}, errors.New("boom")
		}
		return CountItems(0)(ctx, payload)
	}
	broker := NewMockBroker()
	results := NewMockResultStore()
	e, _ := newTestExecutor(broker, results, process)
	job := domain.NewJob(map[string]any{"a": 1})

	require.NoError(t, e.Execute(context.Background(), "w1", deliver(job)))

	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, results.Count())
}

func TestExecutor_NoRetriesConfigured(t *testing.T) {
	t.Parallel()

	broker := NewMockBroker()
	results := NewMockResultStore()
	results.SaveFn = func(ctx context.Context, record *domain.ResultRecord) error {
		return errors.New("nope")
	}
	e := NewExecutor(broker, results, CountItems(0), RetryPolicy{MaxRetries: 0, BaseDelay: time.Second}, testLogger())
	job := domain.NewJob(nil)

	err := e.Execute(context.Background(), "w1", deliver(job))

	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, []domain.JobState{domain.JobStateRunning, domain.JobStateFailure}, broker.States(job.ID))
}

func TestExecutor_InterruptedDuringRetryWait(t *testing.T) {
	t.Parallel()

	broker := NewMockBroker()
	results := NewMockResultStore()
	results.SaveFn = func(ctx context.Context, record *domain.ResultRecord) error {
		return errors.New("temporarily unavailable")
	}
	e, rec := newTestExecutor(broker, results, CountItems(0))
	rec.err = context.Canceled
	job := domain.NewJob(nil)

	err := e.Execute(context.Background(), "w1", deliver(job))

	assert.ErrorIs(t, err, ErrInterrupted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []domain.JobState{domain.JobStateRunning, domain.JobStateRetry}, broker.States(job.ID))
}

func TestExecutor_AttemptIgnoresCancellation(t *testing.T) {
	t.Parallel()

	results := NewMockResultStore()
	e, _ := newTestExecutor(NewMockBroker(), results, CountItems(10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job := domain.NewJob(map[string]any{"a": 1})

	require.NoError(t, e.Execute(ctx, "w1", deliver(job)))
	assert.Equal(t, 1, results.Count())
}

func TestExecutor_StateWriteFailureDoesNotFailJob(t *testing.T) {
	t.Parallel()

	broker := NewMockBroker()
	broker.SetStateFn = func(ctx context.Context, id uuid.UUID, update domain.StateUpdate) error {
		return errors.New("redis unavailable")
	}
	results := NewMockResultStore()
	e, _ := newTestExecutor(broker, results, CountItems(0))
	job := domain.NewJob(map[string]any{"a": 1})

	require.NoError(t, e.Execute(context.Background(), "w1", deliver(job)))
	assert.Equal(t, 1, results.Count())
}

func TestExecutor_PreexistingRecordCountsAsSuccess(t *testing.T) {
	t.Parallel()

	broker := NewMockBroker()
	results := NewMockResultStore()
	results.SaveFn = func(ctx context.Context, record *domain.ResultRecord) error {
		return store.ErrResultExists
	}
	e, rec := newTestExecutor(broker, results, CountItems(0))
	job := domain.NewJob(map[string]any{"a": 1})

	require.NoError(t, e.Execute(context.Background(), "w1", deliver(job)))
	assert.Empty(t, rec.Delays())
	assert.Equal(t, []domain.JobState{domain.JobStateRunning, domain.JobStateSuccess}, broker.States(job.ID))
}

func TestExecutor_RedeliveryContinuesAttemptCount(t *testing.T) {
	t.Parallel()

	broker := NewMockBroker()
	results := NewMockResultStore()
	calls := 0
	e, rec := newTestExecutor(broker, results, func(ctx context.Context, payload map[string]any) (ProcessResult, error) {
		calls++
		return ProcessResult{}, errors.New("still broken")
	})
	job := domain.NewJob(map[string]any{"a": 1})

	err := e.Execute(context.Background(), "w2", &domain.Delivery{Job: job, Receipt: "r", Attempts: 3})

	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Contains(t, err.Error(), "after 4 attempts")
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.Delays())

	updates := broker.Updates(job.ID)
	require.Len(t, updates, 2)
	assert.Equal(t, domain.JobStateRunning, updates[0].State)
	assert.Equal(t, 4, updates[0].Attempt)
	assert.Equal(t, domain.JobStateFailure, updates[1].State)
}

func TestExecutor_RedeliveryRetriesFromStoredAttempt(t *testing.T) {
	t.Parallel()

	broker := NewMockBroker()
	e, rec := newTestExecutor(broker, NewMockResultStore(), func(ctx context.Context, payload map[string]any) (ProcessResult, error) {
		return ProcessResult{}, errors.New("still broken")
	})
	job := domain.NewJob(nil)

	err := e.Execute(context.Background(), "w2", &domain.Delivery{Job: job, Receipt: "r", Attempts: 2})

	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, []time.Duration{4 * time.Second}, rec.Delays())

	var attempts []int
	for _, u := range broker.Updates(job.ID) {
		if u.State == domain.JobStateRunning {
			attempts = append(attempts, u.Attempt)
		}
	}
	assert.Equal(t, []int{3, 4}, attempts)
}

func TestExecutor_RedeliveryWithNoAttemptsLeft(t *testing.T) {
	t.Parallel()

	t.Run("result already written", func(t *testing.T) {
		broker := NewMockBroker()
		results := NewMockResultStore()
		job := domain.NewJob(map[string]any{"a": 1})
		record, err := domain.NewSuccessRecord(job.ID, job.Payload, 1, "Processed 1 items")
		require.NoError(t, err)
		require.NoError(t, results.SaveResult(context.Background(), record))

		e, _ := newTestExecutor(broker, results, func(ctx context.Context, payload map[string]any) (ProcessResult, error) {
			t.Fatal("processing must not run when no attempts are left")
			return ProcessResult{}, nil
		})

		err = e.Execute(context.Background(), "w2", &domain.Delivery{Job: job, Receipt: "r", Attempts: 4})

		require.NoError(t, err)
		assert.Equal(t, []domain.JobState{domain.JobStateSuccess}, broker.States(job.ID))
	})

	t.Run("no result", func(t *testing.T) {
		broker := NewMockBroker()
		job := domain.NewJob(nil)
		e, _ := newTestExecutor(broker, NewMockResultStore(), func(ctx context.Context, payload map[string]any) (ProcessResult, error) {
			t.Fatal("processing must not run when no attempts are left")
			return ProcessResult{}, nil
		})

		err := e.Execute(context.Background(), "w2", &domain.Delivery{Job: job, Receipt: "r", Attempts: 4})

		require.ErrorIs(t, err, ErrRetriesExhausted)
		assert.Equal(t, []domain.JobState{domain.JobStateFailure}, broker.States(job.ID))
	})
}
