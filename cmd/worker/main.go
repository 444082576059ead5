// Package main implements the worker process. It claims jobs from the Redis
// queue, executes them with retries and persists their results to PostgreSQL.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/task-orchestrator/internal/config"
	"github.com/phrazzld/task-orchestrator/internal/platform/logger"
	"github.com/phrazzld/task-orchestrator/internal/platform/postgres"
	"github.com/phrazzld/task-orchestrator/internal/platform/redis"
	"github.com/phrazzld/task-orchestrator/internal/task"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("worker exited with error: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(logger.LoggerConfig{Level: cfg.Server.LogLevel})
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	client, err := redis.NewClient(cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	poolConfig := task.WorkerPoolConfigFromConfig(cfg.Worker, hostname)
	l = l.With("worker_id", poolConfig.WorkerID)

	broker := redis.NewBroker(client, cfg.Redis.KeyPrefix, cfg.Results.Expiry)
	executor := task.NewExecutor(
		broker,
		postgres.NewPostgresResultStore(db),
		task.CountItems(cfg.Worker.ProcessingDelay),
		task.RetryPolicyFromConfig(cfg.Worker),
		l.With("component", "executor"),
	)

	pool := task.NewWorkerPool(broker, executor, poolConfig, l.With("component", "worker_pool"))

	if err := pool.Start(ctx); err != nil {
		return err
	}

	l.Info("Worker started",
		"concurrency", poolConfig.Concurrency,
		"max_retries", cfg.Worker.MaxRetries)

	<-ctx.Done()
	l.Info("Shutting down worker...")

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := pool.Stop(stopCtx); err != nil {
		l.Error("worker shutdown incomplete", "error", err)
		return err
	}

	l.Info("Worker shutdown completed")
	return nil
}
