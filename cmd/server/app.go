package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/task-orchestrator/internal/config"
	"github.com/phrazzld/task-orchestrator/internal/platform/postgres"
	"github.com/phrazzld/task-orchestrator/internal/platform/redis"
	"github.com/phrazzld/task-orchestrator/internal/service"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	db    *sql.DB
	redis *goredis.Client

	jobs   service.JobService
	health *service.HealthService
}

// newApplication connects to the database and broker and wires the services.
// Pending migrations are applied when database.auto_migrate is set.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{config: cfg, logger: logger}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	app.db = db

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db, "up", logger); err != nil {
			app.cleanup()
			return nil, err
		}
	}

	client, err := redis.NewClient(cfg.Redis)
	if err != nil {
		app.cleanup()
		return nil, err
	}
	app.redis = client

	broker := redis.NewBroker(client, cfg.Redis.KeyPrefix, cfg.Results.Expiry)
	results := postgres.NewPostgresResultStore(db)

	app.jobs, err = service.NewJobService(broker, results, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create job service: %w", err)
	}

	app.health = service.NewHealthService(
		service.PingerFunc(func(ctx context.Context) error { return postgres.CheckHealth(ctx, db) }),
		broker,
		broker,
		cfg.Redis.URL,
	)

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run serves the API until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	router := newRouter(app.jobs, app.health, app.config.CORS.AllowedOrigins, app.logger)

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("Error closing redis client", "error", err)
		}
		app.redis = nil
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
		app.db = nil
	}

	app.logger.Info("Application shutdown completed")
}
