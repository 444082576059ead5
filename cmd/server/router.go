package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/phrazzld/task-orchestrator/internal/api"
	apiMiddleware "github.com/phrazzld/task-orchestrator/internal/api/middleware"
	"github.com/phrazzld/task-orchestrator/internal/api/shared"
	"github.com/phrazzld/task-orchestrator/internal/service"
)

// newRouter creates the application router with all routes and middleware.
func newRouter(
	jobs service.JobService,
	health api.HealthChecker,
	allowedOrigins []string,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.Trace(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodOptions, http.MethodHead,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{shared.TraceIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	jobHandler := api.NewJobHandler(jobs)
	healthHandler := api.NewHealthHandler(health)

	r.Get("/", healthHandler.Root)

	r.Route("/example", func(r chi.Router) {
		r.Post("/process-data", jobHandler.ProcessData)
		r.Get("/task/{task_id}", jobHandler.GetTaskStatus)
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Health)
		r.Get("/db", healthHandler.Database)
		r.Get("/redis", healthHandler.Redis)
		r.Get("/workers", healthHandler.Workers)
	})

	return r
}
