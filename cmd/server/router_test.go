package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/task-orchestrator/internal/domain"
	"github.com/phrazzld/task-orchestrator/internal/service"
)

type stubJobService struct {
	submitted []map[string]any
}

func (s *stubJobService) Submit(ctx context.Context, payload map[string]any) (*domain.Job, error) {
	s.submitted = append(s.submitted, payload)
	return domain.NewJob(payload), nil
}

func (s *stubJobService) Status(ctx context.Context, id uuid.UUID) (*service.TaskStatus, error) {
	return &service.TaskStatus{
		TaskID:  id,
		State:   domain.JobStatePending,
		Message: service.StatusMessage(domain.JobStatePending),
	}, nil
}

type stubHealth struct{}

func (stubHealth) CheckDatabase(context.Context) error { return nil }

func (stubHealth) CheckBroker(context.Context) (string, error) {
	return "redis://localhost:6379/0", nil
}

func (stubHealth) CheckWorkers(context.Context) ([]string, error) {
	return nil, service.ErrNoWorkers
}

func testRouter(t *testing.T) (http.Handler, *stubJobService) {
	t.Helper()
	jobs := &stubJobService{}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return newRouter(jobs, stubHealth{}, []string{"http://localhost:4173"}, logger), jobs
}

func TestRouter_Routes(t *testing.T) {
	router, _ := testRouter(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/health/db", http.StatusOK},
		{http.MethodGet, "/health/redis", http.StatusOK},
		{http.MethodGet, "/health/workers", http.StatusServiceUnavailable},
		{http.MethodGet, "/example/task/" + uuid.NewString(), http.StatusOK},
		{http.MethodGet, "/example/task/abc", http.StatusNotFound},
		{http.MethodGet, "/example/process-data", http.StatusMethodNotAllowed},
		{http.MethodGet, "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRouter_SubmitAndTrace(t *testing.T) {
	router, jobs := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/example/process-data", bytes.NewBufferString(`{"data":{"x":1}}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
	require.Len(t, jobs.submitted, 1)
	assert.Equal(t, float64(1), jobs.submitted[0]["x"])

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "QUEUED", body["state"])
}

func TestRouter_CORS(t *testing.T) {
	router, _ := testRouter(t)

	t.Run("allowed origin preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/example/process-data", nil)
		req.Header.Set("Origin", "http://localhost:4173")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "http://localhost:4173", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("disallowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}
