package shared

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/task-orchestrator/internal/platform/logger"
)

func TestRespondWithJSON(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		data         any
		expectedBody string
	}{
		{
			name:         "successful response",
			status:       http.StatusOK,
			data:         map[string]any{"message": "success", "data": 123},
			expectedBody: `{"message":"success","data":123}`,
		},
		{
			name:         "nil response",
			status:       http.StatusOK,
			data:         nil,
			expectedBody: `null`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			w := httptest.NewRecorder()

			RespondWithJSON(w, req, tc.status, tc.data)

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tc.expectedBody, w.Body.String())
		})
	}
}

func TestRespondWithError_IncludesTraceID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/example/task/x", nil)
	req = req.WithContext(WithTraceID(req.Context(), "trace-123"))
	w := httptest.NewRecorder()

	RespondWithError(w, req, http.StatusNotFound, "Invalid task_id")

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Invalid task_id", body.Error)
	assert.Equal(t, "trace-123", body.TraceID)
}

func TestRespondWithErrorAndLog_RedactsDetail(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	req := httptest.NewRequest(http.MethodPost, "/example/process-data", nil)
	req = req.WithContext(logger.WithLogger(req.Context(), log))
	w := httptest.NewRecorder()

	cause := errors.New("dial redis://:hunter2@cache:6379 failed")
	RespondWithErrorAndLog(w, req, http.StatusServiceUnavailable, "Task queue unavailable", cause)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")
	assert.NotContains(t, w.Body.String(), "dial")

	logged := buf.String()
	assert.Contains(t, logged, `"level":"ERROR"`)
	assert.Contains(t, logged, "[REDACTED_CREDENTIAL]")
	assert.NotContains(t, logged, "hunter2")
}
