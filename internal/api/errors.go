package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/phrazzld/task-orchestrator/internal/api/shared"
	"github.com/phrazzld/task-orchestrator/internal/domain"
	"github.com/phrazzld/task-orchestrator/internal/service"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, domain.ErrInvalidID):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrQueueUnavailable),
		errors.Is(err, service.ErrBrokerUnavailable),
		errors.Is(err, service.ErrResultStoreUnavailable):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, domain.ErrInvalidID):
		return "Invalid task_id"

	case errors.Is(err, domain.ErrValidation):
		return "Invalid request"

	case errors.Is(err, service.ErrQueueUnavailable):
		return "Task queue unavailable"

	case errors.Is(err, service.ErrBrokerUnavailable):
		return "Task state unavailable"

	case errors.Is(err, service.ErrResultStoreUnavailable):
		return "Task result unavailable"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status code and safe message for err. A non-empty
// message overrides the default one.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), message, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example format: "Key: 'ProcessDataRequest.Data' Error:Field validation for 'Data' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", strings.ToLower(field), getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", strings.ToLower(field))
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	default:
		return "validation failed"
	}
}
