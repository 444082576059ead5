package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidJobState is returned when a job state is not one of the known values.
	ErrInvalidJobState = errors.New("invalid job state")

	// ErrInvalidResultStatus is returned when a result status is not SUCCESS or FAILURE.
	ErrInvalidResultStatus = errors.New("invalid result status")
)

// ErrJobNotFound is returned when the broker holds no state for a job, either
// because it was never submitted or because its state expired.
var ErrJobNotFound = errors.New("job not found")
