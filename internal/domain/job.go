package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobState is the live execution state of a job as tracked by the broker.
type JobState string

// Possible job states
const (
	JobStatePending JobState = "PENDING"
	JobStateRunning JobState = "RUNNING"
	JobStateRetry   JobState = "RETRY"
	JobStateSuccess JobState = "SUCCESS"
	JobStateFailure JobState = "FAILURE"
)

// JobStateQueued is reported to the submitter only. It is never stored.
const JobStateQueued JobState = "QUEUED"

// IsTerminal reports whether no further transitions are possible.
func (s JobState) IsTerminal() bool {
	return s == JobStateSuccess || s == JobStateFailure
}

// Valid reports whether s is a state the broker can hold.
func (s JobState) Valid() bool {
	switch s {
	case JobStatePending, JobStateRunning, JobStateRetry, JobStateSuccess, JobStateFailure:
		return true
	}
	return false
}

// Job is a unit of work submitted for asynchronous execution.
// A Job is immutable once created.
type Job struct {
	ID          uuid.UUID      `json:"id"`
	Payload     map[string]any `json:"payload"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// NewJob creates a Job with a freshly generated identifier.
// A nil payload is normalised to an empty one.
func NewJob(payload map[string]any) *Job {
	if payload == nil {
		payload = map[string]any{}
	}
	return &Job{
		ID:          uuid.New(),
		Payload:     payload,
		SubmittedAt: time.Now().UTC(),
	}
}

// Marshal encodes the job into the envelope format placed on the queue.
func (j *Job) Marshal() ([]byte, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("marshal job %s: %w", j.ID, err)
	}
	return data, nil
}

// UnmarshalJob decodes a queue envelope produced by Job.Marshal.
func UnmarshalJob(data []byte) (*Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	if j.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: job envelope has no id", ErrInvalidID)
	}
	if j.Payload == nil {
		j.Payload = map[string]any{}
	}
	return &j, nil
}

// JobStatus is the broker's live view of a job.
type JobStatus struct {
	JobID       uuid.UUID
	State       JobState
	Error       string
	Attempts    int
	WorkerID    string
	SubmittedAt time.Time
	StartedAt   *time.Time
	FinishedAt  *time.Time
}

// StateUpdate describes a transition recorded on the broker for a job.
// Zero-valued fields other than State and Error leave the stored value unchanged.
type StateUpdate struct {
	State    JobState
	Attempt  int
	WorkerID string
	// Error replaces the stored error text. An empty string clears it.
	Error string
}

// Delivery is a job claimed from the queue by a worker. Receipt identifies the
// claim and must be passed back to the broker when acknowledging it.
type Delivery struct {
	Job     *Job
	Receipt string
	// Attempts is the number of attempts already started for the job by
	// earlier deliveries.
	Attempts int
}
