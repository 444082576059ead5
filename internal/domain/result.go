package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ResultStatus is the outcome recorded for a processed job.
type ResultStatus string

// Possible result status values
const (
	ResultStatusSuccess ResultStatus = "SUCCESS"
	ResultStatusFailure ResultStatus = "FAILURE"
)

// Validation errors for ResultRecord
var (
	ErrEmptyResultTaskID  = errors.New("result task ID cannot be empty")
	ErrEmptyResultMessage = errors.New("result message cannot be empty")
	ErrNegativeItemCount  = errors.New("processed items cannot be negative")
)

// ResultRecord is the durable outcome of executing a job. There is at most
// one record per job and it is never updated once written.
type ResultRecord struct {
	ID             int64          `json:"id"`
	TaskID         uuid.UUID      `json:"task_id"`
	Status         ResultStatus   `json:"status"`
	InputData      map[string]any `json:"input_data"`
	ProcessedItems int            `json:"processed_items"`
	ResultMessage  string         `json:"result_message"`
	CreatedAt      time.Time      `json:"created_at"`
}

// NewSuccessRecord builds the record written after a job was processed.
func NewSuccessRecord(taskID uuid.UUID, input map[string]any, processedItems int, message string) (*ResultRecord, error) {
	if input == nil {
		input = map[string]any{}
	}
	r := &ResultRecord{
		TaskID:         taskID,
		Status:         ResultStatusSuccess,
		InputData:      input,
		ProcessedItems: processedItems,
		ResultMessage:  message,
		CreatedAt:      time.Now().UTC(),
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks if the ResultRecord has valid data.
func (r *ResultRecord) Validate() error {
	if r.TaskID == uuid.Nil {
		return ErrEmptyResultTaskID
	}
	if r.Status != ResultStatusSuccess && r.Status != ResultStatusFailure {
		return fmt.Errorf("%w: %q", ErrInvalidResultStatus, r.Status)
	}
	if r.ProcessedItems < 0 {
		return ErrNegativeItemCount
	}
	if r.ResultMessage == "" {
		return ErrEmptyResultMessage
	}
	return nil
}
