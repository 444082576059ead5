package task

import (
	"context"
	"fmt"
	"time"
)

// ProcessResult is what a processing function reports for a payload.
type ProcessResult struct {
	ProcessedItems int
	Message        string
}

// ProcessFunc performs the work of a job.
type ProcessFunc func(ctx context.Context, payload map[string]any) (ProcessResult, error)

// CountItems returns a ProcessFunc that waits for delay and then counts the
// top-level keys of the payload.
func CountItems(delay time.Duration) ProcessFunc {
	return func(ctx context.Context, payload map[string]any) (ProcessResult, error) {
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ProcessResult{}, ctx.Err()
			case <-timer.C:
			}
		}

		n := len(payload)
		return ProcessResult{
			ProcessedItems: n,
			Message:        fmt.Sprintf("Processed %d items", n),
		}, nil
	}
}
