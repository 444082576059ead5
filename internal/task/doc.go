// Package task executes queued jobs. It provides the executor that runs a job
// with retries and persists its result, and the worker pool that claims jobs
// from the broker, keeps the worker's heartbeat alive and redelivers jobs
// abandoned by dead workers.
package task
