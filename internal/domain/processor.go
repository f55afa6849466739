package domain

import "context"

// JobBatchProcessor applies an operation to many jobs while preserving order.
// The order of results matches the order of input ids.
type JobBatchProcessor interface {
	Process(ctx context.Context, jobIDs []string, fn func(ctx context.Context, jobID string) (*Job, error)) []*BatchResult
}

// BatchResult is the outcome for one id of a batch operation
type BatchResult struct {
	JobID  string      `json:"job_id"`
	Status BatchStatus `json:"status"`
	Job    *Job        `json:"job,omitempty"`
	Error  string      `json:"error,omitempty"`
	Err    error       `json:"-"`
}

// BatchStatus represents the status of one batch item
type BatchStatus string

const (
	BatchStatusSuccess BatchStatus = "success"
	BatchStatusFailed  BatchStatus = "failed"
	BatchStatusSkipped BatchStatus = "skipped"
)
