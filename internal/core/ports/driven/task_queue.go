package driven

import (
	"context"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

// TaskQueue handles background task queuing and processing.
// Implementations can use Redis (preferred) or Postgres (fallback).
type TaskQueue interface {
	// Enqueue adds a task to the queue for processing.
	// The task will be picked up by a worker based on priority and scheduled time.
	Enqueue(ctx context.Context, task *domain.Task) error

	// DequeueWithTimeout retrieves the next available task, waiting up to timeout seconds.
	// The task is marked as processing and will not be returned to other workers.
	// Returns nil, nil if timeout is reached with no tasks available.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error)

	// Ack acknowledges completion of a task. The task is never redelivered.
	Ack(ctx context.Context, taskID string) error

	// Nack returns the task to the queue with backoff.
	// If max attempts are exhausted the task is moved to failed state.
	Nack(ctx context.Context, taskID string, reason string) error

	// GetTask retrieves a task by ID. Returns nil, nil when unknown.
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	// Stats returns queue depth figures.
	Stats(ctx context.Context) (*QueueStats, error)

	// Ping checks if the queue backend is healthy.
	Ping(ctx context.Context) error

	// Close cleans up resources.
	Close() error
}

// QueueStats contains queue statistics
type QueueStats struct {
	// PendingCount is the number of tasks waiting to be processed (including delayed)
	PendingCount int64 `json:"pending_count"`

	// ProcessingCount is the number of tasks currently claimed by a worker
	ProcessingCount int64 `json:"processing_count"`

	// FailedCount is the number of tasks that exhausted their attempts
	FailedCount int64 `json:"failed_count"`
}
