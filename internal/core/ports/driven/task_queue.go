package driven

import (
	"context"

	"github.com/anita-labs/anita-core/internal/core/domain"
)

// TaskQueue hands background index-rebuild tasks to the worker.
type TaskQueue interface {
	// Enqueue adds a task to the queue for processing. Tasks scheduled for
	// the future (retry backoff) are held back until due.
	Enqueue(ctx context.Context, task *domain.Task) error

	// DequeueWithTimeout retrieves the next available task, waiting up to
	// timeout seconds. Returns nil, nil if the timeout elapses with no task.
	// The returned task is marked as processing.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error)

	// Ack acknowledges successful completion of a task.
	Ack(ctx context.Context, taskID string) error

	// Nack indicates task processing failed. The task is rescheduled with
	// backoff, or marked failed once its attempts are exhausted.
	Nack(ctx context.Context, taskID string, reason string) error

	// Ping checks if the queue backend is healthy.
	Ping(ctx context.Context) error

	// Close cleans up resources.
	Close() error
}
