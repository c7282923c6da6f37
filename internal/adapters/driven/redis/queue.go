package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anita-labs/anita-core/internal/core/domain"
	"github.com/anita-labs/anita-core/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

const (
	// taskQueueKey is the ready list; workers block-pop from it
	taskQueueKey = "anita:tasks"

	// scheduledKey holds delayed tasks scored by their due time
	scheduledKey = "anita:scheduled"

	// taskKeyPrefix prefixes the per-task JSON records
	taskKeyPrefix = "anita:task:"

	// taskTTL bounds how long task records linger after enqueue
	taskTTL = 24 * time.Hour
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// Queue implements TaskQueue with a Redis list plus a sorted set for delayed
// retries. The list carries task IDs; the full task records live under their
// own keys so state updates don't reorder the queue.
type Queue struct {
	client *redis.Client
}

// NewQueue creates a new Redis-backed task queue
func NewQueue(client *redis.Client) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &Queue{client: client}, nil
}

// Enqueue adds a task for processing. Tasks scheduled in the future go to
// the delayed set and are promoted when due.
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, taskKeyPrefix+task.ID, data, taskTTL)
	if task.ScheduledFor.After(time.Now()) {
		pipe.ZAdd(ctx, scheduledKey, redis.Z{
			Score:  float64(task.ScheduledFor.Unix()),
			Member: task.ID,
		})
	} else {
		pipe.LPush(ctx, taskQueueKey, task.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// DequeueWithTimeout blocks up to timeout seconds for a task.
// Returns nil, nil when the wait times out with nothing to process.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	if timeout <= 0 {
		timeout = 1
	}

	if err := q.promoteDue(ctx); err != nil {
		return nil, err
	}

	result, err := q.client.BRPop(ctx, time.Duration(timeout)*time.Second, taskQueueKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}
	// BRPop returns [key, value]
	taskID := result[1]

	task, err := q.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		// Record expired out from under its queue entry; nothing to process.
		return nil, nil
	}

	task.MarkProcessing()
	if err := q.saveTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Ack marks a task as successfully completed
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	task, err := q.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return nil
	}

	task.MarkCompleted()
	return q.saveTask(ctx, task)
}

// Nack reports a failed attempt. Retryable tasks are rescheduled with their
// backoff delay; exhausted tasks are marked failed and kept for inspection
// until their record expires.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	task, err := q.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return nil
	}

	if !task.CanRetry() {
		task.MarkFailed(reason)
		return q.saveTask(ctx, task)
	}

	task.Retry(reason)
	if err := q.saveTask(ctx, task); err != nil {
		return err
	}
	return q.client.ZAdd(ctx, scheduledKey, redis.Z{
		Score:  float64(task.ScheduledFor.Unix()),
		Member: task.ID,
	}).Err()
}

// Ping checks if the Redis backend is healthy
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close releases the underlying client
func (q *Queue) Close() error {
	return q.client.Close()
}

// promoteDue moves scheduled tasks whose time has come onto the ready list
func (q *Queue) promoteDue(ctx context.Context) error {
	now := fmt.Sprintf("%d", time.Now().Unix())
	ids, err := q.client.ZRangeByScore(ctx, scheduledKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to read scheduled tasks: %w", err)
	}

	for _, id := range ids {
		pipe := q.client.Pipeline()
		pipe.ZRem(ctx, scheduledKey, id)
		pipe.LPush(ctx, taskQueueKey, id)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to promote task %s: %w", id, err)
		}
	}
	return nil
}

// getTask loads a task record; nil, nil when it no longer exists
func (q *Queue) getTask(ctx context.Context, taskID string) (*domain.Task, error) {
	data, err := q.client.Get(ctx, taskKeyPrefix+taskID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task %s: %w", taskID, err)
	}

	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task %s: %w", taskID, err)
	}
	return &task, nil
}

func (q *Queue) saveTask(ctx context.Context, task *domain.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	if err := q.client.Set(ctx, taskKeyPrefix+task.ID, data, taskTTL).Err(); err != nil {
		return fmt.Errorf("failed to save task %s: %w", task.ID, err)
	}
	return nil
}
