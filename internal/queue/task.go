// Package queue runs page alignment as Redis-backed background jobs.
//
// Producers enqueue a TypeAlign task with an Enqueuer; a Consumer pulls tasks
// from the queue and hands them to a Handler, which aligns the page on the
// shared filesystem. Pages that cannot be decoded are not retried.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TypeAlign is the task type of a page alignment job.
const TypeAlign = "scan:align"

// AlignPayload is the JSON body of a TypeAlign task.
type AlignPayload struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	// Cleanup also writes a cleaned copy of the aligned page.
	Cleanup bool   `json:"cleanup,omitempty"`
	JobID   string `json:"job_id"`
}

// Validate reports missing fields.
func (p AlignPayload) Validate() error {
	if p.Input == "" {
		return fmt.Errorf("input is required")
	}
	if p.Output == "" {
		return fmt.Errorf("output is required")
	}
	return nil
}

// NewAlignTask builds a TypeAlign task. A job ID is generated when p has none.
func NewAlignTask(p AlignPayload) (*asynq.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.JobID == "" {
		p.JobID = uuid.NewString()
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeAlign, data, asynq.TaskID(p.JobID)), nil
}

// parsePayload decodes and validates a task payload.
func parsePayload(t *asynq.Task) (AlignPayload, error) {
	var p AlignPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal job data: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("invalid job data: %w", err)
	}
	return p, nil
}

// Enqueuer submits alignment jobs.
type Enqueuer struct {
	client *asynq.Client
	queue  string
}

// NewEnqueuer connects to the Redis instance at redisURL. Jobs go to queue.
func NewEnqueuer(redisURL, queue string) (*Enqueuer, error) {
	if queue == "" {
		return nil, fmt.Errorf("queue name is required")
	}
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Enqueuer{client: asynq.NewClient(redisOpt), queue: queue}, nil
}

// Enqueue submits one page and returns the stored task.
func (e *Enqueuer) Enqueue(ctx context.Context, p AlignPayload) (*asynq.TaskInfo, error) {
	task, err := NewAlignTask(p)
	if err != nil {
		return nil, err
	}
	info, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(e.queue),
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}
	return info, nil
}

// Close releases the Redis connection.
func (e *Enqueuer) Close() error {
	return e.client.Close()
}
