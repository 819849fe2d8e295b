package task

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Func is the unit of work carried by a task. The returned value becomes the
// job's result and must be JSON-serializable.
type Func func(ctx context.Context) (any, error)

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the name of the work being performed
	Type() string

	// Execute runs the task logic and returns its result
	Execute(ctx context.Context) (any, error)
}

// funcTask adapts a Func with bound arguments into a Task.
type funcTask struct {
	id   uuid.UUID
	name string
	fn   Func
}

// NewTask wraps fn in a Task with a freshly minted identifier.
func NewTask(name string, fn Func) Task {
	return &funcTask{
		id:   uuid.New(),
		name: name,
		fn:   fn,
	}
}

func (t *funcTask) ID() uuid.UUID { return t.id }

func (t *funcTask) Type() string { return t.name }

func (t *funcTask) Execute(ctx context.Context) (any, error) {
	return t.fn(ctx)
}

// Job is a point-in-time snapshot of a submitted task.
// Result is set only when Status is StatusFinished and Error only when it is
// StatusFailed.
type Job struct {
	ID        uuid.UUID       `json:"job_id"`
	Type      string          `json:"type"`
	Status    Status          `json:"job_status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	Seq       uint64          `json:"seq"`
	CreatedAt time.Time       `json:"created_at"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at"`
}

// Payload returns the value a poller should see for the job: the decoded
// result when finished, the error message when failed, and nil otherwise.
func (j Job) Payload() any {
	switch j.Status {
	case StatusFinished:
		if len(j.Result) == 0 {
			return nil
		}
		return j.Result
	case StatusFailed:
		return j.Error
	case StatusQueued, StatusStarted, StatusNotFound:
		return nil
	default:
		return nil
	}
}

// TaskQueueReader is the consuming side of a queue.
type TaskQueueReader interface {
	// Tasks returns the channel workers receive from; it is closed once
	// the queue is closed and drained
	Tasks() <-chan Task
}

// JobStore defines the interface for tracking job state
type JobStore interface {
	// SaveJob records a new job in the queued state
	SaveJob(ctx context.Context, id uuid.UUID, jobType string) error

	// UpdateJobStatus moves a job forward in its lifecycle.
	// result is only stored for StatusFinished, errorMsg only for StatusFailed.
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status Status, result json.RawMessage, errorMsg string) error

	// GetJob returns a snapshot of the job or ErrJobNotFound
	GetJob(ctx context.Context, id uuid.UUID) (Job, error)

	// DeleteJob removes a job; deleting an unknown job is not an error
	DeleteJob(ctx context.Context, id uuid.UUID) error

	// DeleteTerminalBefore removes finished and failed jobs that ended
	// before cutoff and returns how many were removed
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error)
}
