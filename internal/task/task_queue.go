package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/hdx-age-api/internal/platform/metrics"
)

// Admission errors returned by TaskQueue.Enqueue.
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// QueueStats is a point-in-time view of a TaskQueue.
type QueueStats struct {
	Pending  int
	Capacity int
	Closed   bool
}

// TaskQueue is a bounded FIFO of tasks. Admission never blocks: a full
// queue rejects the task so the HTTP layer can answer 503 immediately.
type TaskQueue struct {
	// mu is held for reading while sending and for writing while closing,
	// so a send never hits a closed channel.
	mu     sync.RWMutex
	closed bool
	tasks  chan Task
	logger *slog.Logger
}

// NewTaskQueue creates a queue holding at most size tasks. Sizes below
// one are raised to one.
func NewTaskQueue(size int, logger *slog.Logger) *TaskQueue {
	if size < 1 {
		size = 1
	}
	return &TaskQueue{
		tasks:  make(chan Task, size),
		logger: logger,
	}
}

// Enqueue admits task or fails with ErrQueueFull or ErrQueueClosed.
func (q *TaskQueue) Enqueue(task Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- task:
	default:
		q.logger.Warn("task rejected", "task_id", task.ID(), "task_type", task.Type(), "capacity", cap(q.tasks))
		return fmt.Errorf("%w: %d jobs pending", ErrQueueFull, cap(q.tasks))
	}

	pending := len(q.tasks)
	metrics.QueueLength.Set(float64(pending))
	q.logger.Debug("task enqueued", "task_id", task.ID(), "task_type", task.Type(), "pending", pending)
	return nil
}

// Close stops admission. Tasks already buffered stay readable from Tasks
// until drained. Close is idempotent.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.tasks)
}

// Len returns the number of tasks waiting for a worker.
func (q *TaskQueue) Len() int {
	return len(q.tasks)
}

// Stats reports the queue's occupancy.
func (q *TaskQueue) Stats() QueueStats {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return QueueStats{Pending: len(q.tasks), Capacity: cap(q.tasks), Closed: q.closed}
}

// Tasks returns the channel workers consume from.
func (q *TaskQueue) Tasks() <-chan Task {
	return q.tasks
}
