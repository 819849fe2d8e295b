package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/hdx-age-api/internal/platform/metrics"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// ResultTTL is how long finished and failed jobs remain queryable
	ResultTTL time.Duration

	// SweepInterval defines how often expired jobs are removed
	// If zero, defaults to 1 minute
	SweepInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:   2,
		QueueSize:     100,
		ResultTTL:     500 * time.Second,
		SweepInterval: time.Minute,
	}
}

// TaskRunner manages background task processing: it records submitted
// jobs, feeds them to the worker pool, tracks their status, and expires
// finished jobs once their retention period has passed.
type TaskRunner struct {
	store      JobStore
	queue      *TaskQueue
	pool       *WorkerPool
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     TaskRunnerConfig
	logger     *slog.Logger
	now        func() time.Time
	stopOnce   sync.Once
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(store JobStore, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.SweepInterval <= 0 {
		config.SweepInterval = time.Minute
	}
	if config.ResultTTL <= 0 {
		config.ResultTTL = DefaultTaskRunnerConfig().ResultTTL
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultTaskRunnerConfig().QueueSize
	}

	logger = logger.With("component", "task_runner")
	ctx, cancel := context.WithCancel(context.Background())

	r := &TaskRunner{
		store:      store,
		queue:      NewTaskQueue(config.QueueSize, logger),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger,
		now:        time.Now,
	}
	r.pool = NewWorkerPool(r.queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, r.processTask, logger)
	return r
}

// Submit records the task as queued and admits it to the queue without
// blocking. It returns the job identifier callers poll with.
func (r *TaskRunner) Submit(ctx context.Context, task Task) (uuid.UUID, error) {
	if err := r.store.SaveJob(ctx, task.ID(), task.Type()); err != nil {
		return uuid.Nil, fmt.Errorf("failed to save job: %w", err)
	}

	if err := r.queue.Enqueue(task); err != nil {
		// The job never made it into the queue, so it must not be visible.
		if delErr := r.store.DeleteJob(ctx, task.ID()); delErr != nil {
			r.logger.Error("failed to remove rejected job", "task_id", task.ID(), "error", delErr)
		}
		reason := "full"
		if errors.Is(err, ErrQueueClosed) {
			reason = "closed"
		}
		metrics.JobsRejectedTotal.WithLabelValues(reason).Inc()
		return uuid.Nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	metrics.JobsSubmittedTotal.WithLabelValues(task.Type()).Inc()
	return task.ID(), nil
}

// Status returns the job's current state, or StatusNotFound.
func (r *TaskRunner) Status(ctx context.Context, id uuid.UUID) Status {
	job, err := r.store.GetJob(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrJobNotFound) {
			r.logger.Error("failed to look up job", "task_id", id, "error", err)
		}
		return StatusNotFound
	}
	return job.Status
}

// Fetch returns a snapshot of the job; ErrJobNotFound for unknown or
// expired identifiers.
func (r *TaskRunner) Fetch(ctx context.Context, id uuid.UUID) (Job, error) {
	return r.store.GetJob(ctx, id)
}

// Start begins processing tasks and the retention sweep
func (r *TaskRunner) Start() error {
	r.pool.Start()

	r.wg.Add(1)
	go r.retentionMonitor()

	r.logger.Info("task runner started",
		"worker_count", r.config.WorkerCount,
		"queue_size", r.config.QueueSize,
		"result_ttl", r.config.ResultTTL)
	return nil
}

// Stop gracefully shuts down the task runner. Admission stops immediately;
// jobs already queued are run to completion before Stop returns.
func (r *TaskRunner) Stop() {
	r.stopOnce.Do(func() {
		r.queue.Close()
		r.logger.Info("draining task queue", "pending", r.queue.Stats().Pending)
		r.pool.Wait()
		r.cancelFunc()
		r.wg.Wait()
		r.logger.Info("task runner stopped")
	})
}

// processTask handles execution of a single task
func (r *TaskRunner) processTask(ctx context.Context, task Task, workerID int) {
	logger := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)
	metrics.QueueLength.Set(float64(r.queue.Len()))

	if err := r.store.UpdateJobStatus(ctx, task.ID(), StatusStarted, nil, ""); err != nil {
		logger.Error("failed to update job status to started", "error", err)
		return
	}

	logger.Info("processing task")
	metrics.RunningJobs.Inc()
	start := r.now()

	result, err := SafeExecute(ctx, task)

	var payload json.RawMessage
	if err == nil {
		payload, err = json.Marshal(result)
		if err != nil {
			err = fmt.Errorf("failed to encode job result: %w", err)
		}
	}

	metrics.RunningJobs.Dec()
	metrics.JobDurationSeconds.WithLabelValues(task.Type()).Observe(r.now().Sub(start).Seconds())

	if err != nil {
		logger.Error("task execution failed", "error", err)
		if updateErr := r.store.UpdateJobStatus(ctx, task.ID(), StatusFailed, nil, err.Error()); updateErr != nil {
			logger.Error("failed to update job status to failed", "error", updateErr)
		}
		metrics.JobsCompletedTotal.WithLabelValues(task.Type(), string(StatusFailed)).Inc()
		return
	}

	logger.Info("task completed successfully")
	if updateErr := r.store.UpdateJobStatus(ctx, task.ID(), StatusFinished, payload, ""); updateErr != nil {
		logger.Error("failed to update job status to finished", "error", updateErr)
	}
	metrics.JobsCompletedTotal.WithLabelValues(task.Type(), string(StatusFinished)).Inc()
}

// SweepExpired removes finished and failed jobs older than the result TTL
func (r *TaskRunner) SweepExpired(ctx context.Context) (int, error) {
	removed, err := r.store.DeleteTerminalBefore(ctx, r.now().Add(-r.config.ResultTTL))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired jobs: %w", err)
	}
	if removed > 0 {
		metrics.JobsExpiredTotal.Add(float64(removed))
		r.logger.Debug("expired finished jobs", "count", removed)
	}
	return removed, nil
}

// retentionMonitor periodically removes jobs whose results have expired
func (r *TaskRunner) retentionMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			if _, err := r.SweepExpired(r.ctx); err != nil {
				r.logger.Error("failed to sweep expired jobs", "error", err)
			}
		}
	}
}
