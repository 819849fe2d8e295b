package task

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// TaskProcessor handles a single task taken off the queue
type TaskProcessor func(ctx context.Context, task Task, workerID int)

// WorkerPool manages a pool of worker goroutines that process tasks
// from a task queue until the queue is closed and drained.
type WorkerPool struct {
	// taskQueue provides read access to the tasks to be processed
	taskQueue TaskQueueReader

	// workerCount is the number of concurrent workers to start
	workerCount int

	// process is invoked for every task a worker receives
	process TaskProcessor

	// wg tracks active worker goroutines for clean shutdown
	wg sync.WaitGroup

	// logger for structured logging
	logger *slog.Logger
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start
	// If zero or negative, defaults to 1
	WorkerCount int
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(
	taskQueue TaskQueueReader,
	config WorkerPoolConfig,
	process TaskProcessor,
	logger *slog.Logger,
) *WorkerPool {
	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	return &WorkerPool{
		taskQueue:   taskQueue,
		workerCount: workerCount,
		process:     process,
		logger:      logger,
	}
}

// Start launches the worker goroutines
func (p *WorkerPool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("worker pool started", "worker_count", p.workerCount)
}

// Wait blocks until every worker has exited. Workers exit once the task
// channel is closed and drained.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)
	for task := range p.taskQueue.Tasks() {
		// Jobs are never cancelled once running, so they do not inherit
		// any shutdown context.
		p.process(context.Background(), task, id)
	}
	p.logger.Debug("task channel closed, stopping worker", "worker_id", id)
}

// SafeExecute runs the task, converting a panic into an error so a
// misbehaving task cannot take down its worker.
func SafeExecute(ctx context.Context, task Task) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("task panicked",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"panic", r,
				"stack", string(debug.Stack()))
			result = nil
			err = fmt.Errorf("task panic: %v", r)
		}
	}()

	return task.Execute(ctx)
}
