package task

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Errors returned by JobStore implementations
var (
	ErrJobNotFound       = errors.New("job not found")
	ErrJobExists         = errors.New("job already exists")
	ErrInvalidTransition = errors.New("invalid job status transition")
)

// MemoryJobStore keeps job records in process memory.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
	seq  uint64
	now  func() time.Time
}

// NewMemoryJobStore creates an empty in-memory job store
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[uuid.UUID]*Job),
		now:  time.Now,
	}
}

// SaveJob records a new job in the queued state
func (s *MemoryJobStore) SaveJob(ctx context.Context, id uuid.UUID, jobType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; ok {
		return fmt.Errorf("%w: %s", ErrJobExists, id)
	}

	s.seq++
	s.jobs[id] = &Job{
		ID:        id,
		Type:      jobType,
		Status:    StatusQueued,
		Seq:       s.seq,
		CreatedAt: s.now(),
	}
	return nil
}

// UpdateJobStatus moves a job forward in its lifecycle
func (s *MemoryJobStore) UpdateJobStatus(
	ctx context.Context,
	id uuid.UUID,
	status Status,
	result json.RawMessage,
	errorMsg string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	if !CanTransition(job.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, status)
	}

	now := s.now()
	job.Status = status
	switch status {
	case StatusStarted:
		job.StartedAt = now
	case StatusFinished:
		job.Result = bytes.Clone(result)
		job.EndedAt = now
	case StatusFailed:
		job.Error = errorMsg
		job.EndedAt = now
	case StatusQueued, StatusNotFound:
		// unreachable: CanTransition never allows these targets
	}
	return nil
}

// GetJob returns a snapshot of the job
func (s *MemoryJobStore) GetJob(ctx context.Context, id uuid.UUID) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	snapshot := *job
	snapshot.Result = bytes.Clone(job.Result)
	return snapshot, nil
}

// DeleteJob removes a job if present
func (s *MemoryJobStore) DeleteJob(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

// DeleteTerminalBefore removes finished and failed jobs that ended before cutoff
func (s *MemoryJobStore) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, job := range s.jobs {
		if job.Status.IsTerminal() && job.EndedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of jobs currently tracked
func (s *MemoryJobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
