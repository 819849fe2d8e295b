package task

import "net/http"

// Status represents the current state of a job
type Status string

// Possible job status values. StatusNotFound is only ever returned by
// lookups and is never stored.
const (
	StatusQueued   Status = "queued"
	StatusStarted  Status = "started"
	StatusFinished Status = "finished"
	StatusFailed   Status = "failed"
	StatusNotFound Status = "job not found"
)

// Code maps a job state to the outcome code pollers receive.
func (s Status) Code() int {
	switch s {
	case StatusQueued, StatusStarted:
		return http.StatusAccepted
	case StatusFinished:
		return http.StatusOK
	case StatusFailed:
		return http.StatusInternalServerError
	case StatusNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// IsTerminal reports whether no further transitions are possible from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFinished, StatusFailed:
		return true
	case StatusQueued, StatusStarted, StatusNotFound:
		return false
	default:
		return false
	}
}

// CanTransition reports whether a job may move from one state to another.
// Jobs only move forward: queued → started → finished|failed. A queued job
// may also fail directly, which happens when it cannot be started.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusQueued:
		return to == StatusStarted || to == StatusFailed
	case StatusStarted:
		return to == StatusFinished || to == StatusFailed
	case StatusFinished, StatusFailed, StatusNotFound:
		return false
	default:
		return false
	}
}
