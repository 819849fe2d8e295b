package dispatch

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/hdx-age-api/internal/params"
	"github.com/phrazzld/hdx-age-api/internal/task"
)

// SyncParam is the query parameter selecting inline execution.
const SyncParam = "sync"

// Submitter admits tasks for background execution.
type Submitter interface {
	Submit(ctx context.Context, t task.Task) (uuid.UUID, error)
}

// Func is work bound to the request's normalized parameters, minus the sync flag.
type Func func(ctx context.Context, p params.Params) (any, error)

// Result is the response of a synchronous dispatch.
type Result struct {
	Result any `json:"result"`
}

// Ticket is the response of an asynchronous dispatch.
type Ticket struct {
	JobID     string      `json:"job_id"`
	JobStatus task.Status `json:"job_status"`
	ResultURL string      `json:"result_url"`
}

// SplitSync removes the sync flag from p and reports its value. The flag
// defaults to false; p itself is not modified.
func SplitSync(p params.Params) (bool, params.Params) {
	return p.Bool(SyncParam, false), p.Without(SyncParam)
}

// Dispatcher runs work inline or submits it to a task runner.
type Dispatcher struct {
	runner  Submitter
	baseURL string
	logger  *slog.Logger
}

// New creates a Dispatcher. baseURL is the externally reachable API root,
// including the route prefix, used to build result URLs.
func New(runner Submitter, baseURL string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		runner:  runner,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With("component", "dispatcher"),
	}
}

// ResultURL returns the polling URL for a job.
func (d *Dispatcher) ResultURL(id uuid.UUID) string {
	return d.baseURL + "/result/" + id.String() + "/"
}

// Dispatch splits the sync flag off p and binds the remaining parameters
// to fn. When sync is set fn runs inline and its value is wrapped in a
// Result; errors from fn are returned unchanged. Otherwise fn is submitted
// as a job named name and a queued Ticket is returned; admission errors
// are returned as-is.
func (d *Dispatcher) Dispatch(ctx context.Context, p params.Params, name string, fn Func) (any, error) {
	sync, rest := SplitSync(p)
	bound := func(ctx context.Context) (any, error) {
		return fn(ctx, rest)
	}

	if sync {
		value, err := bound(ctx)
		if err != nil {
			return nil, err
		}
		return Result{Result: value}, nil
	}

	id, err := d.runner.Submit(ctx, task.NewTask(name, bound))
	if err != nil {
		return nil, err
	}

	d.logger.Debug("job dispatched", "job_id", id, "job_type", name)
	return Ticket{
		JobID:     id.String(),
		JobStatus: task.StatusQueued,
		ResultURL: d.ResultURL(id),
	}, nil
}
