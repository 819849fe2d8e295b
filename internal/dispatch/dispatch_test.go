package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/hdx-age-api/internal/params"
	"github.com/phrazzld/hdx-age-api/internal/platform/logger"
	"github.com/phrazzld/hdx-age-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSubmitter captures submitted tasks instead of running them.
type recordingSubmitter struct {
	submitted []task.Task
	err       error
}

func (s *recordingSubmitter) Submit(ctx context.Context, t task.Task) (uuid.UUID, error) {
	if s.err != nil {
		return uuid.Nil, s.err
	}
	s.submitted = append(s.submitted, t)
	return t.ID(), nil
}

func newTestDispatcher(runner Submitter) *Dispatcher {
	l, _ := logger.NewTestLogger()
	return New(runner, "http://localhost:5000/v1/", l)
}

func TestSplitSync(t *testing.T) {
	tests := []struct {
		name     string
		params   params.Params
		wantSync bool
	}{
		{"absent", params.Params{"a": params.Int(1)}, false},
		{"true", params.Params{"sync": params.Bool(true)}, true},
		{"false", params.Params{"sync": params.Bool(false)}, false},
		{"one", params.Params{"sync": params.Int(1)}, true},
		{"null", params.Params{"sync": params.Null()}, false},
		{"float", params.Params{"sync": params.Float(1)}, true},
		{"zero float", params.Params{"sync": params.Float(0)}, false},
		{"word", params.Params{"sync": params.String("yes")}, true},
		{"empty", params.Params{"sync": params.String("")}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sync, rest := SplitSync(tc.params)
			assert.Equal(t, tc.wantSync, sync)
			_, ok := rest.Get(SyncParam)
			assert.False(t, ok, "sync must not be forwarded")
		})
	}

	p := params.Params{"sync": params.Bool(true), "a": params.Int(1)}
	_, rest := SplitSync(p)
	assert.Len(t, p, 2, "input is not modified")
	assert.Equal(t, params.Params{"a": params.Int(1)}, rest)
}

func TestDispatch_Sync(t *testing.T) {
	runner := &recordingSubmitter{}
	d := newTestDispatcher(runner)

	var got params.Params
	resp, err := d.Dispatch(context.Background(),
		params.Params{"sync": params.Bool(true), "word": params.String("hi")},
		"count",
		func(ctx context.Context, p params.Params) (any, error) {
			got = p
			return 42, nil
		})

	require.NoError(t, err)
	assert.Equal(t, Result{Result: 42}, resp)
	assert.Equal(t, params.Params{"word": params.String("hi")}, got)
	assert.Empty(t, runner.submitted, "sync work is never queued")
}

func TestDispatch_SyncErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	d := newTestDispatcher(&recordingSubmitter{})

	_, err := d.Dispatch(context.Background(), params.Params{"sync": params.Bool(true)}, "count",
		func(ctx context.Context, p params.Params) (any, error) {
			return nil, boom
		})
	assert.Same(t, boom, err)
}

func TestDispatch_Async(t *testing.T) {
	runner := &recordingSubmitter{}
	d := newTestDispatcher(runner)

	called := false
	resp, err := d.Dispatch(context.Background(), params.Params{"n": params.Int(3)}, "count",
		func(ctx context.Context, p params.Params) (any, error) {
			called = true
			n, _ := p.Get("n")
			return n, nil
		})
	require.NoError(t, err)
	assert.False(t, called, "async work runs on a worker")

	require.Len(t, runner.submitted, 1)
	submitted := runner.submitted[0]
	assert.Equal(t, "count", submitted.Type())

	ticket, ok := resp.(Ticket)
	require.True(t, ok)
	assert.Equal(t, submitted.ID().String(), ticket.JobID)
	assert.Equal(t, task.StatusQueued, ticket.JobStatus)
	assert.Equal(t, "http://localhost:5000/v1/result/"+ticket.JobID+"/", ticket.ResultURL)

	value, err := submitted.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, params.Int(3), value)
}

func TestDispatch_AsyncAdmissionFailure(t *testing.T) {
	d := newTestDispatcher(&recordingSubmitter{err: task.ErrQueueFull})

	_, err := d.Dispatch(context.Background(), nil, "count",
		func(ctx context.Context, p params.Params) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, task.ErrQueueFull)
}

func TestDispatch_AsyncWithRunner(t *testing.T) {
	l, _ := logger.NewTestLogger()
	runner := task.NewTaskRunner(task.NewMemoryJobStore(), task.DefaultTaskRunnerConfig(), l)
	require.NoError(t, runner.Start())
	defer runner.Stop()

	d := New(runner, "http://localhost:5000/v1", l)
	resp, err := d.Dispatch(context.Background(), params.Params{"word": params.String("aab")}, "count",
		func(ctx context.Context, p params.Params) (any, error) {
			return map[string]int{"a": 2, "b": 1}, nil
		})
	require.NoError(t, err)

	id, err := uuid.Parse(resp.(Ticket).JobID)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return runner.Status(context.Background(), id) == task.StatusFinished
	}, 2*time.Second, 5*time.Millisecond)

	job, err := runner.Fetch(context.Background(), id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2,"b":1}`, string(job.Result))
}
