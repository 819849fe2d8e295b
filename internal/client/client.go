package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phrazzld/hdx-age-api/internal/api"
	"github.com/phrazzld/hdx-age-api/internal/api/shared"
	"github.com/phrazzld/hdx-age-api/internal/dispatch"
	"github.com/phrazzld/hdx-age-api/internal/task"
)

// DefaultPollInterval is used by WaitForResult when no interval is given.
const DefaultPollInterval = time.Second

// APIError is returned for responses carrying the API error envelope.
type APIError struct {
	StatusCode int
	Message    string
	TraceID    string
}

func (e *APIError) Error() string {
	if e.TraceID != "" {
		return fmt.Sprintf("api error %d: %s (trace %s)", e.StatusCode, e.Message, e.TraceID)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Dispatched is the outcome of an endpoint that runs either inline or as a
// queued job. Exactly one of Ticket and Result is set.
type Dispatched struct {
	Ticket *dispatch.Ticket
	Result json.RawMessage
}

// Queued reports whether the request was turned into a background job.
func (d *Dispatched) Queued() bool {
	return d.Ticket != nil
}

// Client talks to one API base URL, including its prefix.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for baseURL such as "http://localhost:5000/v1".
// A nil httpClient gets a 30 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Status fetches the service status. An empty remote keeps the configured
// CKAN instance.
func (c *Client) Status(ctx context.Context, remote string) (*api.StatusResponse, error) {
	q := url.Values{}
	if remote != "" {
		q.Set("remote", remote)
	}

	var out api.StatusResponse
	if err := c.getJSON(ctx, "/status/", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Lorem returns a placeholder sentence.
func (c *Client) Lorem(ctx context.Context) (string, error) {
	var out struct {
		Result string `json:"result"`
	}
	if err := c.getJSON(ctx, "/lorem/", nil, &out); err != nil {
		return "", err
	}
	return out.Result, nil
}

// Test counts the letters of word.
func (c *Client) Test(ctx context.Context, word string, sync bool) (*Dispatched, error) {
	path := "/test/"
	if word != "" {
		path += url.PathEscape(word) + "/"
	}
	return c.dispatched(ctx, path, syncQuery(nil, sync))
}

// Update refreshes dataset ages. An empty pid updates every dataset; opts
// carries chunk_size, row_limit, mock, timeout and ttl overrides.
func (c *Client) Update(ctx context.Context, pid string, sync bool, opts url.Values) (*Dispatched, error) {
	path := "/update/"
	if pid != "" {
		path += url.PathEscape(pid) + "/"
	}
	return c.dispatched(ctx, path, syncQuery(opts, sync))
}

// Result fetches the state of a job. Unknown jobs are reported with the
// "job not found" status rather than an error.
func (c *Client) Result(ctx context.Context, jobID string) (*api.ResultResponse, error) {
	status, body, err := c.get(ctx, "/result/"+url.PathEscape(jobID)+"/", nil)
	if err != nil {
		return nil, err
	}

	var out api.ResultResponse
	if err := json.Unmarshal(body, &out); err != nil || out.JobStatus == "" {
		return nil, decodeError(status, body)
	}
	return &out, nil
}

// WaitForResult polls a job until it leaves the queued and started states
// or ctx is done. On timeout the last snapshot seen is returned with the
// error.
func (c *Client) WaitForResult(ctx context.Context, jobID string, interval time.Duration) (*api.ResultResponse, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *api.ResultResponse
	for {
		res, err := c.Result(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return last, fmt.Errorf("waiting for job %s: %w", jobID, ctx.Err())
			}
			return last, err
		}
		if res.JobStatus != task.StatusQueued && res.JobStatus != task.StatusStarted {
			return res, nil
		}
		last = res

		select {
		case <-ctx.Done():
			return last, fmt.Errorf("waiting for job %s: %w", jobID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Double returns twice num as decoded JSON.
func (c *Client) Double(ctx context.Context, num string) (json.Number, error) {
	var out struct {
		Result json.Number `json:"result"`
	}
	if err := c.getJSON(ctx, "/double/"+url.PathEscape(num)+"/", nil, &out); err != nil {
		return "", err
	}
	return out.Result, nil
}

// Delete evicts the cached response for path, given relative to the base
// URL, e.g. "status/?remote=x".
func (c *Client) Delete(ctx context.Context, path string) (string, error) {
	path, rawQuery, _ := strings.Cut(strings.TrimLeft(path, "/"), "?")
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("invalid query %q: %w", rawQuery, err)
	}
	return c.message(ctx, "/delete/"+path, q)
}

// Reset clears every cached response.
func (c *Client) Reset(ctx context.Context) (string, error) {
	return c.message(ctx, "/reset/", nil)
}

func (c *Client) message(ctx context.Context, path string, q url.Values) (string, error) {
	var out struct {
		Result string `json:"result"`
	}
	if err := c.getJSON(ctx, path, q, &out); err != nil {
		return "", err
	}
	return out.Result, nil
}

func (c *Client) dispatched(ctx context.Context, path string, q url.Values) (*Dispatched, error) {
	status, body, err := c.get(ctx, path, q)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusAccepted:
		var ticket dispatch.Ticket
		if err := json.Unmarshal(body, &ticket); err != nil {
			return nil, fmt.Errorf("invalid ticket: %w", err)
		}
		return &Dispatched{Ticket: &ticket}, nil
	case http.StatusOK:
		var out struct {
			Result json.RawMessage `json:"result"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("invalid result: %w", err)
		}
		return &Dispatched{Result: out.Result}, nil
	default:
		return nil, decodeError(status, body)
	}
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	status, body, err := c.get(ctx, path, q)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return decodeError(status, body)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (int, []byte, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func decodeError(status int, body []byte) error {
	var env shared.ErrorResponse
	if err := json.Unmarshal(body, &env); err != nil || env.Error == "" {
		env.Error = strings.TrimSpace(string(body))
		if env.Error == "" {
			env.Error = http.StatusText(status)
		}
	}
	return &APIError{StatusCode: status, Message: env.Error, TraceID: env.TraceID}
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

func syncQuery(q url.Values, sync bool) url.Values {
	out := url.Values{}
	for k, v := range q {
		out[k] = v
	}
	if sync {
		out.Set(dispatch.SyncParam, "true")
	}
	return out
}
