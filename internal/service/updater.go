package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

// PackageLister lists the datasets to update when no single pid is given.
type PackageLister interface {
	PackageList(ctx context.Context) ([]string, error)
	// ForInstance returns a lister for another CKAN instance.
	ForInstance(address string) PackageLister
}

// UpdateOptions controls one update run.
type UpdateOptions struct {
	// PID limits the run to a single dataset. Empty means every dataset
	// returned by the package list.
	PID string `json:"pid,omitempty"`
	// Remote lists datasets from another CKAN instance instead of the
	// configured one
	Remote string `json:"remote,omitempty" validate:"omitempty,url"`
	// ChunkSize is how many datasets are processed before the next batch starts
	ChunkSize int `json:"chunk_size" validate:"gt=0"`
	// RowLimit truncates the package list; 0 means no limit
	RowLimit int `json:"row_limit" validate:"gte=0"`
	// Mock is forwarded to the age endpoint as its mock frequency
	Mock int `json:"mock" validate:"gte=0"`
	// Timeout is the per-request timeout in seconds
	Timeout int `json:"timeout" validate:"gt=0"`
	// TTL is forwarded to the age endpoint as its cache lifetime in seconds
	TTL int `json:"ttl" validate:"gte=0"`
}

// UpdateResult summarizes an update run.
type UpdateResult struct {
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	PIDs    []string `json:"pids"`
}

// Updater refreshes dataset ages by calling the age endpoint once per pid.
type Updater struct {
	packages    PackageLister
	httpClient  *http.Client
	concurrency int
	logger      *slog.Logger
}

// NewUpdater creates an Updater. concurrency bounds in-flight requests
// within a chunk; values below 1 mean 1. A nil httpClient means
// http.DefaultClient; per-request timeouts come from UpdateOptions.
func NewUpdater(packages PackageLister, httpClient *http.Client, concurrency int, logger *slog.Logger) *Updater {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Updater{
		packages:    packages,
		httpClient:  httpClient,
		concurrency: concurrency,
		logger:      logger.With("component", "updater"),
	}
}

// Update calls GET <endpoint>/<pid>/ for every selected dataset, chunk by
// chunk. Failures of individual datasets are counted, not returned, unless
// the run targets a single pid; then the failure is returned as an
// ErrUpstream error. A failing package list is also returned as ErrUpstream.
func (u *Updater) Update(ctx context.Context, endpoint string, opts UpdateOptions) (UpdateResult, error) {
	pids, err := u.resolvePIDs(ctx, opts)
	if err != nil {
		return UpdateResult{}, err
	}

	chunkSize := opts.ChunkSize
	if chunkSize < 1 {
		chunkSize = len(pids)
	}

	failures := make([]error, len(pids))
	for start := 0; start < len(pids); start += chunkSize {
		end := min(start+chunkSize, len(pids))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(u.concurrency)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				failures[i] = u.updateOne(gctx, endpoint, pids[i], opts)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return UpdateResult{}, fmt.Errorf("update aborted: %w", err)
		}

		u.logger.Debug("chunk processed", "start", start, "end", end, "total", len(pids))
	}

	result := UpdateResult{PIDs: make([]string, 0, len(pids))}
	for i, pid := range pids {
		if failures[i] != nil {
			result.Failed++
			u.logger.Warn("dataset update failed", "pid", pid, "error", failures[i])
			continue
		}
		result.Updated++
		result.PIDs = append(result.PIDs, pid)
	}

	if opts.PID != "" && failures[0] != nil {
		return result, failures[0]
	}

	u.logger.Info("update finished", "updated", result.Updated, "failed", result.Failed)
	return result, nil
}

func (u *Updater) resolvePIDs(ctx context.Context, opts UpdateOptions) ([]string, error) {
	if opts.PID != "" {
		return []string{opts.PID}, nil
	}

	packages := u.packages
	if opts.Remote != "" {
		packages = packages.ForInstance(opts.Remote)
	}

	pids, err := packages.PackageList(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	if opts.RowLimit > 0 && len(pids) > opts.RowLimit {
		pids = pids[:opts.RowLimit]
	}
	return pids, nil
}

func (u *Updater) updateOne(ctx context.Context, endpoint, pid string, opts UpdateOptions) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.Timeout)*time.Second)
		defer cancel()
	}

	query := url.Values{}
	query.Set("mock", strconv.Itoa(opts.Mock))
	query.Set("ttl", strconv.Itoa(opts.TTL))
	target := endpoint + "/" + url.PathEscape(pid) + "/?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &UpstreamError{Operation: "update_age", URL: target, Err: err}
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{Operation: "update_age", URL: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode >= http.StatusBadRequest {
		return &UpstreamError{Operation: "update_age", URL: target, StatusCode: resp.StatusCode}
	}
	return nil
}
