package api

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/hdx-age-api/internal/api/shared"
	"github.com/phrazzld/hdx-age-api/internal/cache"
	"github.com/phrazzld/hdx-age-api/internal/dispatch"
	"github.com/phrazzld/hdx-age-api/internal/params"
	"github.com/phrazzld/hdx-age-api/internal/platform/logger"
	"github.com/phrazzld/hdx-age-api/internal/redact"
	"github.com/phrazzld/hdx-age-api/internal/service"
	"github.com/phrazzld/hdx-age-api/internal/task"
)

// Job type names reported by the task runner.
const (
	jobCountLetters = "count_letters"
	jobUpdate       = "update"
)

// JobReader looks up submitted jobs.
type JobReader interface {
	Status(ctx context.Context, id uuid.UUID) task.Status
	Fetch(ctx context.Context, id uuid.UUID) (task.Job, error)
}

// Updater refreshes dataset ages.
type Updater interface {
	Update(ctx context.Context, endpoint string, opts service.UpdateOptions) (service.UpdateResult, error)
}

// HandlerConfig holds the static settings of a Handler.
type HandlerConfig struct {
	// Version is reported by the status endpoint
	Version string
	// Repository is reported by the status endpoint
	Repository string
	// CKANAddress is the CKAN instance reported by the status endpoint
	CKANAddress string
	// UpdateEndpoint is the dataset age service the updater calls
	UpdateEndpoint string
	// UpdateDefaults apply to update requests that do not override them
	UpdateDefaults service.UpdateOptions
	// CacheTTL is the lifetime of cached responses; zero means the cache default
	CacheTTL time.Duration
}

// Handler serves the dataset age API.
type Handler struct {
	jobs       JobReader
	dispatcher *dispatch.Dispatcher
	cache      *cache.Cache
	updater    Updater
	config     HandlerConfig
	logger     *slog.Logger
}

// NewHandler creates a new Handler
func NewHandler(
	jobs JobReader,
	dispatcher *dispatch.Dispatcher,
	responses *cache.Cache,
	updater Updater,
	config HandlerConfig,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		jobs:       jobs,
		dispatcher: dispatcher,
		cache:      responses,
		updater:    updater,
		config:     config,
		logger:     logger.With("component", "api_handler"),
	}
}

// RegisterRoutes mounts every endpoint on r. Paths keep their trailing slash.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/status/", h.Status)
	r.Get("/lorem/", h.Lorem)
	r.Get("/test/", h.Test)
	r.Get("/test/{word}/", h.Test)
	r.Get("/update/", h.Update)
	r.Get("/update/{pid}/", h.Update)
	r.Get("/result/{jobID}/", h.Result)
	r.Get("/double/{num}/", h.Double)
	r.Get("/delete/*", h.Delete)
	r.Get("/reset/", h.Reset)
}

// StatusResponse describes the service.
type StatusResponse struct {
	Online       bool   `json:"online"`
	Message      string `json:"message"`
	CKANInstance string `json:"CKAN_instance"`
	Version      string `json:"version"`
	Repository   string `json:"repository"`
}

// ResultResponse is the polling view of a job.
type ResultResponse struct {
	Status    int         `json:"status"`
	JobID     string      `json:"job_id"`
	JobStatus task.Status `json:"job_status"`
	Result    any         `json:"result"`
}

// Status handles GET /status/. The optional remote parameter replaces the
// reported CKAN instance.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	p := shared.QueryParams(r)
	h.respondCached(w, r, p, func(ctx context.Context) (any, error) {
		return StatusResponse{
			Online:       true,
			Message:      "Service for checking and updating HDX dataset ages.",
			CKANInstance: p.String("remote", h.config.CKANAddress),
			Version:      h.config.Version,
			Repository:   h.config.Repository,
		}, nil
	})
}

// Lorem handles GET /lorem/.
func (h *Handler) Lorem(w http.ResponseWriter, r *http.Request) {
	h.respondCached(w, r, shared.QueryParams(r), func(ctx context.Context) (any, error) {
		return dispatch.Result{Result: service.LoremSentence()}, nil
	})
}

// Test handles GET /test/ and /test/{word}/.
func (h *Handler) Test(w http.ResponseWriter, r *http.Request) {
	word := chi.URLParam(r, "word")

	resp, err := h.dispatcher.Dispatch(r.Context(), shared.QueryParams(r), jobCountLetters,
		func(ctx context.Context, _ params.Params) (any, error) {
			return service.CountLetters(word), nil
		})
	h.respondDispatched(w, r, resp, err)
}

// Update handles GET /update/ and /update/{pid}/.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	p := shared.QueryParams(r)
	_, rest := dispatch.SplitSync(p)

	opts, err := h.updateOptions(chi.URLParam(r, "pid"), rest)
	if err == nil {
		err = shared.ValidateRequest(&opts)
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	endpoint := h.config.UpdateEndpoint
	resp, err := h.dispatcher.Dispatch(r.Context(), p, jobUpdate,
		func(ctx context.Context, _ params.Params) (any, error) {
			return h.updater.Update(ctx, endpoint, opts)
		})
	h.respondDispatched(w, r, resp, err)
}

// Result handles GET /result/{jobID}/. The HTTP status equals the status
// field of the body.
func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "jobID")
	resp := ResultResponse{JobID: rawID, JobStatus: task.StatusNotFound}

	if id, err := uuid.Parse(rawID); err == nil {
		job, err := h.jobs.Fetch(r.Context(), id)
		if err == nil {
			resp.JobStatus = job.Status
			resp.Result = job.Payload()
			if job.Status == task.StatusFailed {
				resp.Result = redact.String(job.Error)
			}
		}
	}

	resp.Status = resp.JobStatus.Code()
	shared.RespondWithJSON(w, r, resp.Status, resp)
}

// Double handles GET /double/{num}/, memoized by the parsed argument.
func (h *Handler) Double(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "num")
	num := params.Parse(raw)
	if num.Kind() != params.KindInt && num.Kind() != params.KindFloat {
		h.respondError(w, r, fmt.Errorf("%w: %q is not a number", ErrInvalidParameter, raw))
		return
	}

	body, hit, err := h.cache.Memoize(r.Context(), "double", h.config.CacheTTL,
		func(ctx context.Context) (any, error) {
			return dispatch.Result{Result: double(num)}, nil
		}, num)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.RespondWithCachedJSON(w, r, http.StatusOK, body, hit)
}

// Delete handles GET /delete/*. The deleted key is the cache key of the
// request URL with "delete/" removed.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	path := strings.Replace(r.URL.Path, "delete/", "", 1)
	key := cache.KeyFor(path, shared.QueryParams(r))

	if err := h.cache.Delete(r.Context(), key); err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, dispatch.Result{Result: "Key: " + key + " deleted"})
}

// Reset handles GET /reset/.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Clear(r.Context()); err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, dispatch.Result{Result: "Caches reset"})
}

// respondCached serves the request from the response cache, computing the
// body on a miss.
func (h *Handler) respondCached(w http.ResponseWriter, r *http.Request, p params.Params, compute cache.ComputeFunc) {
	key := cache.KeyFor(r.URL.Path, p)
	body, hit, err := h.cache.GetOrCompute(r.Context(), key, h.config.CacheTTL, compute)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.RespondWithCachedJSON(w, r, http.StatusOK, body, hit)
}

// respondDispatched writes the outcome of a dispatch: 200 for inline
// results and 202 for queued tickets.
func (h *Handler) respondDispatched(w http.ResponseWriter, r *http.Request, resp any, err error) {
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	status := http.StatusOK
	if ticket, ok := resp.(dispatch.Ticket); ok {
		status = http.StatusAccepted
		logger.FromContextOrDefault(r.Context(), h.logger).
			Info("job queued", "job_id", ticket.JobID)
	}
	shared.RespondWithJSON(w, r, status, resp)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}

// updateOptions overlays integer query parameters on the configured defaults.
func (h *Handler) updateOptions(pid string, p params.Params) (service.UpdateOptions, error) {
	opts := h.config.UpdateDefaults
	opts.PID = pid
	opts.Remote = p.String("remote", "")

	fields := []struct {
		name string
		dst  *int
	}{
		{"chunk_size", &opts.ChunkSize},
		{"row_limit", &opts.RowLimit},
		{"mock", &opts.Mock},
		{"timeout", &opts.Timeout},
		{"ttl", &opts.TTL},
	}
	for _, f := range fields {
		v, ok := p.Get(f.name)
		if !ok {
			continue
		}
		i, ok := v.AsInt()
		if !ok {
			return opts, fmt.Errorf("%w: %s must be an integer", ErrInvalidParameter, f.name)
		}
		*f.dst = int(i)
	}
	return opts, nil
}

// double returns 2*v, switching to floating point when an integer would overflow.
func double(v params.Value) any {
	if i, ok := v.AsInt(); ok {
		if i <= math.MaxInt64/2 && i >= math.MinInt64/2 {
			return 2 * i
		}
	}
	f, _ := v.AsFloat()
	return 2 * f
}
