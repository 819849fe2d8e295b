package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/hdx-age-api/internal/config"
	"github.com/phrazzld/hdx-age-api/internal/platform/logger"
	"github.com/phrazzld/hdx-age-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig mirrors the loaded defaults but listens on a random port.
func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 0, LogLevel: "debug", Host: "localhost", APIPrefix: "/v1"},
		Task:   config.TaskConfig{WorkerCount: 2, QueueSize: 10, ResultTTLSeconds: 500, SweepIntervalSeconds: 60},
		Cache:  config.CacheConfig{Backend: "memory", DefaultTTLSeconds: 3600, KeyPrefix: "hdx-age:"},
		CKAN:   config.CKANConfig{Address: "https://data.hdx.rwlabs.org"},
		Update: config.UpdateConfig{ChunkSize: 100, TimeoutSeconds: 5, TTLSeconds: 3600, Concurrency: 2},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *application {
	t.Helper()
	l, _ := logger.NewTestLogger()
	app, err := newApplication(context.Background(), cfg, l)
	require.NoError(t, err)
	return app
}

func TestNewApplication(t *testing.T) {
	app := newTestApp(t, testConfig())
	defer app.cleanup()

	assert.NotNil(t, app.taskRunner)
	assert.NotNil(t, app.responses)
	assert.Equal(t, "https://data.hdx.rwlabs.org", app.ckan.Address())
	assert.Equal(t, time.Hour, app.responses.DefaultTTL())
}

func TestNewApplicationCacheBackends(t *testing.T) {
	tests := []struct {
		name  string
		cache config.CacheConfig
	}{
		{
			name:  "unknown backend",
			cache: config.CacheConfig{Backend: "memcached", DefaultTTLSeconds: 60},
		},
		{
			name: "unreachable redis",
			cache: config.CacheConfig{
				Backend:           "redis",
				DefaultTTLSeconds: 60,
				RedisURL:          "redis://:pw-secret@127.0.0.1:1/0?dial_timeout=50ms&max_retries=-1",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Cache = tc.cache
			l, _ := logger.NewTestLogger()

			app, err := newApplication(context.Background(), cfg, l)
			require.Error(t, err)
			assert.Nil(t, app)
			assert.Contains(t, err.Error(), "failed to set up cache")
			assert.NotContains(t, err.Error(), "pw-secret")
		})
	}
}

func TestRouter(t *testing.T) {
	app := newTestApp(t, testConfig())
	defer app.cleanup()

	srv := httptest.NewServer(app.setupRouter())
	defer srv.Close()

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "OK", string(body))
	})

	t.Run("double under prefix", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/v1/double/21/")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"result":42}`, string(body))
		assert.Len(t, resp.Header.Get("X-Trace-ID"), 32)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "hdx_age_queue_length")
		assert.Contains(t, string(body), "hdx_age_cache_lookups_total")
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/v1/nope/")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Not found", body["error"])
		assert.NotEmpty(t, body["trace_id"])
	})

	t.Run("async job through the full stack", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/v1/test/abc/")
		require.NoError(t, err)
		var ticket struct {
			JobID     string `json:"job_id"`
			ResultURL string `json:"result_url"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&ticket))
		resp.Body.Close()
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		assert.Equal(t, "http://localhost:0/v1/result/"+ticket.JobID+"/", ticket.ResultURL)

		assert.Eventually(t, func() bool {
			resp, err := http.Get(srv.URL + "/v1/result/" + ticket.JobID + "/")
			if err != nil {
				return false
			}
			defer resp.Body.Close()
			return resp.StatusCode == http.StatusOK
		}, 2*time.Second, 10*time.Millisecond)
	})
}

func TestRouterWithoutPrefix(t *testing.T) {
	cfg := testConfig()
	cfg.Server.APIPrefix = ""
	app := newTestApp(t, cfg)
	defer app.cleanup()

	w := httptest.NewRecorder()
	app.setupRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/double/2/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"result":4}`, w.Body.String())
}

func TestRouterTrailingSlashPrefix(t *testing.T) {
	for _, prefix := range []string{"/", "/v1/"} {
		t.Run(prefix, func(t *testing.T) {
			cfg := testConfig()
			cfg.Server.APIPrefix = prefix
			app := newTestApp(t, cfg)
			defer app.cleanup()

			path := strings.TrimRight(prefix, "/") + "/double/2/"
			assert.Equal(t, "http://localhost:0"+strings.TrimRight(prefix, "/")+"/age", cfg.UpdateEndpoint())

			w := httptest.NewRecorder()
			app.setupRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"result":4}`, w.Body.String())
		})
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	app := newTestApp(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	_, err := app.taskRunner.Submit(context.Background(), task.NewTask("late", func(ctx context.Context) (any, error) {
		return nil, nil
	}))
	assert.ErrorIs(t, err, task.ErrQueueClosed, "cleanup stops the task runner")
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, 90*time.Second, seconds(90))
	assert.Zero(t, seconds(0))
}
