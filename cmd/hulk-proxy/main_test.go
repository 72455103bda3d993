package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/githulk/internal/testutil"
	"github.com/Sternrassler/githulk/pkg/client"
	"github.com/Sternrassler/githulk/pkg/hulk"
	"github.com/Sternrassler/githulk/pkg/options"
)

type proxyEnv struct {
	mock  *testutil.MockGitHub
	redis *redis.Client
	mux   *http.ServeMux
}

func setupProxy(t *testing.T) *proxyEnv {
	t.Helper()

	mock := testutil.NewMockGitHub()
	t.Cleanup(mock.Close)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	cfg := hulk.DefaultConfig(redisClient, "githulk-proxy-test/1.0")
	cfg.BaseURL = mock.URL()
	cfg.MinDelay = 5 * time.Millisecond
	cfg.MaxDelay = 20 * time.Millisecond

	gh, err := hulk.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { gh.Close() })

	return &proxyEnv{mock: mock, redis: redisClient, mux: newMux(gh, redisClient)}
}

func (e *proxyEnv) get(t *testing.T, target string) (*http.Response, []byte) {
	t.Helper()
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	resp := w.Result()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestReadyEndpoint(t *testing.T) {
	env := setupProxy(t)

	t.Run("ready", func(t *testing.T) {
		resp, body := env.get(t, "/ready")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "OK", string(body))
	})

	t.Run("not_ready_redis_down", func(t *testing.T) {
		// Close Redis to simulate failure
		env.redis.Close()

		resp, _ := env.get(t, "/ready")
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupProxy(t)
	env.mock.SetCollection("/repos/octo/hello/labels", testutil.Items(3))

	// Populate request metrics first.
	resp, _ := env.get(t, "/repos/octo/hello/labels")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	bodyStr := string(body)
	assert.Contains(t, bodyStr, "# HELP")
	assert.Contains(t, bodyStr, "# TYPE")
	assert.Contains(t, bodyStr, "hulk_requests_total")
	assert.Contains(t, bodyStr, "hulk_pages_fetched_total")
}

func TestCollectionHandler_MergesPages(t *testing.T) {
	env := setupProxy(t)
	env.mock.SetCollection("/repos/octo/hello/issues", testutil.Items(7))

	resp, body := env.get(t, "/repos/octo/hello/issues?per_page=3&state=all")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "7", resp.Header.Get("X-Total-Count"))

	var items []struct {
		ID int `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &items))
	require.Len(t, items, 7)
	for i, it := range items {
		assert.Equal(t, i+1, it.ID)
	}

	requests := env.mock.Requests()
	require.Len(t, requests, 3)
	for _, req := range requests {
		assert.Equal(t, "all", req.Query.Get("state"))
		assert.Empty(t, req.Query.Get("nofollow"))
	}
}

func TestCollectionHandler_NoFollow(t *testing.T) {
	env := setupProxy(t)
	env.mock.SetCollection("/repos/octo/hello/pulls", testutil.Items(7))

	resp, body := env.get(t, "/repos/octo/hello/pulls?per_page=3&nofollow=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var items []json.RawMessage
	require.NoError(t, json.Unmarshal(body, &items))
	assert.Len(t, items, 3)
	assert.Equal(t, 1, env.mock.GetRequestCount())
	assert.Empty(t, env.mock.Requests()[0].Query.Get("nofollow"))
}

func TestCollectionHandler_EmptyCollection(t *testing.T) {
	env := setupProxy(t)
	env.mock.SetCollection("/repos/octo/hello/labels", nil)

	resp, body := env.get(t, "/repos/octo/hello/labels")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", strings.TrimSpace(string(body)))
}

func TestCollectionHandler_Errors(t *testing.T) {
	env := setupProxy(t)

	t.Run("unknown resource", func(t *testing.T) {
		resp, _ := env.get(t, "/repos/octo/hello/wikis")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Zero(t, env.mock.GetRequestCount())
	})

	t.Run("upstream not found", func(t *testing.T) {
		resp, body := env.get(t, "/repos/octo/missing/issues")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Contains(t, string(body), "Not Found")
	})

	t.Run("method not allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		env.mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/repos/octo/hello/issues", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestCollectionHandler_DeadlineIsGatewayTimeout(t *testing.T) {
	env := setupProxy(t)
	env.mock.SetHandler("/repos/octo/slow/issues", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/repos/octo/slow/issues", nil).WithContext(ctx))

	assert.Equal(t, http.StatusGatewayTimeout, w.Code, w.Body.String())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"api error", &client.APIError{StatusCode: http.StatusUnprocessableEntity}, http.StatusUnprocessableEntity},
		{"wrapped api error", fmt.Errorf("page 2: %w", &client.APIError{StatusCode: http.StatusNotFound}), http.StatusNotFound},
		{"rate limited", client.ErrRateLimited, http.StatusTooManyRequests},
		{"missing parameter", &options.MissingParameterError{Name: "q"}, http.StatusBadRequest},
		{"deadline during backoff", fmt.Errorf("fetch page 1: %w", fmt.Errorf("%w: %w", client.ErrContextCancelled, context.DeadlineExceeded)), http.StatusGatewayTimeout},
		{"other", errors.New("connection reset"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b,"))
}

func TestGetEnv(t *testing.T) {
	t.Setenv("HULK_PROXY_TEST", "set")
	assert.Equal(t, "set", getEnv("HULK_PROXY_TEST", "default"))
	assert.Equal(t, "default", getEnv("HULK_PROXY_UNSET", "default"))
}
