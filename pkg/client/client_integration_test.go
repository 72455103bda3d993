//go:build integration

package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/githulk/pkg/cache"
	"github.com/Sternrassler/githulk/pkg/pagination"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

// pagedServer serves three pages of /items with ETags and answers
// revalidations with 304.
func pagedServer(t *testing.T, requests, conditional *atomic.Int32) *httptest.Server {
	t.Helper()

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page == 0 {
			page = 1
		}
		etag := fmt.Sprintf(`"page-%d"`, page)

		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", "4999")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))

		if r.Header.Get("If-None-Match") == etag {
			conditional.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}

		if page < 3 {
			w.Header().Set("Link", fmt.Sprintf(`<%s/items?page=%d&per_page=2>; rel="next", <%s/items?page=3&per_page=2>; rel="last"`,
				server.URL, page+1, server.URL))
		}
		w.Header().Set("ETag", etag)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `[{"id":%d},{"id":%d}]`, page*2-1, page*2)
	}))
	return server
}

func TestIntegration_FullRequestFlow(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	var requests, conditional atomic.Int32
	server := pagedServer(t, &requests, &conditional)
	defer server.Close()

	cfg := DefaultConfig(redisClient, "githulk-integration/1.0")
	cfg.BaseURL = server.URL
	cfg.Tokens = []string{"integration-token"}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer c.Close()

	hook := cache.NewHook(cache.NewManager(redisClient), cache.HookConfig{Scope: "integration"})
	controller := pagination.NewController(c, hook)

	ctx := context.Background()
	req := pagination.NewRequest(http.MethodGet, []string{"items"}, nil).WithCursor(1, 2)

	first, err := controller.Collect(ctx, req)
	if err != nil {
		t.Fatalf("first Collect() failed: %v", err)
	}
	if len(first) != 6 {
		t.Fatalf("first Collect() = %d records, want 6", len(first))
	}

	second, err := controller.Collect(ctx, req)
	if err != nil {
		t.Fatalf("second Collect() failed: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("second Collect() = %d records, want %d", len(second), len(first))
	}
	for i := range first {
		if string(first[i]) != string(second[i]) {
			t.Errorf("record %d = %s, want %s", i, second[i], first[i])
		}
	}

	if got := requests.Load(); got != 6 {
		t.Errorf("requests = %d, want 6", got)
	}
	if got := conditional.Load(); got != 3 {
		t.Errorf("conditional requests = %d, want 3", got)
	}

	state, err := c.RateLimiter().GetState(ctx, "integration-token")
	if err != nil {
		t.Fatalf("GetState() failed: %v", err)
	}
	if state.Remaining != 4999 {
		t.Errorf("Remaining = %d, want 4999", state.Remaining)
	}
}

func TestIntegration_RateLimitSharedAcrossClients(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		exhaustedHeaders(w)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	}))
	defer server.Close()

	newClient := func() *Client {
		cfg := DefaultConfig(redisClient, "githulk-integration/1.0")
		cfg.BaseURL = server.URL
		cfg.Tokens = []string{"shared-token"}
		c, err := New(cfg)
		if err != nil {
			t.Fatalf("Failed to create client: %v", err)
		}
		return c
	}

	ctx := context.Background()
	req := pagination.NewRequest(http.MethodGet, []string{"user"}, nil)

	if _, err := newClient().Do(ctx, req); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("first client: expected ErrRateLimited, got %v", err)
	}
	if _, err := newClient().Do(ctx, req); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second client: expected ErrRateLimited, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestIntegration_ServerErrorRecovery(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[{"id":1}]`))
	}))
	defer server.Close()

	cfg := DefaultConfig(redisClient, "githulk-integration/1.0")
	cfg.BaseURL = server.URL
	cfg.MinDelay = 10 * time.Millisecond
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	resp, err := c.Do(context.Background(), pagination.NewRequest(http.MethodGet, []string{"items"}, nil))
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	if len(resp.Records) != 1 {
		t.Errorf("Records = %d, want 1", len(resp.Records))
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}
