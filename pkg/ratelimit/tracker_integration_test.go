//go:build integration

package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
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

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestTracker_Integration_GetState(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	tracker := NewTracker(redisClient, testLogger())
	ctx := context.Background()

	state, err := tracker.GetState(ctx, "token")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Remaining != DefaultRemaining {
		t.Errorf("Default Remaining = %d, want %d", state.Remaining, DefaultRemaining)
	}

	if err := tracker.UpdateFromHeaders(ctx, "token", rateLimitHeaders(42, time.Hour)); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	state, err = tracker.GetState(ctx, "token")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Remaining != 42 {
		t.Errorf("Remaining = %d, want 42", state.Remaining)
	}
	if state.IsHealthy {
		t.Error("state below warning threshold should not be healthy")
	}
}

func TestTracker_Integration_SharedAcrossInstances(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	writer := NewTracker(redisClient, testLogger())
	reader := NewTracker(redisClient, testLogger())

	if err := writer.UpdateFromHeaders(ctx, "token", rateLimitHeaders(0, time.Hour)); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	allowed, err := reader.ShouldAllowRequest(ctx, "token")
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if allowed {
		t.Error("second instance allowed a request on an exhausted credential")
	}
}

func TestTracker_Integration_ConcurrentUpdates(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	tracker := NewTracker(redisClient, testLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(remaining int) {
			defer wg.Done()
			if err := tracker.UpdateFromHeaders(ctx, "token", rateLimitHeaders(remaining, time.Hour)); err != nil {
				t.Errorf("UpdateFromHeaders() error = %v", err)
			}
		}(4000 + i)
	}
	wg.Wait()

	state, err := tracker.GetState(ctx, "token")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Remaining < 4000 || state.Remaining >= 4020 {
		t.Errorf("Remaining = %d, want one of the written values", state.Remaining)
	}
}
