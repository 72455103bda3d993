package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists rate limit state per credential fingerprint.
// Load returns nil, nil when nothing is stored.
type Store interface {
	Load(ctx context.Context, key string) (*RateLimitState, error)
	Save(ctx context.Context, key string, state *RateLimitState) error
}

// stateRetention is how long state outlives its reset time.
const stateRetention = time.Minute

// RedisStore shares state across client instances.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{redis: redisClient}
}

// Load reads the state stored under key.
func (s *RedisStore) Load(ctx context.Context, key string) (*RateLimitState, error) {
	data, err := s.redis.Get(ctx, RedisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	var state RateLimitState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse rate limit state: %w", err)
	}
	return &state, nil
}

// Save stores state under key until shortly after its reset time.
func (s *RedisStore) Save(ctx context.Context, key string, state *RateLimitState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal rate limit state: %w", err)
	}

	ttl := state.TimeUntilReset() + stateRetention
	if err := s.redis.Set(ctx, RedisKeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

// MemoryStore keeps state in process.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]RateLimitState
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]RateLimitState)}
}

// Load returns a copy of the state stored under key.
func (s *MemoryStore) Load(_ context.Context, key string) (*RateLimitState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[key]
	if !ok {
		return nil, nil
	}
	if time.Since(state.ResetAt) > stateRetention {
		return nil, nil
	}
	return &state, nil
}

// Save stores a copy of state under key.
func (s *MemoryStore) Save(_ context.Context, key string, state *RateLimitState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[key] = *state
	return nil
}
