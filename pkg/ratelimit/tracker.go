package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/githulk/internal/fingerprint"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hulk_rate_limit_remaining",
		Help: "Requests remaining in the current GitHub rate limit window by credential fingerprint",
	}, []string{"credential"})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hulk_rate_limit_blocks_total",
		Help: "Total number of requests blocked due to an exhausted rate limit",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hulk_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to a low rate limit",
	})
)

// Option configures a Tracker.
type Option func(*Tracker)

// WithWarningThreshold sets the remaining count below which requests are
// throttled.
func WithWarningThreshold(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.warning = n
		}
	}
}

// WithThrottleDelay sets the pause applied to throttled requests.
func WithThrottleDelay(d time.Duration) Option {
	return func(t *Tracker) {
		if d >= 0 {
			t.throttle = d
		}
	}
}

// WithStore replaces the state store.
func WithStore(store Store) Option {
	return func(t *Tracker) {
		if store != nil {
			t.store = store
		}
	}
}

// Tracker monitors GitHub rate limits per credential and gates requests.
type Tracker struct {
	store    Store
	warning  int
	throttle time.Duration
	logger   zerolog.Logger
}

// NewTracker creates a new rate limit tracker. State is shared through
// Redis when redisClient is non-nil and kept in process otherwise.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		warning:  DefaultWarningThreshold,
		throttle: time.Second,
		logger:   logger,
	}
	if redisClient != nil {
		t.store = NewRedisStore(redisClient)
	} else {
		t.store = NewMemoryStore()
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Key returns the store key for a credential. Credentials are never stored
// or logged verbatim.
func Key(credential string) string {
	return fingerprint.Of(credential)
}

// GetState retrieves the current rate limit state of a credential.
// Returns a default healthy state if nothing is known yet.
func (t *Tracker) GetState(ctx context.Context, credential string) (*RateLimitState, error) {
	key := Key(credential)
	state, err := t.store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if state == nil {
		t.logger.Debug().Str("credential", key).Msg("No rate limit state, returning default healthy state")
		return defaultState(), nil
	}
	state.UpdateHealth(t.warning)
	return state, nil
}

// UpdateFromHeaders parses GitHub rate limit headers and stores the state
// for credential.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, credential string, headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		// Not every response carries rate limit headers (e.g., some 304s)
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	resetStr := headers.Get(HeaderReset)
	if resetStr == "" {
		return fmt.Errorf("%s header missing", HeaderReset)
	}
	resetEpoch, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderReset, err)
	}

	limit := remain
	if limitStr := headers.Get(HeaderLimit); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}

	state := &RateLimitState{
		Limit:      limit,
		Remaining:  remain,
		ResetAt:    time.Unix(resetEpoch, 0),
		Resource:   headers.Get(HeaderResource),
		LastUpdate: time.Now(),
	}
	state.UpdateHealth(t.warning)

	key := Key(credential)
	if err := t.store.Save(ctx, key, state); err != nil {
		return err
	}

	rateLimitRemaining.WithLabelValues(key).Set(float64(remain))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Str("credential", key).
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("GitHub rate limit exhausted - requests will be blocked")
	case state.NeedsThrottling(t.warning):
		t.logger.Warn().
			Str("credential", key).
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("GitHub rate limit low - requests will be throttled")
	default:
		t.logger.Debug().
			Str("credential", key).
			Int("remaining", remain).
			Int("limit", limit).
			Str("resource", state.Resource).
			Msg("GitHub rate limit state updated")
	}

	return nil
}

// ShouldAllowRequest checks if a request with credential should be made.
// Returns false if the credential's budget is exhausted.
// Returns true but may pause for throttling if the budget is low.
func (t *Tracker) ShouldAllowRequest(ctx context.Context, credential string) (bool, error) {
	state, err := t.GetState(ctx, credential)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Str("credential", Key(credential)).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("GitHub rate limit exhausted - blocking request")

		rateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling(t.warning) && t.throttle > 0 {
		t.logger.Warn().
			Str("credential", Key(credential)).
			Int("remaining", state.Remaining).
			Msg("GitHub rate limit low - throttling request")

		rateLimitThrottlesTotal.Inc()
		select {
		case <-time.After(t.throttle):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	return true, nil
}
