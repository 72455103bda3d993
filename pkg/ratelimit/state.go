// Package ratelimit implements GitHub rate limit tracking and request gating.
// It monitors the X-RateLimit-Remaining and X-RateLimit-Reset headers per
// credential so that a client can rotate to a credential with budget left
// instead of running into 403 responses.
package ratelimit

import (
	"time"
)

// GitHub rate limit response headers.
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
	HeaderResource  = "X-RateLimit-Resource"
	HeaderUsed      = "X-RateLimit-Used"
)

// Redis key prefix for rate limit state storage. The credential fingerprint
// is appended.
const RedisKeyPrefix = "hulk:rate_limit:"

// Thresholds for rate limit decisions.
const (
	// DefaultWarningThreshold applies throttling when remaining requests fall
	// below this value.
	DefaultWarningThreshold = 50

	// WarningPercent caps the warning threshold at this share of the
	// budget, so a small anonymous budget is not throttled from the start.
	WarningPercent = 10

	// DefaultRemaining is assumed for a credential that has not been seen yet.
	// It matches the authenticated REST budget.
	DefaultRemaining = 5000
)

// RateLimitState represents the rate limit budget of one credential.
// With a Redis backend the state is shared across all client instances.
type RateLimitState struct {
	// Limit is the size of the budget (X-RateLimit-Limit).
	Limit int `json:"limit"`

	// Remaining is the number of requests left in the window (X-RateLimit-Remaining).
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets (X-RateLimit-Reset, epoch seconds).
	ResetAt time.Time `json:"reset_at"`

	// Resource is the budget the response was counted against (core, search, graphql).
	Resource string `json:"resource,omitempty"`

	// LastUpdate is the timestamp when this state was last updated.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining is at or above the effective warning
	// threshold.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if the budget is exhausted and the window
// has not reset yet.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return s.Remaining <= 0 && s.TimeUntilReset() > 0
}

// WarningThreshold returns the effective threshold for a configured warning
// value: the lower of warning and WarningPercent of Limit.
func (s *RateLimitState) WarningThreshold(warning int) int {
	if s.Limit > 0 {
		if scaled := s.Limit * WarningPercent / 100; scaled < warning {
			return scaled
		}
	}
	return warning
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *RateLimitState) NeedsThrottling(warning int) bool {
	return s.Remaining < s.WarningThreshold(warning) && !s.NeedsCriticalBlock() && s.TimeUntilReset() > 0
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on current Remaining.
func (s *RateLimitState) UpdateHealth(warning int) {
	s.IsHealthy = s.Remaining >= s.WarningThreshold(warning)
}

func defaultState() *RateLimitState {
	now := time.Now()
	return &RateLimitState{
		Limit:      DefaultRemaining,
		Remaining:  DefaultRemaining,
		ResetAt:    now.Add(time.Hour),
		LastUpdate: now,
		IsHealthy:  true,
	}
}
