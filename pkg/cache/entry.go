// Package cache provides page caching with a Redis backend
// and ETag support for conditional requests.
package cache

import (
	"encoding/json"
	"net/http"
	"time"
)

// CacheEntry represents a cached page.
type CacheEntry struct {
	// Records are the decoded page records
	Records []json.RawMessage `json:"records"`

	// ETag for conditional requests (If-None-Match)
	ETag string `json:"etag"`

	// LastModified is the Last-Modified header of the response (If-Modified-Since)
	LastModified time.Time `json:"last_modified"`

	// Expires is when the entry is dropped from the store. GitHub always
	// revalidates, so this is a retention horizon, not a freshness lifetime.
	Expires time.Time `json:"expires"`

	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// Headers are the response headers, including Link
	Headers http.Header `json:"headers"`

	// CachedAt is when we cached this response
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true if the cache entry has expired.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *CacheEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
