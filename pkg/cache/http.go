package cache

import (
	"errors"
	"net/http"
	"time"

	"github.com/Sternrassler/githulk/pkg/pagination"
)

const (
	// DefaultTTL is how long a page is retained for revalidation
	DefaultTTL = 24 * time.Hour
)

// ResponseToEntry converts a fetched page to a CacheEntry retained for ttl.
func ResponseToEntry(resp *pagination.Response, ttl time.Duration) (*CacheEntry, error) {
	if resp == nil {
		return nil, errors.New("response cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := time.Now()
	entry := &CacheEntry{
		Records:    resp.Records,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		CachedAt:   now,
		Expires:    now.Add(ttl),
	}

	if resp.Header != nil {
		entry.ETag = resp.Header.Get("ETag")
		if lastModStr := resp.Header.Get("Last-Modified"); lastModStr != "" {
			if lastMod, err := http.ParseTime(lastModStr); err == nil {
				entry.LastModified = lastMod
			}
		}
	}

	return entry, nil
}

// EntryToResponse rebuilds the page a cache entry was made from.
func EntryToResponse(entry *CacheEntry) *pagination.Response {
	status := entry.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	return &pagination.Response{
		StatusCode: status,
		Header:     entry.Headers.Clone(),
		Records:    entry.Records,
	}
}

// ShouldMakeConditionalRequest determines if we should add conditional
// request headers (If-None-Match or If-Modified-Since) based on the cache entry.
func ShouldMakeConditionalRequest(entry *CacheEntry) bool {
	if entry == nil {
		return false
	}
	return entry.ETag != "" || !entry.LastModified.IsZero()
}

// AddConditionalHeaders returns req with If-None-Match (ETag) or
// If-Modified-Since set from the cache entry.
func AddConditionalHeaders(req pagination.Request, entry *CacheEntry) pagination.Request {
	if entry == nil {
		return req
	}

	// Prefer ETag over Last-Modified (more accurate)
	if entry.ETag != "" {
		return req.WithHeader("If-None-Match", entry.ETag)
	}
	if !entry.LastModified.IsZero() {
		return req.WithHeader("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
	return req
}
