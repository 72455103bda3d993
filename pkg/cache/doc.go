// Package cache provides conditional-request page caching with a Redis backend.
//
// GitHub answers a request carrying a matching If-None-Match with
// 304 Not Modified, and such responses do not count against the rate limit.
// The cache keeps every page it has seen together with its ETag so that
// repeated traversals of a collection cost nothing but revalidation.
//
// - ETag support for conditional requests (If-None-Match)
// - Last-Modified support (If-Modified-Since)
// - zstd-compressed entries with a retention TTL
// - Keys scoped by a credential fingerprint, never the credential itself
// - Prometheus metrics for observability
// - Deterministic cache key generation
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create cache manager
//	manager := cache.NewManager(redisClient)
//
//	// Create cache key
//	key := cache.CacheKey{
//		Path:  "repos/owner/repo/issues",
//		Query: url.Values{"page": []string{"1"}, "per_page": []string{"100"}},
//	}
//
//	// Get from cache
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// Cache miss - fetch from GitHub
//	}
//
// # Pagination Hook
//
//	hook := cache.NewHook(manager, cache.HookConfig{Scope: fingerprint})
//	ctrl := pagination.NewController(transport, hook)
//
// The hook sends conditional requests for pages it has seen and replays the
// cached records and Link header on 304, so the controller keeps following
// the cached continuation.
//
// # Metrics
//
// The cache exports Prometheus metrics:
//
//   - hulk_cache_hits_total{layer="redis"} - Cache hits
//   - hulk_cache_misses_total - Cache misses
//   - hulk_cache_size_bytes{layer="redis"} - Compressed bytes written
//   - hulk_conditional_requests_total - Requests sent with a validator
//   - hulk_304_responses_total - Conditional request successes
//   - hulk_cache_errors_total{operation} - Cache operation errors
package cache
