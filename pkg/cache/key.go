package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/Sternrassler/githulk/pkg/pagination"
)

// CacheKey represents a unique identifier for a cached page.
type CacheKey struct {
	// Path is the API path (e.g., "repos/owner/repo/issues")
	Path string

	// Query holds every query parameter, including page and per_page
	Query url.Values

	// Accept is the requested media type; raw and html renderings of one
	// resource are separate pages
	Accept string

	// Scope is a credential fingerprint; responses differ per credential
	Scope string
}

// KeyFor builds the key of the page a request fetches.
func KeyFor(req pagination.Request, scope string) CacheKey {
	return CacheKey{
		Path:   req.Path(),
		Query:  req.Query(),
		Accept: req.Header().Get("Accept"),
		Scope:  scope,
	}
}

// String generates a deterministic cache key string.
// Format: hulk:path:query1=val1:query2=val2:accept=type:scope=abc
// The accept part is omitted for the default media type.
//
// Example:
//
//	hulk:repos/owner/repo/issues:page=2:per_page=100:state=open:scope=anonymous
func (k CacheKey) String() string {
	parts := []string{"hulk"}

	// Add path (normalize slashes)
	path := strings.Trim(k.Path, "/")
	if path != "" {
		parts = append(parts, path)
	}

	// Add query params (sorted for determinism)
	if len(k.Query) > 0 {
		queryKeys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.Query[key], ",")))
		}
	}

	if k.Accept != "" {
		parts = append(parts, "accept="+k.Accept)
	}

	if k.Scope != "" {
		parts = append(parts, "scope="+k.Scope)
	}

	return strings.Join(parts, ":")
}
