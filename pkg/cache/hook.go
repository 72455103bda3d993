package cache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/githulk/pkg/pagination"
)

// ErrNotModifiedWithoutEntry is returned when the server answers 304 but the
// cached page it refers to is gone.
var ErrNotModifiedWithoutEntry = errors.New("304 Not Modified without cached entry")

// HookConfig configures a Hook.
type HookConfig struct {
	// Scope is the credential fingerprint mixed into every key.
	Scope string

	// TTL is how long pages are retained (default: DefaultTTL).
	TTL time.Duration
}

// Hook makes page fetches conditional. It implements pagination.Hook:
// before a GET it attaches the cached validator, after a 304 it replays the
// cached page (records and headers, including Link) so pagination continues
// exactly as if the page had been downloaded.
//
// Store failures are logged and never fail a fetch, with one exception:
// a 304 whose entry has vanished cannot be answered.
type Hook struct {
	manager *Manager
	scope   string
	ttl     time.Duration
	logger  zerolog.Logger
}

// NewHook creates a cache hook backed by manager.
func NewHook(manager *Manager, cfg HookConfig) *Hook {
	if manager == nil {
		panic("cache manager cannot be nil")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Hook{
		manager: manager,
		scope:   cfg.Scope,
		ttl:     cfg.TTL,
		logger:  log.With().Str("component", "cache").Logger(),
	}
}

var _ pagination.Hook = (*Hook)(nil)

// BeforeFetch adds If-None-Match or If-Modified-Since when a cached page
// exists for req.
func (h *Hook) BeforeFetch(ctx context.Context, req pagination.Request) pagination.Request {
	if req.Method() != http.MethodGet {
		return req
	}

	key := KeyFor(req, h.scope)
	entry, err := h.manager.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			h.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache lookup failed")
		}
		return req
	}

	if !ShouldMakeConditionalRequest(entry) {
		return req
	}

	ConditionalRequests.Inc()
	h.logger.Debug().
		Str("key", key.String()).
		Str("etag", entry.ETag).
		Msg("Sending conditional request")
	return AddConditionalHeaders(req, entry)
}

// AfterFetch replaces a 304 with the cached page and stores fresh 200
// responses that carry a validator.
func (h *Hook) AfterFetch(ctx context.Context, req pagination.Request, resp *pagination.Response) (*pagination.Response, error) {
	if resp == nil || req.Method() != http.MethodGet {
		return resp, nil
	}

	key := KeyFor(req, h.scope)

	switch resp.StatusCode {
	case http.StatusNotModified:
		entry, err := h.manager.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrNotModifiedWithoutEntry, key.String(), err)
		}
		NotModified.Inc()

		if err := h.manager.UpdateTTL(ctx, key, time.Now().Add(h.ttl)); err != nil {
			h.logger.Warn().Err(err).Str("key", key.String()).Msg("Failed to refresh cache TTL")
		}

		h.logger.Debug().Str("key", key.String()).Msg("Served page from cache (304)")
		return EntryToResponse(entry), nil

	case http.StatusOK:
		if resp.Header.Get("ETag") == "" && resp.Header.Get("Last-Modified") == "" {
			return resp, nil
		}
		entry, err := ResponseToEntry(resp, h.ttl)
		if err != nil {
			return resp, nil
		}
		if err := h.manager.Set(ctx, key, entry); err != nil {
			h.logger.Warn().Err(err).Str("key", key.String()).Msg("Failed to cache page")
		}
	}

	return resp, nil
}
