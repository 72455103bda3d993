// Package hulk is the public face of the GitHub client: one Call in, the
// complete ordered collection out, with pagination, caching and rate limiting
// handled underneath.
//
// Example usage:
//
//	cfg := hulk.DefaultConfig(redisClient, "MyApp/1.0 (me@example.com)")
//	cfg.Tokens = []string{os.Getenv("GITHUB_TOKEN")}
//	gh, err := hulk.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gh.Close()
//
//	issues, err := gh.Issues.Repository(ctx, hulk.Call{
//	    Target:  "octocat/hello-world",
//	    Options: hulk.Options{Params: url.Values{"state": {"open"}}},
//	})
package hulk

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/githulk/internal/fingerprint"
	"github.com/Sternrassler/githulk/pkg/cache"
	"github.com/Sternrassler/githulk/pkg/client"
	"github.com/Sternrassler/githulk/pkg/pagination"
	"github.com/Sternrassler/githulk/pkg/project"
)

// DefaultMaxConcurrency bounds Concurrently when Config leaves it unset.
const DefaultMaxConcurrency = 5

// Config holds the client configuration.
type Config struct {
	// Transport configuration. When Redis is set it backs both the shared
	// rate limit state and the ETag cache.
	client.Config

	// DefaultUser is the owner used when a target cannot be resolved.
	DefaultUser string

	// Host and PagesHost are the code host and static pages domain used to
	// recognise repository URLs.
	Host      string
	PagesHost string

	// WebURL is the web front end checked by Repositories.Moved
	// (default: https://<Host>).
	WebURL string

	// DisableCache turns off the ETag cache even when Redis is set.
	DisableCache bool

	// CacheTTL is how long cached pages are kept for revalidation.
	CacheTTL time.Duration

	// MaxConcurrency bounds the calls run by Concurrently.
	MaxConcurrency int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redis *redis.Client, userAgent string) Config {
	return Config{
		Config:         client.DefaultConfig(redis, userAgent),
		Host:           project.DefaultHost,
		PagesHost:      project.DefaultPagesHost,
		CacheTTL:       cache.DefaultTTL,
		MaxConcurrency: DefaultMaxConcurrency,
	}
}

// Client runs logical calls against the GitHub API.
type Client struct {
	transport  *client.Client
	controller *pagination.Controller
	resolver   project.Resolver
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger

	Issues       *IssuesService
	Pulls        *PullsService
	Labels       *LabelsService
	Repositories *RepositoriesService
	Search       *SearchService
	GraphQL      *GraphQLService
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}

	transport, err := client.New(cfg.Config)
	if err != nil {
		return nil, fmt.Errorf("create transport: %w", err)
	}

	c := &Client{
		transport: transport,
		resolver: project.Resolver{
			Host:        cfg.Host,
			PagesHost:   cfg.PagesHost,
			DefaultUser: cfg.DefaultUser,
		},
		config: cfg,
		logger: log.With().Str("component", "hulk").Logger(),
	}

	var hook pagination.Hook
	if cfg.Redis != nil && !cfg.DisableCache {
		c.cache = cache.NewManager(cfg.Redis)
		hook = cache.NewHook(c.cache, cache.HookConfig{
			Scope: fingerprint.Of(transport.Credentials()...),
			TTL:   cfg.CacheTTL,
		})
	}
	c.controller = pagination.NewController(transport, hook)

	c.Issues = &IssuesService{client: c}
	c.Pulls = &PullsService{client: c}
	c.Labels = &LabelsService{client: c}
	c.Repositories = &RepositoriesService{client: c}
	c.Search = &SearchService{client: c}
	c.GraphQL = newGraphQLService(c)

	c.logger.Info().
		Str("base_url", transport.BaseURL().String()).
		Bool("cache", c.cache != nil).
		Int("max_concurrency", cfg.MaxConcurrency).
		Msg("GitHub client initialized")

	return c, nil
}

func (c *Client) webURL() *url.URL {
	raw := c.config.WebURL
	if raw == "" {
		host := c.config.Host
		if host == "" {
			host = project.DefaultHost
		}
		raw = "https://" + host
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{Scheme: "https", Host: project.DefaultHost}
	}
	return u
}

// Resolve resolves a target with the client's resolver.
func (c *Client) Resolve(ref any) project.Identity {
	return c.resolver.Resolve(ref)
}

// Transport returns the underlying HTTP transport.
func (c *Client) Transport() *client.Client {
	return c.transport
}

// Ping checks the cache backend. It succeeds when no cache is configured.
func (c *Client) Ping(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Ping(ctx)
}

// Concurrently runs independent calls with at most MaxConcurrency in flight.
// It returns the first error; the context passed to the remaining functions
// is cancelled when one fails.
func (c *Client) Concurrently(ctx context.Context, fns ...func(ctx context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.MaxConcurrency)
	for _, fn := range fns {
		g.Go(func() error {
			return fn(ctx)
		})
	}
	return g.Wait()
}

// Close releases the transport's idle connections.
func (c *Client) Close() error {
	return c.transport.Close()
}
