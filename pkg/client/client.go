// Package client provides the GitHub HTTP transport with credential
// rotation, rate limit tracking, retries and error classification.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/Sternrassler/githulk/pkg/pagination"
	"github.com/Sternrassler/githulk/pkg/ratelimit"
)

// Prometheus metrics for GitHub API operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hulk_requests_total",
		Help: "Total GitHub API requests by resource and status",
	}, []string{"resource", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hulk_request_duration_seconds",
		Help:    "GitHub API request duration in seconds by resource",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"resource"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hulk_errors_total",
		Help: "Total GitHub API errors by class",
	}, []string{"class"})
)

// Defaults.
const (
	DefaultBaseURL = "https://api.github.com"

	// DefaultAccept is sent unless the request sets its own Accept header.
	DefaultAccept = "application/vnd.github.v3+json"
)

// Client is the GitHub API transport. It implements pagination.Transport.
type Client struct {
	httpClient    *http.Client
	baseURL       *url.URL
	rateLimiter   *ratelimit.Tracker
	tokens        *RotatingTokenSource
	authorization string
	retry         RetryConfig
	config        Config
	logger        zerolog.Logger
}

var _ pagination.Transport = (*Client)(nil)

// Config holds the client configuration.
type Config struct {
	// Redis client for shared rate limit state (optional)
	Redis *redis.Client

	// BaseURL of the API (default: https://api.github.com)
	BaseURL string

	// User-Agent header (REQUIRED by GitHub)
	UserAgent string

	// Credentials, in order of precedence: a raw Authorization header value,
	// a list of tokens rotated round-robin, or a basic auth pair.
	Authorization string
	Tokens        []string
	Username      string
	Password      string

	// Retry
	Retries  int           // Retries after the initial attempt (negative: default)
	MinDelay time.Duration // Initial backoff
	MaxDelay time.Duration // Backoff cap
	Factor   float64       // Backoff multiplier

	// Timeout per HTTP request
	Timeout time.Duration

	// RateLimitWarning throttles requests when a credential has fewer
	// requests remaining than this. Small budgets lower it to
	// ratelimit.WarningPercent of X-RateLimit-Limit.
	RateLimitWarning int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redis *redis.Client, userAgent string) Config {
	return Config{
		Redis:            redis,
		BaseURL:          DefaultBaseURL,
		UserAgent:        userAgent,
		Retries:          3,
		MinDelay:         100 * time.Millisecond,
		MaxDelay:         60 * time.Second,
		Factor:           2,
		Timeout:          30 * time.Second,
		RateLimitWarning: ratelimit.DefaultWarningThreshold,
	}
}

// New creates a new GitHub client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, errors.New("user-agent is required")
	}

	defaults := DefaultConfig(cfg.Redis, cfg.UserAgent)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Retries < 0 {
		cfg.Retries = defaults.Retries
	}
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = defaults.MinDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaults.MaxDelay
	}
	if cfg.MaxDelay < cfg.MinDelay {
		return nil, fmt.Errorf("max delay (%s) must be >= min delay (%s)", cfg.MaxDelay, cfg.MinDelay)
	}
	if cfg.Factor <= 0 {
		cfg.Factor = defaults.Factor
	}
	if cfg.Factor < 1 {
		return nil, fmt.Errorf("backoff factor must be >= 1 (got %g)", cfg.Factor)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.RateLimitWarning <= 0 {
		cfg.RateLimitWarning = defaults.RateLimitWarning
	}

	baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	logger := log.With().Str("component", "github-client").Logger()

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     baseURL,
		rateLimiter: ratelimit.NewTracker(cfg.Redis, logger, ratelimit.WithWarningThreshold(cfg.RateLimitWarning)),
		retry:       retryConfigFromConfig(cfg),
		config:      cfg,
		logger:      logger,
	}

	switch {
	case cfg.Authorization != "":
		c.authorization = cfg.Authorization
	case len(cfg.Tokens) > 0:
		c.tokens = NewRotatingTokenSource(cfg.Tokens)
	case cfg.Username != "" && cfg.Password != "":
		logger.Debug().Str("user", cfg.Username).Msg("Using basic authorization")
		c.authorization = "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.Username+":"+cfg.Password))
	}

	return c, nil
}

// Credentials returns the configured credentials for fingerprinting. The
// values must not be logged or stored.
func (c *Client) Credentials() []string {
	if c.tokens != nil {
		c.tokens.mu.Lock()
		defer c.tokens.mu.Unlock()
		return append([]string(nil), c.tokens.tokens...)
	}
	if c.authorization != "" {
		return []string{c.authorization}
	}
	return nil
}

// Do performs one page fetch with rate limiting, retries and error
// classification. 304 responses are returned as-is with no records; any
// status >= 400 is returned as *APIError.
func (c *Client) Do(ctx context.Context, req pagination.Request) (*pagination.Response, error) {
	resource := resourceLabel(req)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(resource).Observe(time.Since(startTime).Seconds())
	}()

	var body []byte
	if req.Body() != nil {
		encoded, err := json.Marshal(req.Body())
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = encoded
	}

	target := c.endpoint(req)

	var result *pagination.Response
	err := retryWithBackoff(ctx, c.retry, func(attempt int) (ErrorClass, error) {
		credential, err := c.credential(ctx)
		if err != nil {
			if errors.Is(err, ErrRateLimited) {
				requestsTotal.WithLabelValues(resource, "rate_limited").Inc()
				c.logger.Warn().Str("resource", resource).Msg("Request blocked by rate limiter")
			}
			return "", err
		}

		httpReq, err := c.newRequest(ctx, req, target, body, credential)
		if err != nil {
			return "", err
		}

		c.logger.Debug().
			Str("method", httpReq.Method).
			Str("path", httpReq.URL.Path).
			Int("attempt", attempt).
			Msg("Executing GitHub request")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(resource, "network_error").Inc()
			c.logger.Warn().Err(err).Str("resource", resource).Msg("HTTP request failed")
			return retryClass(req.Method(), ErrorClassNetwork), err
		}
		defer resp.Body.Close()

		if err := c.rateLimiter.UpdateFromHeaders(ctx, credential, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
		requestsTotal.WithLabelValues(resource, strconv.Itoa(resp.StatusCode)).Inc()

		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return retryClass(req.Method(), ErrorClassNetwork), fmt.Errorf("read response body: %w", err)
		}

		if resp.StatusCode == http.StatusNotModified {
			result = &pagination.Response{StatusCode: resp.StatusCode, Header: resp.Header}
			return "", nil
		}

		if resp.StatusCode >= 400 {
			apiErr := newAPIError(resp, payload)
			errorsTotal.WithLabelValues(string(apiErr.Class)).Inc()
			c.logger.Warn().
				Str("resource", resource).
				Int("status", resp.StatusCode).
				Str("error_class", string(apiErr.Class)).
				Str("message", apiErr.Message).
				Msg("GitHub request error")

			if apiErr.Class == ErrorClassRateLimit && c.tokens != nil && c.tokens.Len() > 1 {
				c.tokens.Rotate()
				c.logger.Info().Msg("Rotated to next token after rate limit")
			}
			return retryClass(req.Method(), apiErr.Class), apiErr
		}

		records, err := decodePayload(resp.Header.Get("Content-Type"), payload)
		if err != nil {
			return "", fmt.Errorf("decode %s response: %w", resource, err)
		}

		result = &pagination.Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Records:    records,
		}
		return "", nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// credential picks the credential for the next request. With several tokens
// it skips those whose budget is exhausted; when none is left the request
// is refused without touching the network.
func (c *Client) credential(ctx context.Context) (string, error) {
	if c.tokens == nil || c.tokens.Len() == 0 {
		if err := c.allow(ctx, c.authorization); err != nil {
			return "", err
		}
		return c.authorization, nil
	}

	for i := 0; i < c.tokens.Len(); i++ {
		token, err := c.tokens.Token()
		if err != nil {
			return "", err
		}
		err = c.allow(ctx, token.AccessToken)
		if err == nil {
			return token.AccessToken, nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return "", err
		}
		c.tokens.Rotate()
	}

	return "", ErrRateLimited
}

// allow consults the rate limiter. Store failures are logged and do not
// block the request.
func (c *Client) allow(ctx context.Context, credential string) error {
	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx, credential)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn().Err(err).Msg("Rate limit check failed")
		return nil
	}
	if !allowed {
		return ErrRateLimited
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, req pagination.Request, target string, body []byte, credential string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method(), target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Accept", DefaultAccept)
	for key, values := range req.Header() {
		httpReq.Header[key] = values
	}
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	switch {
	case c.tokens != nil && credential != "":
		(&oauth2.Token{AccessToken: credential, TokenType: "Bearer"}).SetAuthHeader(httpReq)
	case c.authorization != "":
		httpReq.Header.Set("Authorization", c.authorization)
	}

	return httpReq, nil
}

// endpoint builds the absolute URL for req: base URL, path and query with
// the page cursor.
func (c *Client) endpoint(req pagination.Request) string {
	u := c.baseURL.JoinPath(req.Path())
	if req.Method() == http.MethodGet || req.Method() == http.MethodHead {
		u.RawQuery = req.Query().Encode()
	} else if params := req.Params(); len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

// Head sends a HEAD request to an absolute URL without following redirects.
func (c *Client) Head(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	noRedirect := *c.httpClient
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := noRedirect.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, fmt.Errorf("head %s: %w", rawURL, err)
	}
	resp.Body.Close()
	return resp, nil
}

// HTTPClient returns an authenticated *http.Client for callers that speak
// to the API directly (e.g., GraphQL). It shares the transport and
// credentials but not the retry and rate limit handling.
func (c *Client) HTTPClient() *http.Client {
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	var rt http.RoundTripper = &headerTransport{
		base:          base,
		userAgent:     c.config.UserAgent,
		authorization: c.authorization,
	}
	if c.tokens != nil && c.tokens.Len() > 0 {
		rt = &oauth2.Transport{Source: c.tokens, Base: rt}
	}

	return &http.Client{Transport: rt, Timeout: c.config.Timeout}
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// RateLimiter returns the rate limit tracker (for testing).
func (c *Client) RateLimiter() *ratelimit.Tracker {
	return c.rateLimiter
}

type headerTransport struct {
	base          http.RoundTripper
	userAgent     string
	authorization string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	if t.authorization != "" && clone.Header.Get("Authorization") == "" {
		clone.Header.Set("Authorization", t.authorization)
	}
	return t.base.RoundTrip(clone)
}

// retryClass returns the class used for the retry decision. Writes that may
// have reached the server (network and server errors) are not repeated; a
// rate limit rejection was refused before any processing and may be.
func retryClass(method string, class ErrorClass) ErrorClass {
	if class == ErrorClassRateLimit {
		return class
	}
	switch method {
	case http.MethodGet, http.MethodHead:
		return class
	}
	return ""
}

// classifyStatus categorizes an HTTP error response.
func classifyStatus(resp *http.Response, message string) ErrorClass {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode == http.StatusForbidden &&
		(resp.Header.Get(ratelimit.HeaderRemaining) == "0" ||
			resp.Header.Get("Retry-After") != "" ||
			strings.Contains(strings.ToLower(message), "rate limit")):
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// newAPIError decodes GitHub's error body ({"message", "documentation_url",
// "errors"}) when present.
func newAPIError(resp *http.Response, payload []byte) *APIError {
	var body struct {
		Message          string       `json:"message"`
		DocumentationURL string       `json:"documentation_url"`
		Errors           []FieldError `json:"errors"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || body.Message == "" {
		body.Message = resp.Status
	}

	return &APIError{
		StatusCode:       resp.StatusCode,
		Class:            classifyStatus(resp, body.Message),
		Message:          body.Message,
		DocumentationURL: body.DocumentationURL,
		Errors:           body.Errors,
	}
}

// decodePayload splits JSON bodies into records. Non-JSON bodies (raw and
// html media types) become a single JSON string record.
func decodePayload(contentType string, payload []byte) ([]json.RawMessage, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, nil
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType != "" && !strings.Contains(mediaType, "json") {
		record, err := json.Marshal(string(payload))
		if err != nil {
			return nil, err
		}
		return []json.RawMessage{record}, nil
	}

	return pagination.DecodeRecords(payload)
}

// resourceLabel keeps metric cardinality bounded: repository paths are
// reduced to their resource type.
func resourceLabel(req pagination.Request) string {
	segments := make([]string, 0, 4)
	for _, s := range req.Segments() {
		if s != "" {
			segments = append(segments, s)
		}
	}
	switch {
	case len(segments) == 0:
		return "root"
	case segments[0] == "repos" && len(segments) >= 4:
		return "repos/" + segments[3]
	default:
		return segments[0]
	}
}
