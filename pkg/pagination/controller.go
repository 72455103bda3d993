package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/githulk/pkg/linkheader"
)

// State is the position of an Iterator in its page sequence.
type State int

const (
	StateInitial State = iota
	StateFetching
	StateContinuing
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateFetching:
		return "fetching"
	case StateContinuing:
		return "continuing"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrNilResponse is returned when a transport or hook yields neither a
// response nor an error.
var ErrNilResponse = errors.New("pagination: nil response")

// Page is one step of a sequence.
type Page struct {
	// Number is the 1-based position of the fetch within the sequence.
	Number int

	// Request is the descriptor the page was fetched with, before hooks.
	Request Request

	Response *Response
	Links    linkheader.Links
}

// Records returns the page's records.
func (p *Page) Records() []json.RawMessage {
	if p == nil || p.Response == nil {
		return nil
	}
	return p.Response.Records
}

// IterOption configures a single sequence.
type IterOption func(*iterConfig)

type iterConfig struct {
	noFollow bool
}

// WithNoFollow stops the sequence after the first page.
func WithNoFollow() IterOption {
	return func(c *iterConfig) {
		c.noFollow = true
	}
}

// Controller runs page sequences against a Transport.
type Controller struct {
	transport Transport
	hook      Hook
}

// NewController creates a controller. hook may be nil.
func NewController(transport Transport, hook Hook) *Controller {
	return &Controller{
		transport: transport,
		hook:      hook,
	}
}

// Iterate returns a lazy sequence starting at req.
func (c *Controller) Iterate(req Request, opts ...IterOption) *Iterator {
	var cfg iterConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Iterator{
		controller: c,
		initial:    req,
		next:       req,
		noFollow:   cfg.noFollow,
	}
}

// Collect fetches the whole sequence and returns its records in page order.
// If any fetch fails the records gathered so far are discarded and only the
// error is returned.
func (c *Controller) Collect(ctx context.Context, req Request, opts ...IterOption) ([]json.RawMessage, error) {
	it := c.Iterate(req, opts...)

	var records []json.RawMessage
	for {
		page, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if page == nil {
			break
		}
		records = append(records, page.Records()...)
	}

	loggerFrom(ctx).Info().
		Str("path", req.Path()).
		Int("pages", it.Fetched()).
		Int("records", len(records)).
		Msg("Pagination complete")

	return records, nil
}

// Iterator walks a page sequence one fetch at a time. It is not safe for
// concurrent use.
type Iterator struct {
	controller *Controller
	initial    Request
	next       Request
	noFollow   bool

	state   State
	final   bool
	fetched int
	err     error
}

// State returns the current state.
func (it *Iterator) State() State { return it.state }

// Fetched returns the number of pages fetched since the last reset.
func (it *Iterator) Fetched() int { return it.fetched }

// Err returns the error that moved the iterator to StateError.
func (it *Iterator) Err() error { return it.err }

// Reset rewinds the iterator to the first page.
func (it *Iterator) Reset() {
	it.next = it.initial
	it.state = StateInitial
	it.final = false
	it.fetched = 0
	it.err = nil
}

// Next fetches the next page. It returns nil, nil once the sequence is done
// and keeps returning the same error after a failure until Reset.
func (it *Iterator) Next(ctx context.Context) (*Page, error) {
	switch it.state {
	case StateDone:
		return nil, nil
	case StateError:
		return nil, it.err
	}

	req := it.next
	it.state = StateFetching

	resp, err := it.fetch(ctx, req)
	if err != nil {
		it.fail(ctx, req, err)
		return nil, it.err
	}

	it.fetched++
	PagesFetched.Inc()

	links := linkheader.ParseResponse(resp.Header)
	page := &Page{
		Number:   it.fetched,
		Request:  req,
		Response: resp,
		Links:    links,
	}

	loggerFrom(ctx).Debug().
		Str("path", req.Path()).
		Int("page", req.Page()).
		Int("per_page", req.PerPage()).
		Int("records", len(resp.Records)).
		Msg("Page fetched")

	it.advance(ctx, req, links)
	return page, nil
}

func (it *Iterator) fetch(ctx context.Context, req Request) (*Response, error) {
	c := it.controller
	sent := req
	if c.hook != nil {
		sent = c.hook.BeforeFetch(ctx, req)
	}

	resp, err := c.transport.Do(ctx, sent)
	if err != nil {
		return nil, err
	}

	if c.hook != nil {
		resp, err = c.hook.AfterFetch(ctx, sent, resp)
		if err != nil {
			return nil, err
		}
	}

	if resp == nil {
		return nil, ErrNilResponse
	}
	return resp, nil
}

// advance decides, from the Link header of the page just fetched, whether
// the sequence continues and with which cursor.
func (it *Iterator) advance(ctx context.Context, current Request, links linkheader.Links) {
	if it.noFollow || it.final {
		it.finish(ctx)
		return
	}

	next, ok := links.Next()
	if !ok {
		it.finish(ctx)
		return
	}

	page, ok := next.Page()
	if !ok || page <= current.Page() {
		it.finish(ctx)
		return
	}

	perPage, ok := next.PerPage()
	if !ok || perPage <= 0 {
		perPage = current.PerPage()
	}

	// The page announced as last ends the sequence regardless of what its
	// own response says.
	if last, ok := links.Last(); ok {
		if lastPage, ok := last.Page(); ok && lastPage == page {
			it.final = true
		}
	}

	it.next = current.WithCursor(page, perPage)
	it.state = StateContinuing
}

func (it *Iterator) finish(ctx context.Context) {
	it.state = StateDone
	Sequences.WithLabelValues("complete").Inc()
	PagesPerSequence.Observe(float64(it.fetched))
	loggerFrom(ctx).Debug().
		Str("path", it.initial.Path()).
		Int("pages", it.fetched).
		Msg("Page sequence done")
}

func (it *Iterator) fail(ctx context.Context, req Request, err error) {
	it.state = StateError
	it.err = fmt.Errorf("fetch page %d of %s: %w", req.Page(), req.Path(), err)
	Sequences.WithLabelValues("error").Inc()
	PagesPerSequence.Observe(float64(it.fetched))
	loggerFrom(ctx).Warn().
		Err(err).
		Str("path", req.Path()).
		Int("page", req.Page()).
		Int("fetched", it.fetched).
		Msg("Page fetch failed, discarding sequence")
}

// loggerFrom prefers the call-scoped logger on ctx and falls back to the
// global logger.
func loggerFrom(ctx context.Context) *zerolog.Logger {
	base := zerolog.Ctx(ctx)
	if base.GetLevel() == zerolog.Disabled {
		base = &log.Logger
	}
	logger := base.With().Str("component", "pagination").Logger()
	return &logger
}
