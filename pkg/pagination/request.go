package pagination

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/githulk/pkg/options"
)

// Request describes one page fetch. It is immutable: every With* method
// returns a modified copy and accessors hand out copies.
type Request struct {
	method   string
	segments []string
	header   http.Header
	params   url.Values
	body     any
	page     int
	perPage  int
}

// NewRequest builds a page-1 descriptor. The page and per_page entries of
// params become the cursor and default to 1 and 100; the remaining params
// are carried unchanged on every page.
func NewRequest(method string, segments []string, params url.Values) Request {
	if method == "" {
		method = http.MethodGet
	}

	base := url.Values{}
	for key, values := range params {
		if key == options.ParamPage || key == options.ParamPerPage {
			continue
		}
		base[key] = append([]string(nil), values...)
	}

	return Request{
		method:   method,
		segments: append([]string(nil), segments...),
		header:   http.Header{},
		params:   base,
		page:     positiveParam(params, options.ParamPage, options.DefaultPage),
		perPage:  positiveParam(params, options.ParamPerPage, options.DefaultPerPage),
	}
}

func positiveParam(params url.Values, name string, def int) int {
	n, err := strconv.Atoi(params.Get(name))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// Method returns the HTTP method.
func (r Request) Method() string { return r.method }

// Segments returns a copy of the path segments.
func (r Request) Segments() []string { return append([]string(nil), r.segments...) }

// Path joins the non-empty, path-escaped segments with "/".
func (r Request) Path() string {
	parts := make([]string, 0, len(r.segments))
	for _, segment := range r.segments {
		if segment == "" {
			continue
		}
		parts = append(parts, url.PathEscape(segment))
	}
	return strings.Join(parts, "/")
}

// Header returns a copy of the request headers.
func (r Request) Header() http.Header { return r.header.Clone() }

// Params returns a copy of the base parameters, without the cursor.
func (r Request) Params() url.Values {
	out := make(url.Values, len(r.params))
	for key, values := range r.params {
		out[key] = append([]string(nil), values...)
	}
	return out
}

// Query returns the base parameters plus the page cursor.
func (r Request) Query() url.Values {
	q := r.Params()
	q.Set(options.ParamPage, strconv.Itoa(r.page))
	q.Set(options.ParamPerPage, strconv.Itoa(r.perPage))
	return q
}

// Body returns the JSON body value, or nil.
func (r Request) Body() any { return r.body }

// Page returns the cursor page number.
func (r Request) Page() int { return r.page }

// PerPage returns the cursor page size.
func (r Request) PerPage() int { return r.perPage }

// WithCursor returns a copy positioned at page with the given page size.
func (r Request) WithCursor(page, perPage int) Request {
	next := r.clone()
	next.page = page
	next.perPage = perPage
	return next
}

// WithHeader returns a copy with key set to value.
func (r Request) WithHeader(key, value string) Request {
	next := r.clone()
	next.header.Set(key, value)
	return next
}

// WithBody returns a copy carrying body, which is sent as JSON.
func (r Request) WithBody(body any) Request {
	next := r.clone()
	next.body = body
	return next
}

func (r Request) clone() Request {
	next := r
	next.segments = r.Segments()
	next.header = r.Header()
	if next.header == nil {
		next.header = http.Header{}
	}
	next.params = r.Params()
	return next
}
