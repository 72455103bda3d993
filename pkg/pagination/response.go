package pagination

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Response is one fetched page.
type Response struct {
	StatusCode int
	Header     http.Header

	// Records holds the page's JSON values in order.
	Records []json.RawMessage
}

// Transport performs a single page fetch.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req Request) (*Response, error)

// Do calls f(ctx, req).
func (f TransportFunc) Do(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Hook runs around every fetch. BeforeFetch may decorate the request (the
// decorated copy is only used for that fetch); AfterFetch may replace the
// response.
type Hook interface {
	BeforeFetch(ctx context.Context, req Request) Request
	AfterFetch(ctx context.Context, req Request, resp *Response) (*Response, error)
}

// DecodeRecords splits a response body into records. An array becomes its
// elements, any other JSON value a single record, and an empty body no
// records.
func DecodeRecords(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode array body: %w", err)
		}
		return records, nil
	}

	if !json.Valid(trimmed) {
		return nil, errors.New("decode body: invalid JSON")
	}
	return []json.RawMessage{json.RawMessage(append([]byte(nil), trimmed...))}, nil
}
