package cache

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/githulk/pkg/pagination"
)

func TestResponseToEntry(t *testing.T) {
	lastModified := time.Now().Add(-1 * time.Hour).UTC().Truncate(time.Second)

	tests := []struct {
		name    string
		resp    *pagination.Response
		ttl     time.Duration
		wantErr bool
	}{
		{
			name: "valid response with all headers",
			resp: &pagination.Response{
				StatusCode: 200,
				Header: http.Header{
					"Last-Modified": []string{lastModified.Format(http.TimeFormat)},
					"Etag":          []string{`"abc123"`},
					"Link":          []string{`<https://api.github.com/x?page=2>; rel="next"`},
				},
				Records: []json.RawMessage{json.RawMessage(`{"id":1}`)},
			},
			ttl: time.Hour,
		},
		{
			name: "response without validators uses default ttl",
			resp: &pagination.Response{
				StatusCode: 200,
				Header:     http.Header{},
			},
		},
		{
			name:    "nil response",
			resp:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := ResponseToEntry(tt.resp, tt.ttl)
			if (err != nil) != tt.wantErr {
				t.Errorf("ResponseToEntry() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}

			if entry.StatusCode != tt.resp.StatusCode {
				t.Errorf("StatusCode = %v, want %v", entry.StatusCode, tt.resp.StatusCode)
			}
			if want := tt.resp.Header.Get("ETag"); entry.ETag != want {
				t.Errorf("ETag = %v, want %v", entry.ETag, want)
			}
			if want := tt.resp.Header.Get("Link"); entry.Headers.Get("Link") != want {
				t.Errorf("Link = %v, want %v", entry.Headers.Get("Link"), want)
			}
			if len(entry.Records) != len(tt.resp.Records) {
				t.Errorf("Records = %d, want %d", len(entry.Records), len(tt.resp.Records))
			}

			ttl := tt.ttl
			if ttl == 0 {
				ttl = DefaultTTL
			}
			if diff := entry.TTL() - ttl; diff > time.Second || diff < -2*time.Second {
				t.Errorf("TTL() = %v, want about %v", entry.TTL(), ttl)
			}

			if tt.resp.Header.Get("Last-Modified") != "" && !entry.LastModified.Equal(lastModified) {
				t.Errorf("LastModified = %v, want %v", entry.LastModified, lastModified)
			}
		})
	}
}

func TestEntryToResponse(t *testing.T) {
	entry := &CacheEntry{
		Records: []json.RawMessage{json.RawMessage(`{"id":1}`)},
		Headers: http.Header{"Link": []string{`<https://api.github.com/x?page=3>; rel="next"`}},
	}

	resp := EntryToResponse(entry)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("Link") == "" {
		t.Error("Link header not restored")
	}
	if len(resp.Records) != 1 {
		t.Errorf("Records = %d, want 1", len(resp.Records))
	}

	// The replayed header is a copy.
	resp.Header.Del("Link")
	if entry.Headers.Get("Link") == "" {
		t.Error("EntryToResponse shares the entry header map")
	}
}

func TestShouldMakeConditionalRequest(t *testing.T) {
	tests := []struct {
		name  string
		entry *CacheEntry
		want  bool
	}{
		{
			name:  "nil entry",
			entry: nil,
			want:  false,
		},
		{
			name: "entry with ETag",
			entry: &CacheEntry{
				ETag: `"abc123"`,
			},
			want: true,
		},
		{
			name: "entry with Last-Modified",
			entry: &CacheEntry{
				LastModified: time.Now(),
			},
			want: true,
		},
		{
			name: "entry without ETag or Last-Modified",
			entry: &CacheEntry{
				Records: []json.RawMessage{json.RawMessage(`{}`)},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldMakeConditionalRequest(tt.entry); got != tt.want {
				t.Errorf("ShouldMakeConditionalRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddConditionalHeaders(t *testing.T) {
	tests := []struct {
		name       string
		entry      *CacheEntry
		wantHeader string
		wantValue  string
	}{
		{
			name: "add If-None-Match with ETag",
			entry: &CacheEntry{
				ETag: `"abc123"`,
			},
			wantHeader: "If-None-Match",
			wantValue:  `"abc123"`,
		},
		{
			name: "add If-Modified-Since with Last-Modified",
			entry: &CacheEntry{
				LastModified: time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
			},
			wantHeader: "If-Modified-Since",
			wantValue:  "Sun, 01 Jan 2023 12:00:00 GMT",
		},
		{
			name: "prefer ETag over Last-Modified",
			entry: &CacheEntry{
				ETag:         `"abc123"`,
				LastModified: time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
			},
			wantHeader: "If-None-Match",
			wantValue:  `"abc123"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := pagination.NewRequest(http.MethodGet, []string{"x"}, nil)
			got := AddConditionalHeaders(req, tt.entry)

			if value := got.Header().Get(tt.wantHeader); value != tt.wantValue {
				t.Errorf("Header %s = %v, want %v", tt.wantHeader, value, tt.wantValue)
			}
			if req.Header().Get(tt.wantHeader) != "" {
				t.Error("AddConditionalHeaders mutated the original request")
			}
		})
	}
}

func TestAddConditionalHeaders_NilEntry(t *testing.T) {
	req := pagination.NewRequest(http.MethodGet, []string{"x"}, nil)
	got := AddConditionalHeaders(req, nil)
	if len(got.Header()) != 0 {
		t.Errorf("unexpected headers: %v", got.Header())
	}
}
