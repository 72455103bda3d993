// Package linkheader parses RFC 8288 Link headers into a relation -> target
// mapping. GitHub uses these headers to announce the next, last, prev and
// first pages of a collection.
package linkheader

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Well-known relation names used for pagination.
const (
	RelNext  = "next"
	RelLast  = "last"
	RelPrev  = "prev"
	RelFirst = "first"
)

// Target is a parsed link target.
type Target struct {
	// URL is the raw URL as it appeared between the angle brackets.
	URL string

	// Path is the URL path (e.g., "/repos/owner/repo/issues").
	Path string

	// Query holds the decoded query parameters of the URL.
	Query url.Values
}

// Page returns the "page" query parameter as an integer.
// The second return value is false if the parameter is missing or not numeric.
func (t Target) Page() (int, bool) {
	return intParam(t.Query, "page")
}

// PerPage returns the "per_page" query parameter as an integer.
func (t Target) PerPage() (int, bool) {
	return intParam(t.Query, "per_page")
}

func intParam(values url.Values, name string) (int, bool) {
	raw := values.Get(name)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Links maps relation names to their targets.
type Links map[string]Target

// Get returns the target for a relation.
func (l Links) Get(rel string) (Target, bool) {
	t, ok := l[rel]
	return t, ok
}

// Next returns the "next" relation.
func (l Links) Next() (Target, bool) { return l.Get(RelNext) }

// Last returns the "last" relation.
func (l Links) Last() (Target, bool) { return l.Get(RelLast) }

// Prev returns the "prev" relation.
func (l Links) Prev() (Target, bool) { return l.Get(RelPrev) }

// First returns the "first" relation.
func (l Links) First() (Target, bool) { return l.Get(RelFirst) }

// ParseResponse parses the Link header of a response header set.
func ParseResponse(header http.Header) Links {
	if header == nil {
		return Links{}
	}
	return Parse(header.Get("Link"))
}

// Parse parses a Link header value of the form
//
//	<https://api.github.com/...?page=2>; rel="next", <...?page=5>; rel="last"
//
// Entries that do not have that shape are skipped. When a relation appears
// more than once the later entry wins. Parse never fails: an empty or
// malformed header yields an empty (non-nil) map.
func Parse(header string) Links {
	links := Links{}
	if strings.TrimSpace(header) == "" {
		return links
	}

	for _, entry := range splitEntries(header) {
		target, rels, ok := parseEntry(entry)
		if !ok {
			continue
		}
		for _, rel := range rels {
			links[rel] = target
		}
	}

	return links
}

// splitEntries splits on commas that are not inside <...>. URLs may legally
// contain commas in their query strings.
func splitEntries(header string) []string {
	var entries []string
	depth := 0
	start := 0
	for i := 0; i < len(header); i++ {
		switch header[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				entries = append(entries, header[start:i])
				start = i + 1
			}
		}
	}
	return append(entries, header[start:])
}

// parseEntry parses one `<url>; rel="name"` entry.
func parseEntry(entry string) (Target, []string, bool) {
	entry = strings.TrimSpace(entry)
	if !strings.HasPrefix(entry, "<") {
		return Target{}, nil, false
	}

	end := strings.IndexByte(entry, '>')
	if end < 0 {
		return Target{}, nil, false
	}
	rawURL := strings.TrimSpace(entry[1:end])
	if rawURL == "" {
		return Target{}, nil, false
	}

	var rels []string
	for _, param := range strings.Split(entry[end+1:], ";") {
		param = strings.TrimSpace(param)
		if param == "" {
			continue
		}
		key, value, found := strings.Cut(param, "=")
		if !found || !strings.EqualFold(strings.TrimSpace(key), "rel") {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		rels = append(rels, strings.Fields(strings.ToLower(value))...)
	}
	if len(rels) == 0 {
		return Target{}, nil, false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Target{}, nil, false
	}

	return Target{
		URL:   rawURL,
		Path:  parsed.Path,
		Query: parsed.Query(),
	}, rels, true
}
