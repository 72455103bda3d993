// Package options merges caller parameters with per-operation whitelists and
// the pagination defaults every collection request carries.
package options

import (
	"net/url"
	"strconv"
)

// Pagination parameter names and their defaults.
const (
	ParamPage    = "page"
	ParamPerPage = "per_page"

	DefaultPage    = 1
	DefaultPerPage = 100
)

// Whitelist restricts which parameters an operation forwards.
// It is either Names, Defaults or nil (everything passes).
type Whitelist interface {
	filter(params url.Values) url.Values
}

// Names is an ordered list of allowed parameter names.
type Names []string

// Defaults maps allowed parameter names to default values. An empty default
// means the parameter is only forwarded when the caller sets it.
type Defaults map[string]string

func (n Names) filter(params url.Values) url.Values {
	out := url.Values{}
	for _, name := range n.withPagination() {
		if values, ok := present(params, name); ok {
			out[name] = values
		}
	}
	return out
}

func (n Names) withPagination() Names {
	names := append(Names(nil), n...)
	for _, required := range []string{ParamPage, ParamPerPage} {
		if !n.contains(required) {
			names = append(names, required)
		}
	}
	return names
}

func (n Names) contains(name string) bool {
	for _, candidate := range n {
		if candidate == name {
			return true
		}
	}
	return false
}

func (d Defaults) filter(params url.Values) url.Values {
	merged := make(Defaults, len(d)+2)
	for key, value := range d {
		merged[key] = value
	}
	if _, ok := merged[ParamPage]; !ok {
		merged[ParamPage] = strconv.Itoa(DefaultPage)
	}
	if _, ok := merged[ParamPerPage]; !ok {
		merged[ParamPerPage] = strconv.Itoa(DefaultPerPage)
	}

	out := url.Values{}
	for key, def := range merged {
		if values, ok := present(params, key); ok {
			out[key] = values
			continue
		}
		if def != "" {
			out.Set(key, def)
		}
	}
	return out
}

// Normalize returns a new parameter set filtered through w, with page=1 and
// per_page=100 added when absent. Caller values are never overwritten and
// params is not modified. Normalize is idempotent for a fixed whitelist.
func Normalize(params url.Values, w Whitelist) url.Values {
	var out url.Values
	if w == nil || isNilWhitelist(w) {
		out = clone(params)
	} else {
		out = w.filter(params)
	}

	if _, ok := present(out, ParamPage); !ok {
		out.Set(ParamPage, strconv.Itoa(DefaultPage))
	}
	if _, ok := present(out, ParamPerPage); !ok {
		out.Set(ParamPerPage, strconv.Itoa(DefaultPerPage))
	}
	return out
}

// present returns a copy of the values for name if the caller set a
// non-empty value.
func present(params url.Values, name string) ([]string, bool) {
	values := params[name]
	if len(values) == 0 || values[0] == "" {
		return nil, false
	}
	return append([]string(nil), values...), true
}

func clone(params url.Values) url.Values {
	out := make(url.Values, len(params))
	for key, values := range params {
		if len(values) == 0 {
			continue
		}
		out[key] = append([]string(nil), values...)
	}
	return out
}

func isNilWhitelist(w Whitelist) bool {
	switch v := w.(type) {
	case Names:
		return v == nil
	case Defaults:
		return v == nil
	}
	return false
}
