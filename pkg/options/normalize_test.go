package options

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		params    url.Values
		whitelist Whitelist
		want      url.Values
	}{
		{
			name:      "nil whitelist adds pagination defaults",
			params:    url.Values{"state": {"open"}},
			whitelist: nil,
			want:      url.Values{"state": {"open"}, "page": {"1"}, "per_page": {"100"}},
		},
		{
			name:      "nil params",
			params:    nil,
			whitelist: nil,
			want:      url.Values{"page": {"1"}, "per_page": {"100"}},
		},
		{
			name:      "names drop unknown parameters",
			params:    url.Values{"state": {"open"}, "bogus": {"x"}},
			whitelist: Names{"state", "sort"},
			want:      url.Values{"state": {"open"}, "page": {"1"}, "per_page": {"100"}},
		},
		{
			name:      "names keep caller pagination",
			params:    url.Values{"page": {"3"}, "per_page": {"20"}},
			whitelist: Names{"state"},
			want:      url.Values{"page": {"3"}, "per_page": {"20"}},
		},
		{
			name:      "names listing page explicitly",
			params:    url.Values{"page": {"2"}},
			whitelist: Names{"page", "state"},
			want:      url.Values{"page": {"2"}, "per_page": {"100"}},
		},
		{
			name:      "defaults fill missing keys",
			params:    url.Values{"extra": {"dropped"}},
			whitelist: Defaults{"q": "golang", "sort": ""},
			want:      url.Values{"q": {"golang"}, "page": {"1"}, "per_page": {"100"}},
		},
		{
			name:      "defaults never overwrite caller values",
			params:    url.Values{"q": {"zig"}, "sort": {"stars"}, "per_page": {"10"}},
			whitelist: Defaults{"q": "golang", "sort": ""},
			want:      url.Values{"q": {"zig"}, "sort": {"stars"}, "page": {"1"}, "per_page": {"10"}},
		},
		{
			name:      "defaults with own pagination default",
			params:    nil,
			whitelist: Defaults{"per_page": "30"},
			want:      url.Values{"page": {"1"}, "per_page": {"30"}},
		},
		{
			name:      "empty caller value counts as absent",
			params:    url.Values{"page": {""}},
			whitelist: nil,
			want:      url.Values{"page": {"1"}, "per_page": {"100"}},
		},
		{
			name:      "multi valued parameter",
			params:    url.Values{"labels": {"bug", "ui"}},
			whitelist: Names{"labels"},
			want:      url.Values{"labels": {"bug", "ui"}, "page": {"1"}, "per_page": {"100"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.params, tt.whitelist)
			assert.Equal(t, tt.want, got)

			again := Normalize(got, tt.whitelist)
			assert.Equal(t, got, again, "normalize must be idempotent")
		})
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	params := url.Values{"state": {"open"}, "bogus": {"x"}}
	got := Normalize(params, Names{"state"})

	assert.Equal(t, url.Values{"state": {"open"}, "bogus": {"x"}}, params)

	got["state"][0] = "closed"
	assert.Equal(t, "open", params.Get("state"))
}

func TestNormalize_TypedNilWhitelist(t *testing.T) {
	var names Names
	got := Normalize(url.Values{"anything": {"1"}}, names)
	assert.Equal(t, "1", got.Get("anything"))
}

func TestRequire(t *testing.T) {
	params := url.Values{"label": {"bug"}, "empty": {""}}

	require.NoError(t, Require(params, "label"))
	require.NoError(t, Require(params))

	err := Require(params, "label", "empty", "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingParameter))

	var missing *MissingParameterError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "empty", missing.Name)
	assert.Contains(t, err.Error(), `"empty"`)
}
