package cache

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/Sternrassler/githulk/pkg/pagination"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "simple path no params",
			key: CacheKey{
				Path: "/repositories/",
			},
			want: "hulk:repositories",
		},
		{
			name: "path with query params",
			key: CacheKey{
				Path: "repos/owner/repo/issues",
				Query: url.Values{
					"state": []string{"open"},
				},
			},
			want: "hulk:repos/owner/repo/issues:state=open",
		},
		{
			name: "multiple query params (sorted)",
			key: CacheKey{
				Path: "repos/owner/repo/issues",
				Query: url.Values{
					"state":    []string{"open"},
					"page":     []string{"2"},
					"per_page": []string{"100"},
				},
			},
			want: "hulk:repos/owner/repo/issues:page=2:per_page=100:state=open",
		},
		{
			name: "multi valued param",
			key: CacheKey{
				Path:  "search/issues",
				Query: url.Values{"labels": []string{"bug", "ui"}},
			},
			want: "hulk:search/issues:labels=bug,ui",
		},
		{
			name: "credential scope",
			key: CacheKey{
				Path:  "user/issues",
				Query: url.Values{"page": []string{"1"}},
				Scope: "0123abcd",
			},
			want: "hulk:user/issues:page=1:scope=0123abcd",
		},
		{
			name: "media type",
			key: CacheKey{
				Path:   "repos/o/r/readme",
				Accept: "application/vnd.github.v3.raw",
				Scope:  "anonymous",
			},
			want: "hulk:repos/o/r/readme:accept=application/vnd.github.v3.raw:scope=anonymous",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.key.String()
			if got != tt.want {
				t.Errorf("CacheKey.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestCacheKey_Determinism ensures same input always produces same key
func TestCacheKey_Determinism(t *testing.T) {
	key := CacheKey{
		Path: "repos/owner/repo/pulls",
		Query: url.Values{
			"state":     []string{"all"},
			"sort":      []string{"updated"},
			"direction": []string{"desc"},
			"page":      []string{"1"},
		},
		Scope: "anonymous",
	}

	first := key.String()
	for i := 0; i < 10; i++ {
		if result := key.String(); result != first {
			t.Errorf("result[%d] = %v, want %v (not deterministic)", i, result, first)
		}
	}
}

func TestKeyFor_DistinguishesPages(t *testing.T) {
	req := pagination.NewRequest(http.MethodGet, []string{"repos", "o", "r", "issues"}, url.Values{"state": {"open"}})

	first := KeyFor(req, "scope").String()
	second := KeyFor(req.WithCursor(2, 100), "scope").String()
	other := KeyFor(req, "other").String()

	if first == second {
		t.Errorf("pages share a key: %s", first)
	}
	if first == other {
		t.Errorf("credential scopes share a key: %s", first)
	}
	if want := "hulk:repos/o/r/issues:page=1:per_page=100:state=open:scope=scope"; first != want {
		t.Errorf("KeyFor() = %s, want %s", first, want)
	}
}

func TestKeyFor_DistinguishesMediaTypes(t *testing.T) {
	req := pagination.NewRequest(http.MethodGet, []string{"repos", "o", "r", "readme"}, nil)

	plain := KeyFor(req, "scope").String()
	raw := KeyFor(req.WithHeader("Accept", "application/vnd.github.v3.raw"), "scope").String()
	html := KeyFor(req.WithHeader("Accept", "application/vnd.github.v3.html"), "scope").String()

	if raw == html {
		t.Errorf("raw and html share a key: %s", raw)
	}
	if plain == raw || plain == html {
		t.Errorf("default media type shares a key with an override: %s", plain)
	}
}
