// Package project resolves heterogeneous repository references (URLs,
// shorthand strings, package manifests, pre-resolved identities) into a
// canonical owner/repo pair.
package project

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/tidwall/jsonc"
)

// Default hosts used when a Resolver leaves them empty.
const (
	DefaultHost      = "github.com"
	DefaultPagesHost = "github.io"
)

// manifestFields are searched, in order, for a URL pointing at the host.
var manifestFields = []string{"repository", "homepage", "issues", "bugs"}

// Identity is a canonical project reference. Repo may be empty, in which
// case the identity is partial and only names an owner.
type Identity struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo,omitempty"`
}

// Partial reports whether only the owner is known.
func (id Identity) Partial() bool {
	return id.Repo == ""
}

// Segments returns the owner and repo as path segments.
func (id Identity) Segments() []string {
	if id.Partial() {
		return []string{id.Owner}
	}
	return []string{id.Owner, id.Repo}
}

// String returns "owner/repo", or just "owner" for a partial identity.
func (id Identity) String() string {
	return strings.Join(id.Segments(), "/")
}

// Resolver turns references into identities. The zero value resolves against
// github.com with an empty default user.
type Resolver struct {
	// Host is the code host marker (e.g., "github.com").
	Host string

	// PagesHost is the static pages domain (e.g., "github.io").
	PagesHost string

	// DefaultUser is the owner returned when nothing else matches.
	DefaultUser string
}

// NewResolver creates a resolver for the default hosts.
func NewResolver(defaultUser string) Resolver {
	return Resolver{
		Host:        DefaultHost,
		PagesHost:   DefaultPagesHost,
		DefaultUser: defaultUser,
	}
}

func (r Resolver) host() string {
	if r.Host == "" {
		return DefaultHost
	}
	return r.Host
}

func (r Resolver) pagesHost() string {
	if r.PagesHost == "" {
		return DefaultPagesHost
	}
	return r.PagesHost
}

// isHost reports whether segment names the web host, the pages host or a
// subdomain of either. Such a segment is never an owner.
func (r Resolver) isHost(segment string) bool {
	segment = strings.ToLower(segment)
	for _, host := range []string{strings.ToLower(r.host()), strings.ToLower(r.pagesHost())} {
		if segment == host || strings.HasSuffix(segment, "."+host) {
			return true
		}
	}
	return false
}

func (r Resolver) fallback() Identity {
	return Identity{Owner: r.DefaultUser}
}

// Resolve converts ref into an Identity. Supported inputs are strings,
// Identity values (returned unchanged), maps shaped like package manifests,
// *url.URL and fmt.Stringer. Anything that cannot be resolved yields the
// partial identity {Owner: DefaultUser}.
func (r Resolver) Resolve(ref any) Identity {
	switch v := ref.(type) {
	case nil:
		return r.fallback()
	case Identity:
		return v
	case *Identity:
		if v == nil {
			return r.fallback()
		}
		return *v
	case string:
		if id, ok := r.resolveString(v); ok {
			return id
		}
		return r.fallback()
	case *url.URL:
		if v == nil {
			return r.fallback()
		}
		return r.Resolve(v.String())
	case map[string]any:
		return r.resolveObject(v)
	case map[string]string:
		converted := make(map[string]any, len(v))
		for key, value := range v {
			converted[key] = value
		}
		return r.resolveObject(converted)
	case fmt.Stringer:
		if isNilPointer(v) {
			return r.fallback()
		}
		return r.Resolve(v.String())
	default:
		return r.fallback()
	}
}

// ResolveManifest resolves a package manifest (package.json and friends).
// Comments and trailing commas are tolerated.
func (r Resolver) ResolveManifest(data []byte) Identity {
	var manifest map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &manifest); err != nil {
		return r.fallback()
	}
	return r.resolveObject(manifest)
}

// resolveString applies the three string patterns in priority order.
func (r Resolver) resolveString(s string) (Identity, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Identity{}, false
	}

	if m := r.hostPattern().FindStringSubmatch(s); m != nil {
		return Identity{Owner: m[1], Repo: m[2]}, true
	}

	if m := r.pagesPattern().FindStringSubmatch(s); m != nil {
		return Identity{Owner: m[1], Repo: m[2]}, true
	}

	parts := strings.Split(s, "/")
	if len(parts) == 2 && parts[0] != "" && parts[1] != "" && !strings.ContainsAny(s, ": ") && !r.isHost(parts[0]) {
		return Identity{Owner: parts[0], Repo: parts[1]}, true
	}

	return Identity{}, false
}

// hostPattern matches <host>[/:]owner/repo[.git][/...]. The separator before
// owner may be ":" for scp-style git remotes.
func (r Resolver) hostPattern() *regexp.Regexp {
	return compile(`(?i)(?:^|[/@]|www\.)` + regexp.QuoteMeta(r.host()) + `[/:]([^/:]+)/([^/#?]+?)(?:\.git)?(?:[/#?].*)?$`)
}

// pagesPattern matches http(s)://owner.<pages-host>/repo[/].
func (r Resolver) pagesPattern() *regexp.Regexp {
	return compile(`(?i)^https?://([^./]+)\.` + regexp.QuoteMeta(r.pagesHost()) + `/([^/#?]+)/?`)
}

// resolveObject handles map input: identity passthrough first, then the
// manifest fields, then the object itself.
func (r Resolver) resolveObject(obj map[string]any) Identity {
	if obj == nil {
		return r.fallback()
	}

	owner, hasOwner := stringField(obj, "owner")
	if !hasOwner {
		owner, hasOwner = stringField(obj, "user")
	}
	if repo, hasRepo := stringField(obj, "repo"); hasOwner && hasRepo {
		return Identity{Owner: owner, Repo: repo}
	}

	marker := r.host()
	candidates := make([]any, 0, len(manifestFields)+1)
	for _, field := range manifestFields {
		candidates = append(candidates, obj[field])
	}
	candidates = append(candidates, obj)

	for _, candidate := range candidates {
		found, ok := findURL(candidate, marker)
		if !ok {
			continue
		}
		if id, ok := r.resolveString(found); ok {
			return id
		}
		return r.fallback()
	}

	return r.fallback()
}

// stringField reports a key's value when the key is present. A present key
// with a non-string value counts as present with an empty value.
func stringField(obj map[string]any, key string) (string, bool) {
	raw, ok := obj[key]
	if !ok {
		return "", false
	}
	s, _ := raw.(string)
	return s, true
}

// findURL looks for a string containing marker, descending into "url" then
// "web" of nested objects.
func findURL(data any, marker string) (string, bool) {
	switch v := data.(type) {
	case string:
		if strings.Contains(strings.ToLower(v), strings.ToLower(marker)) {
			return v, true
		}
	case map[string]any:
		if nested, ok := v["url"]; ok {
			return findURL(nested, marker)
		}
		if nested, ok := v["web"]; ok {
			return findURL(nested, marker)
		}
	case map[string]string:
		if nested, ok := v["url"]; ok {
			return findURL(nested, marker)
		}
		if nested, ok := v["web"]; ok {
			return findURL(nested, marker)
		}
	}
	return "", false
}

// patterns caches compiled expressions per host; resolvers are values and
// are usually configured once.
var patterns sync.Map

func compile(expr string) *regexp.Regexp {
	if re, ok := patterns.Load(expr); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(expr)
	patterns.Store(expr, re)
	return re
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
