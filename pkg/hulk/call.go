package hulk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/Sternrassler/githulk/pkg/options"
	"github.com/Sternrassler/githulk/pkg/pagination"
	"github.com/Sternrassler/githulk/pkg/project"
)

// ErrArrayTarget is returned when a paginated call names several targets.
var ErrArrayTarget = errors.New("array targets cannot be paginated; set NoFollow to use the first element")

// Call is one logical operation.
type Call struct {
	// Target names the project: "owner/repo", a repository URL, a manifest
	// map or a project.Identity. Operations that are not scoped to a
	// repository read an owner or organization from it.
	Target any

	Options Options

	// OnComplete, when set, is invoked exactly once with the same values the
	// operation returns.
	OnComplete func(records []json.RawMessage, err error)
}

// Options are the caller-supplied knobs of a Call.
type Options struct {
	// Params are query parameters for reads. Operation identifiers such as
	// "number" or "label" are taken from here too.
	Params url.Values

	// Header is sent with every page. An Accept value may be a media type
	// name understood by MediaType.
	Header http.Header

	// Body is the JSON payload of write operations.
	Body any

	// NoFollow stops after the first page.
	NoFollow bool
}

// endpoint describes how an operation shapes its request.
type endpoint struct {
	name      string
	method    string
	whitelist options.Whitelist
	required  []string
	// consumed parameters become path segments and are not sent as query.
	consumed []string
	accept   string
	body     []string
	// owner marks operations scoped to a user or organization; a bare
	// name target is taken as the owner.
	owner bool
	path  func(id project.Identity, params url.Values) []string
}

// do runs a call: resolve the target, normalize and check the parameters,
// build the page-1 request and let the controller drive the sequence.
func (c *Client) do(ctx context.Context, call Call, ep endpoint) ([]json.RawMessage, error) {
	callID := ulid.Make().String()
	logger := c.logger.With().
		Str("call_id", callID).
		Str("operation", ep.name).
		Logger()
	ctx = logger.WithContext(ctx)

	records, err := c.run(ctx, call, ep)
	if err != nil {
		logger.Debug().Err(err).Msg("Call failed")
	}
	if call.OnComplete != nil {
		call.OnComplete(records, err)
	}
	return records, err
}

func (c *Client) run(ctx context.Context, call Call, ep endpoint) ([]json.RawMessage, error) {
	id, err := c.target(call, ep.owner)
	if err != nil {
		return nil, err
	}

	params := options.Normalize(call.Options.Params, ep.whitelist)
	if err := options.Require(params, ep.required...); err != nil {
		return nil, err
	}

	segments := ep.path(id, params)
	for _, name := range ep.consumed {
		params.Del(name)
	}

	method := ep.method
	if method == "" {
		method = http.MethodGet
	}

	req := pagination.NewRequest(method, segments, params)
	for key, values := range call.Options.Header {
		if len(values) > 0 {
			req = req.WithHeader(key, values[0])
		}
	}
	if accept := req.Header().Get("Accept"); accept != "" {
		req = req.WithHeader("Accept", MediaType(accept))
	} else if ep.accept != "" {
		req = req.WithHeader("Accept", MediaType(ep.accept))
	}
	if call.Options.Body != nil {
		req = req.WithBody(filterBody(call.Options.Body, ep.body))
	}

	var opts []pagination.IterOption
	if call.Options.NoFollow || method != http.MethodGet {
		opts = append(opts, pagination.WithNoFollow())
	}

	return c.controller.Collect(ctx, req, opts...)
}

// target resolves the call's project. Slices and arrays are only accepted
// with NoFollow, in which case their first element is used.
func (c *Client) target(call Call, owner bool) (project.Identity, error) {
	ref := call.Target
	if ref != nil {
		v := reflect.ValueOf(ref)
		if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
			if !call.Options.NoFollow {
				return project.Identity{}, ErrArrayTarget
			}
			ref = nil
			if v.Len() > 0 {
				ref = v.Index(0).Interface()
			}
		}
	}

	if name, ok := ref.(string); ok && owner && name != "" && !strings.ContainsAny(name, "/:") {
		return project.Identity{Owner: name}, nil
	}
	return c.resolver.Resolve(ref), nil
}

// filterBody keeps only the allowed keys of map bodies. Other bodies are
// sent unchanged.
func filterBody(body any, allowed []string) any {
	if len(allowed) == 0 {
		return body
	}

	var fields map[string]any
	switch b := body.(type) {
	case map[string]any:
		fields = b
	case map[string]string:
		fields = make(map[string]any, len(b))
		for k, v := range b {
			fields[k] = v
		}
	default:
		return body
	}

	out := make(map[string]any, len(allowed))
	for _, name := range allowed {
		if v, ok := fields[name]; ok {
			out[name] = v
		}
	}
	return out
}

// Decode unmarshals every record into a T.
func Decode[T any](records []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(records))
	for i, record := range records {
		var v T
		if err := json.Unmarshal(record, &v); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// First decodes the first record, for operations that return one object.
func First[T any](records []json.RawMessage) (T, error) {
	var v T
	if len(records) == 0 {
		return v, errors.New("no records")
	}
	if err := json.Unmarshal(records[0], &v); err != nil {
		return v, fmt.Errorf("decode record: %w", err)
	}
	return v, nil
}

func repoPath(id project.Identity, rest ...string) []string {
	return append([]string{"repos", id.Owner, id.Repo}, rest...)
}
