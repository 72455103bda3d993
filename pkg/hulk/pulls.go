package hulk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/Sternrassler/githulk/pkg/options"
	"github.com/Sternrassler/githulk/pkg/project"
)

// Parameters forwarded when listing pull requests.
var pullListParams = options.Names{"base", "direction", "head", "sort", "state"}

// Fields accepted when creating a pull request.
var pullCreateFields = []string{"base", "body", "head", "issue", "state", "title"}

// PullsService wraps the pull request endpoints.
type PullsService struct {
	client *Client
}

// List returns the pull requests of the target repository.
func (s *PullsService) List(ctx context.Context, call Call) ([]json.RawMessage, error) {
	return s.client.do(ctx, call, endpoint{
		name:      "pulls.list",
		whitelist: pullListParams,
		path: func(id project.Identity, _ url.Values) []string {
			return repoPath(id, "pulls")
		},
	})
}

// Get returns one pull request. Requires the "number" parameter.
func (s *PullsService) Get(ctx context.Context, call Call) ([]json.RawMessage, error) {
	return s.client.do(ctx, call, s.numbered("pulls.get"))
}

// Create opens a pull request. Body fields outside base, body, head, issue,
// state and title are dropped.
func (s *PullsService) Create(ctx context.Context, call Call) ([]json.RawMessage, error) {
	return s.client.do(ctx, call, endpoint{
		name:   "pulls.create",
		method: http.MethodPost,
		body:   pullCreateFields,
		path: func(id project.Identity, _ url.Values) []string {
			return repoPath(id, "pulls")
		},
	})
}

// Commits lists the commits of a pull request. Requires "number".
func (s *PullsService) Commits(ctx context.Context, call Call) ([]json.RawMessage, error) {
	return s.client.do(ctx, call, s.numbered("pulls.commits", "commits"))
}

// Files lists the files changed by a pull request. Requires "number".
func (s *PullsService) Files(ctx context.Context, call Call) ([]json.RawMessage, error) {
	return s.client.do(ctx, call, s.numbered("pulls.files", "files"))
}

func (s *PullsService) numbered(name string, rest ...string) endpoint {
	return endpoint{
		name:     name,
		required: []string{"number"},
		consumed: []string{"number"},
		path: func(id project.Identity, params url.Values) []string {
			return repoPath(id, append([]string{"pulls", params.Get("number")}, rest...)...)
		},
	}
}
