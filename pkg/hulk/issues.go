package hulk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/Sternrassler/githulk/pkg/project"
)

// IssuesService wraps the issues endpoints.
type IssuesService struct {
	client *Client
}

// List returns the issues assigned to the authenticated user across all
// visible repositories.
func (s *IssuesService) List(ctx context.Context, call Call) ([]json.RawMessage, error) {
	return s.client.do(ctx, call, endpoint{
		name: "issues.list",
		path: func(project.Identity, url.Values) []string { return []string{"issues"} },
	})
}

// User returns the issues of the authenticated user's own and member
// repositories.
func (s *IssuesService) User(ctx context.Context, call Call) ([]json.RawMessage, error) {
	return s.client.do(ctx, call, endpoint{
		name: "issues.user",
		path: func(project.Identity, url.Values) []string { return []string{"user", "issues"} },
	})
}

// Organization returns the issues of the organization named by the target.
func (s *IssuesService) Organization(ctx context.Context, call Call) ([]json.RawMessage, error) {
	return s.client.do(ctx, call, endpoint{
		name:  "issues.organization",
		owner: true,
		path: func(id project.Identity, _ url.Values) []string {
			return []string{"orgs", id.Owner, "issues"}
		},
	})
}

// Repository returns the issues of the target repository.
func (s *IssuesService) Repository(ctx context.Context, call Call) ([]json.RawMessage, error) {
	return s.client.do(ctx, call, endpoint{
		name: "issues.repository",
		path: func(id project.Identity, _ url.Values) []string {
			return repoPath(id, "issues")
		},
	})
}

// Get returns one issue. Requires the "number" parameter.
func (s *IssuesService) Get(ctx context.Context, call Call) ([]json.RawMessage, error) {
	return s.client.do(ctx, call, endpoint{
		name:     "issues.get",
		required: []string{"number"},
		consumed: []string{"number"},
		path: func(id project.Identity, params url.Values) []string {
			return repoPath(id, "issues", params.Get("number"))
		},
	})
}

// Create opens an issue with Options.Body as payload.
func (s *IssuesService) Create(ctx context.Context, call Call) ([]json.RawMessage, error) {
	return s.client.do(ctx, call, endpoint{
		name:   "issues.create",
		method: http.MethodPost,
		path: func(id project.Identity, _ url.Values) []string {
			return repoPath(id, "issues")
		},
	})
}

// Edit updates an issue. Requires the "number" parameter.
func (s *IssuesService) Edit(ctx context.Context, call Call) ([]json.RawMessage, error) {
	return s.client.do(ctx, call, endpoint{
		name:     "issues.edit",
		method:   http.MethodPatch,
		required: []string{"number"},
		consumed: []string{"number"},
		path: func(id project.Identity, params url.Values) []string {
			return repoPath(id, "issues", params.Get("number"))
		},
	})
}
