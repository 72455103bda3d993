package hulk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Sternrassler/githulk/pkg/options"
	"github.com/Sternrassler/githulk/pkg/project"
)

// RepositoriesService wraps the repository endpoints.
type RepositoriesService struct {
	client *Client
}

// List returns the repositories of the user named by the target, or of the
// organization when the "organization" parameter is set.
func (s *RepositoriesService) List(ctx context.Context, call Call) ([]json.RawMessage, error) {
	scope := "users"
	if call.Options.Params.Get("organization") != "" {
		scope = "orgs"
	}
	return s.client.do(ctx, call, endpoint{
		name:      "repositories.list",
		whitelist: options.Names{"type", "sort", "direction"},
		owner:     true,
		path: func(id project.Identity, _ url.Values) []string {
			return []string{scope, id.Owner, "repos"}
		},
	})
}

// Public returns all public repositories, starting after the "since" id.
func (s *RepositoriesService) Public(ctx context.Context, call Call) ([]json.RawMessage, error) {
	return s.client.do(ctx, call, endpoint{
		name:      "repositories.public",
		whitelist: options.Names{"since"},
		path:      func(project.Identity, url.Values) []string { return []string{"repositories"} },
	})
}

// Get returns the target repository.
func (s *RepositoriesService) Get(ctx context.Context, call Call) ([]json.RawMessage, error) {
	return s.client.do(ctx, call, endpoint{
		name: "repositories.get",
		path: func(id project.Identity, _ url.Values) []string { return repoPath(id) },
	})
}

// Readme returns the README of the target repository, rendered as html
// unless an Accept header is given. Non-JSON media types come back as a
// single JSON string record.
func (s *RepositoriesService) Readme(ctx context.Context, call Call) ([]json.RawMessage, error) {
	return s.client.do(ctx, call, endpoint{
		name:      "repositories.readme",
		whitelist: options.Names{"ref"},
		accept:    "html",
		path:      func(id project.Identity, _ url.Values) []string { return repoPath(id, "readme") },
	})
}

// Contents returns the file or directory at the "path" parameter.
func (s *RepositoriesService) Contents(ctx context.Context, call Call) ([]json.RawMessage, error) {
	return s.client.do(ctx, call, endpoint{
		name:      "repositories.contents",
		whitelist: options.Names{"ref", "path"},
		consumed:  []string{"path"},
		path: func(id project.Identity, params url.Values) []string {
			return repoPath(id, append([]string{"contents"}, strings.Split(params.Get("path"), "/")...)...)
		},
	})
}

// Moved reports whether the target repository has been renamed or
// transferred. The API answers 404 for moved repositories, so the web URL is
// checked with a HEAD request instead and a redirect Location is resolved
// back into an identity. When the Location cannot be resolved the original
// identity is returned as moved.
func (s *RepositoriesService) Moved(ctx context.Context, call Call) (project.Identity, bool, error) {
	id, err := s.client.target(call, false)
	if err != nil {
		return project.Identity{}, false, err
	}
	if id.Partial() {
		return id, false, fmt.Errorf("moved check needs owner and repo, got %q", id.String())
	}

	web := s.client.webURL().JoinPath(id.Owner, id.Repo)
	resp, err := s.client.transport.Head(ctx, web.String())
	if err != nil {
		return id, false, err
	}

	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		location, err := resp.Location()
		if err != nil {
			return id, true, nil
		}
		moved := s.client.resolver.Resolve(location.String())
		if moved.Partial() {
			return id, true, nil
		}
		return moved, moved != id, nil
	case http.StatusOK:
		return id, false, nil
	default:
		return id, false, fmt.Errorf("moved check %s: unexpected status %d", web.String(), resp.StatusCode)
	}
}
