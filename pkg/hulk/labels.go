package hulk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/Sternrassler/githulk/pkg/project"
)

// LabelsService wraps the label endpoints.
type LabelsService struct {
	client *Client
}

// List returns the labels of the target repository.
func (s *LabelsService) List(ctx context.Context, call Call) ([]json.RawMessage, error) {
	return s.client.do(ctx, call, endpoint{
		name: "labels.list",
		path: func(id project.Identity, _ url.Values) []string {
			return repoPath(id, "labels")
		},
	})
}

// Get returns one label. Requires the "label" parameter.
func (s *LabelsService) Get(ctx context.Context, call Call) ([]json.RawMessage, error) {
	return s.client.do(ctx, call, s.named("labels.get", http.MethodGet))
}

// Create adds a label; Options.Body carries name and color.
func (s *LabelsService) Create(ctx context.Context, call Call) ([]json.RawMessage, error) {
	return s.client.do(ctx, call, endpoint{
		name:   "labels.create",
		method: http.MethodPost,
		body:   []string{"name", "color", "description"},
		path: func(id project.Identity, _ url.Values) []string {
			return repoPath(id, "labels")
		},
	})
}

// Remove deletes a label. Requires the "label" parameter.
func (s *LabelsService) Remove(ctx context.Context, call Call) ([]json.RawMessage, error) {
	return s.client.do(ctx, call, s.named("labels.remove", http.MethodDelete))
}

func (s *LabelsService) named(name, method string) endpoint {
	return endpoint{
		name:     name,
		method:   method,
		required: []string{"label"},
		consumed: []string{"label"},
		path: func(id project.Identity, params url.Values) []string {
			return repoPath(id, "labels", params.Get("label"))
		},
	}
}
