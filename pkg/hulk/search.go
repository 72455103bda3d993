package hulk

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/Sternrassler/githulk/pkg/options"
	"github.com/Sternrassler/githulk/pkg/project"
)

// SearchService wraps the search endpoints.
type SearchService struct {
	client *Client
}

// SearchResult is the shape of one search page.
type SearchResult struct {
	TotalCount        int               `json:"total_count"`
	IncompleteResults bool              `json:"incomplete_results"`
	Items             []json.RawMessage `json:"items"`
}

// Query searches kind (repositories, commits, code, issues, users, topics or
// labels). The search string is the "q" parameter, or "query" as an alias.
// Every page is one SearchResult record.
func (s *SearchService) Query(ctx context.Context, kind string, call Call) ([]json.RawMessage, error) {
	return s.client.do(ctx, call, endpoint{
		name:      "search." + kind,
		whitelist: options.Defaults{"q": call.Options.Params.Get("query")},
		required:  []string{"q"},
		path: func(project.Identity, url.Values) []string {
			return []string{"search", kind}
		},
	})
}

// Items flattens the items of every SearchResult record.
func Items(records []json.RawMessage) ([]json.RawMessage, error) {
	pages, err := Decode[SearchResult](records)
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	for _, page := range pages {
		items = append(items, page.Items...)
	}
	return items, nil
}
