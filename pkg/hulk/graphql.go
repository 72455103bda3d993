package hulk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/machinebox/graphql"
	"github.com/rs/zerolog"
)

const rateLimitFragment = "\n fragment rateLimit on Query { rateLimit { limit cost remaining resetAt } }"

// GraphQLService sends raw GraphQL documents to the v4 API.
type GraphQLService struct {
	client *graphql.Client
	logger zerolog.Logger
}

// RateLimit is the cost report GitHub attaches to every query.
type RateLimit struct {
	Limit     int       `json:"limit"`
	Cost      int       `json:"cost"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

func newGraphQLService(c *Client) *GraphQLService {
	endpoint := c.transport.BaseURL().JoinPath("graphql").String()
	gql := graphql.NewClient(endpoint, graphql.WithHTTPClient(c.transport.HTTPClient()))

	logger := c.logger.With().Str("component", "graphql").Logger()
	gql.Log = func(s string) { logger.Trace().Msg(s) }

	return &GraphQLService{client: gql, logger: logger}
}

// Query runs query with vars and decodes the data object into out (which
// may be nil). Queries that do not ask for rateLimit get the rateLimit
// fragment spread into their last selection set, and the reported cost is
// returned.
func (s *GraphQLService) Query(ctx context.Context, query string, vars map[string]any, out any) (*RateLimit, error) {
	req := graphql.NewRequest(withRateLimit(query))
	for key, value := range vars {
		req.Var(key, value)
	}

	var data json.RawMessage
	if err := s.client.Run(ctx, req, &data); err != nil {
		return nil, fmt.Errorf("graphql query: %w", err)
	}

	var meta struct {
		RateLimit *RateLimit `json:"rateLimit"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &meta); err != nil {
			return nil, fmt.Errorf("decode graphql response: %w", err)
		}
	}
	if meta.RateLimit != nil {
		s.logger.Debug().
			Int("cost", meta.RateLimit.Cost).
			Int("remaining", meta.RateLimit.Remaining).
			Time("reset_at", meta.RateLimit.ResetAt).
			Msg("GraphQL rate limit")
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return meta.RateLimit, fmt.Errorf("decode graphql response: %w", err)
		}
	}
	return meta.RateLimit, nil
}

// withRateLimit spreads the rateLimit fragment into the query's last
// selection set unless the query already mentions rateLimit.
func withRateLimit(query string) string {
	if strings.TrimSpace(query) == "" {
		query = "{ \n }"
	}
	if strings.Contains(query, "rateLimit") {
		return query
	}
	end := strings.LastIndex(query, "}")
	if end < 0 {
		return query
	}
	return query[:end] + "  ...rateLimit \n" + query[end:] + rateLimitFragment
}
