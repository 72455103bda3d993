package client

import (
	"errors"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNoTokens is returned by an empty RotatingTokenSource.
var ErrNoTokens = errors.New("no tokens configured")

// RotatingTokenSource is an oauth2.TokenSource over a fixed list of personal
// access tokens. Token returns the current token; Rotate advances to the
// next one round-robin, which the client does when a token runs out of
// rate limit budget.
type RotatingTokenSource struct {
	mu     sync.Mutex
	tokens []string
	next   int
}

// NewRotatingTokenSource creates a source over tokens, skipping empty ones.
func NewRotatingTokenSource(tokens []string) *RotatingTokenSource {
	kept := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if token != "" {
			kept = append(kept, token)
		}
	}
	return &RotatingTokenSource{tokens: kept}
}

var _ oauth2.TokenSource = (*RotatingTokenSource)(nil)

// Token implements oauth2.TokenSource.
func (s *RotatingTokenSource) Token() (*oauth2.Token, error) {
	current, ok := s.current()
	if !ok {
		return nil, ErrNoTokens
	}
	return &oauth2.Token{AccessToken: current, TokenType: "Bearer"}, nil
}

// Rotate advances to the next token and returns it.
func (s *RotatingTokenSource) Rotate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tokens) == 0 {
		return ""
	}
	s.next = (s.next + 1) % len(s.tokens)
	return s.tokens[s.next]
}

// Len returns the number of tokens.
func (s *RotatingTokenSource) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

func (s *RotatingTokenSource) current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tokens) == 0 {
		return "", false
	}
	return s.tokens[s.next], true
}
