// Package login implements the server side of GitHub's OAuth web flow:
// redirecting the user to the authorize page and exchanging the callback
// code for a token.
package login

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// Errors returned by Callback.
var (
	// ErrMissingCode is returned when the callback carries neither a code
	// nor a provider error.
	ErrMissingCode = errors.New("missing OAuth code")

	// ErrStateMismatch is returned when the callback state differs from
	// the one issued by Authorize.
	ErrStateMismatch = errors.New("oauth state mismatch")
)

// ProviderError is an error reported by GitHub on the callback URL.
type ProviderError struct {
	Code        string
	Description string
	URI         string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Description == "" {
		return "oauth: " + e.Code
	}
	return fmt.Sprintf("oauth: %s: %s", e.Code, e.Description)
}

// Config holds the OAuth application settings.
type Config struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	RedirectURL  string

	// Endpoint defaults to GitHub's.
	Endpoint oauth2.Endpoint

	// HTTPClient is used for the token exchange (optional).
	HTTPClient *http.Client
}

// Login drives the OAuth web flow.
type Login struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a Login.
func New(cfg Config) (*Login, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client id is required")
	}
	if cfg.Endpoint.AuthURL == "" || cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = github.Endpoint
	}

	return &Login{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       cfg.Scopes,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     cfg.Endpoint,
		},
		httpClient: cfg.HTTPClient,
		logger:     log.With().Str("component", "login").Logger(),
	}, nil
}

// AuthCodeURL returns the authorize URL for state.
func (l *Login) AuthCodeURL(state string) string {
	return l.oauth.AuthCodeURL(state)
}

// Authorize answers r with a 302 to the authorize page and returns the
// random state that Callback must see again.
func (l *Login) Authorize(w http.ResponseWriter, r *http.Request) (string, error) {
	state, err := newState()
	if err != nil {
		return "", err
	}

	http.Redirect(w, r, l.oauth.AuthCodeURL(state), http.StatusFound)
	l.logger.Debug().Msg("Redirected to OAuth authorize page")
	return state, nil
}

// Callback validates the provider's answer on r and exchanges the code for
// a token. An empty state skips the state check.
func (l *Login) Callback(ctx context.Context, r *http.Request, state string) (*oauth2.Token, error) {
	query := r.URL.Query()

	if code := query.Get("error"); code != "" {
		return nil, &ProviderError{
			Code:        code,
			Description: query.Get("error_description"),
			URI:         query.Get("error_uri"),
		}
	}

	code := query.Get("code")
	if code == "" {
		return nil, ErrMissingCode
	}
	if state != "" && query.Get("state") != state {
		return nil, ErrStateMismatch
	}

	if l.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, l.httpClient)
	}

	token, err := l.oauth.Exchange(ctx, code)
	if err != nil {
		l.logger.Warn().Err(err).Msg("OAuth code exchange failed")
		return nil, fmt.Errorf("exchange oauth code: %w", err)
	}

	l.logger.Info().Msg("OAuth login completed")
	return token, nil
}

// newState returns 16 random hex characters.
func newState() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
