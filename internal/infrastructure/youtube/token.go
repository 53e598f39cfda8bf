package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"

	"NewsVideoPipeline/internal/config"
	"NewsVideoPipeline/internal/domain"
)

// redirectURL is a loopback address; after consent the browser lands on it
// and the operator copies the code parameter back into the terminal.
const redirectURL = "http://localhost"

// OAuthConfig builds the installed-app OAuth client for uploads.
func OAuthConfig(cfg config.YouTubeConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}
}

func requireClient(cfg config.YouTubeConfig) error {
	if !config.IsSet(cfg.ClientID) {
		return &domain.ConfigError{Setting: "YOUTUBE_CLIENT_ID", Hint: "set the OAuth client of the channel"}
	}
	if !config.IsSet(cfg.ClientSecret) {
		return &domain.ConfigError{Setting: "YOUTUBE_CLIENT_SECRET", Hint: "set the OAuth client of the channel"}
	}
	return nil
}

// AuthCodeURL returns the consent page the operator must open once.
func AuthCodeURL(cfg config.YouTubeConfig, state string) (string, error) {
	if err := requireClient(cfg); err != nil {
		return "", err
	}
	return OAuthConfig(cfg).AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// Exchange trades a consent code for a token and caches it.
func Exchange(ctx context.Context, cfg config.YouTubeConfig, code string) error {
	if err := requireClient(cfg); err != nil {
		return err
	}
	tok, err := OAuthConfig(cfg).Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange auth code: %w", err)
	}
	return TokenStore{Path: cfg.TokenFile}.Save(tok)
}

// TokenStore persists an OAuth token as JSON.
type TokenStore struct {
	Path string
}

// Load reads the cached token. A missing file is a configuration problem.
func (s TokenStore) Load() (*oauth2.Token, error) {
	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &domain.ConfigError{Setting: "youtube.tokenFile", Hint: "run `newsvideo auth` to authorize the channel"}
	}
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", s.Path, err)
	}
	return &tok, nil
}

// Save writes the token with owner-only permissions.
func (s TokenStore) Save(tok *oauth2.Token) error {
	raw, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create token dir: %w", err)
		}
	}
	if err := os.WriteFile(s.Path, raw, 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// savingSource writes refreshed tokens back to the store.
type savingSource struct {
	base  oauth2.TokenSource
	store TokenStore

	mu   sync.Mutex
	last string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, domain.Unavailable("youtube oauth", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.store.Save(tok); err != nil {
			return nil, err
		}
	}
	return tok, nil
}

// authorizedClient returns an HTTP client that refreshes and re-caches the
// stored token as needed.
func authorizedClient(ctx context.Context, cfg config.YouTubeConfig) (*http.Client, error) {
	if err := requireClient(cfg); err != nil {
		return nil, err
	}
	store := TokenStore{Path: cfg.TokenFile}
	tok, err := store.Load()
	if err != nil {
		return nil, err
	}
	src := &savingSource{
		base:  OAuthConfig(cfg).TokenSource(ctx, tok),
		store: store,
		last:  tok.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}
