package playback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// DefaultRedirectURL must be registered in the Spotify developer dashboard.
const DefaultRedirectURL = "http://127.0.0.1:8888/spotify-api/callback/"

// ErrNotAuthorized is returned when no cached token exists.
var ErrNotAuthorized = errors.New("spotify not authorized: run `handtune auth spotify`")

// Scopes requested from Spotify.
var Scopes = []string{
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
}

// AuthConfig holds the OAuth client settings.
type AuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TokenPath    string
}

func (c AuthConfig) redirect() string {
	if c.RedirectURL == "" {
		return DefaultRedirectURL
	}
	return c.RedirectURL
}

func (c AuthConfig) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.redirect(),
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyauth.AuthURL,
			TokenURL: spotifyauth.TokenURL,
		},
	}
}

func (c AuthConfig) authenticator() *spotifyauth.Authenticator {
	return spotifyauth.New(
		spotifyauth.WithClientID(c.ClientID),
		spotifyauth.WithClientSecret(c.ClientSecret),
		spotifyauth.WithRedirectURL(c.redirect()),
		spotifyauth.WithScopes(Scopes...),
	)
}

// Authorize runs the authorization-code flow: it listens on the redirect
// address, hands the consent URL to show, and waits for the callback. The
// token is cached at cfg.TokenPath.
func Authorize(ctx context.Context, cfg AuthConfig, show func(authURL string), logger *zap.Logger) (*oauth2.Token, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	redirect, err := url.Parse(cfg.redirect())
	if err != nil {
		return nil, fmt.Errorf("parse redirect url: %w", err)
	}

	auth := cfg.authenticator()
	state := uuid.NewString()

	type result struct {
		tok *oauth2.Token
		err error
	}
	results := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		tok, err := auth.Token(r.Context(), state, r)
		if err != nil {
			http.Error(w, "authorization failed", http.StatusForbidden)
			select {
			case results <- result{err: fmt.Errorf("exchange code: %w", err)}:
			default:
			}
			return
		}
		fmt.Fprintln(w, "handtune is authorized. You can close this window.")
		select {
		case results <- result{tok: tok}:
		default:
		}
	})

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", redirect.Host, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go srv.Serve(ln)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("waiting for spotify authorization", zap.String("redirect", redirect.String()))
	show(auth.AuthURL(state))

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		if err := SaveToken(cfg.TokenPath, res.tok); err != nil {
			return nil, err
		}
		return res.tok, nil
	}
}

// LoadToken reads a cached token. A missing file yields ErrNotAuthorized.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotAuthorized
	}
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", path, err)
	}
	return &tok, nil
}

// SaveToken writes tok to path with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// savingTokenSource writes refreshed tokens back to disk.
type savingTokenSource struct {
	src    oauth2.TokenSource
	path   string
	logger *zap.Logger

	mu   sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := SaveToken(s.path, tok); err != nil {
			s.logger.Warn("persist refreshed token", zap.Error(err))
		}
	}
	return tok, nil
}

// NewClient builds an authenticated Spotify client from the cached token.
func NewClient(ctx context.Context, cfg AuthConfig, logger *zap.Logger) (*spotify.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tok, err := LoadToken(cfg.TokenPath)
	if err != nil {
		return nil, err
	}

	src := &savingTokenSource{
		src:    cfg.oauthConfig().TokenSource(ctx, tok),
		path:   cfg.TokenPath,
		logger: logger,
		last:   tok.AccessToken,
	}
	httpClient := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src))
	return spotify.New(httpClient, spotify.WithRetry(true)), nil
}
