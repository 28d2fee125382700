package gofile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// wtMarker is the literal preceding the site token inside the provider's
// global JS asset.
const wtMarker = `appdata.wt = "`

// Session holds the bearer token and site token needed to call the content
// API. Both are fetched lazily on first use and cached for the lifetime of
// the session; there is no refresh logic. A single Session is intended to be
// shared by every download worker in the process.
type Session struct {
	mu        sync.Mutex
	token     string
	siteToken string

	httpClient  *http.Client
	accountsURL string
	assetURL    string
	logger      *zap.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionHTTPClient sets the HTTP client used for auth calls.
func WithSessionHTTPClient(c *http.Client) SessionOption {
	return func(s *Session) {
		s.httpClient = c
	}
}

// WithAccountsURL overrides the account-creation endpoint.
func WithAccountsURL(u string) SessionOption {
	return func(s *Session) {
		s.accountsURL = u
	}
}

// WithAssetURL overrides the JS asset URL scanned for the site token.
func WithAssetURL(u string) SessionOption {
	return func(s *Session) {
		s.assetURL = u
	}
}

// WithToken seeds the session with an existing account token, skipping
// guest-account creation entirely.
func WithToken(token string) SessionOption {
	return func(s *Session) {
		s.token = token
	}
}

// WithSessionLogger sets the logger.
func WithSessionLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		s.logger = l
	}
}

// NewSession creates a Session with empty tokens.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		httpClient:  &http.Client{},
		accountsURL: "https://api.gofile.io/accounts",
		assetURL:    "https://gofile.io/dist/js/global.js",
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Token returns the cached bearer token, which may be empty.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// SiteToken returns the cached site token, which may be empty.
func (s *Session) SiteToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.siteToken
}

// Reset clears both tokens so the next Ensure call fetches fresh ones.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.siteToken = ""
}

// EnsureToken fetches and caches the bearer token by creating a guest
// account. It is a no-op when a token is already cached. The mutex makes
// concurrent first use perform at most one outbound call.
func (s *Session) EnsureToken(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.accountsURL, nil)
	if err != nil {
		return fmt.Errorf("creating accounts request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Status string `json:"status"`
		Data   struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("%w: decoding accounts response: %v", ErrAuthentication, err)
	}

	if payload.Status != "ok" || payload.Data.Token == "" {
		return fmt.Errorf("%w: accounts status %q", ErrAuthentication, payload.Status)
	}

	s.token = payload.Data.Token
	s.logger.Info("acquired account token")
	return nil
}

// EnsureSiteToken fetches the provider's JS asset and extracts the embedded
// site token. It is a no-op when a site token is already cached.
func (s *Session) EnsureSiteToken(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.siteToken != "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.assetURL, nil)
	if err != nil {
		return fmt.Errorf("creating asset request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading asset: %v", ErrAuthentication, err)
	}

	wt, ok := extractSiteToken(string(body))
	if !ok {
		return fmt.Errorf("%w: site token marker not found", ErrAuthentication)
	}

	s.siteToken = wt
	s.logger.Info("acquired site token")
	return nil
}

// extractSiteToken scans the asset body for the wt marker and returns the
// quoted value that follows it.
func extractSiteToken(body string) (string, bool) {
	idx := strings.Index(body, wtMarker)
	if idx < 0 {
		return "", false
	}

	rest := body[idx+len(wtMarker):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return "", false
	}

	return rest[:end], true
}
