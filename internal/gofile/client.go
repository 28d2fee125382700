// Package gofile is a client for the gofile.io content API: session/token
// management, content-tree metadata fetching, and the HTTP transport used
// for file downloads.
package gofile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Client fetches content metadata from the provider API.
type Client struct {
	transport *Transport
	session   *Session
	apiBase   string
	logger    *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIBase overrides the content API base URL.
func WithAPIBase(base string) ClientOption {
	return func(c *Client) {
		c.apiBase = strings.TrimRight(base, "/")
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a content API client on top of the given transport.
func NewClient(transport *Transport, opts ...ClientOption) *Client {
	c := &Client{
		transport: transport,
		session:   transport.session,
		apiBase:   "https://api.gofile.io",
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Session returns the session shared with the transport.
func (c *Client) Session() *Session {
	return c.session
}

// hashPassword returns the SHA-256 hex digest the API expects, or an empty
// string for no password.
func hashPassword(password string) string {
	if password == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// FetchContent fetches the metadata for a content id and returns the
// normalized tree node. Authentication failures are logged and the fetch
// proceeds unauthenticated; the API then reports its own error status.
func (c *Client) FetchContent(ctx context.Context, contentID, password string) (*ContentNode, error) {
	if err := c.session.EnsureToken(ctx); err != nil {
		c.logger.Warn("token acquisition failed", zap.Error(err))
	}
	if err := c.session.EnsureSiteToken(ctx); err != nil {
		c.logger.Warn("site token acquisition failed", zap.Error(err))
	}

	endpoint := fmt.Sprintf("%s/contents/%s", c.apiBase, url.PathEscape(contentID))

	query := url.Values{}
	query.Set("wt", c.session.SiteToken())
	query.Set("cache", "true")
	if hashed := hashPassword(password); hashed != "" {
		query.Set("password", hashed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating contents request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.session.Token())
	req.Header.Set("X-Website-Token", c.session.SiteToken())

	resp, err := c.transport.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching content %s: %w", contentID, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Status string         `json:"status"`
		Data   contentPayload `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding content %s: %w", contentID, err)
	}

	if payload.Status != "ok" {
		c.logger.Error("content api error",
			zap.String("content_id", contentID),
			zap.String("status", payload.Status))
		if strings.Contains(payload.Status, "notFound") {
			return nil, fmt.Errorf("%w: %s", ErrContentNotFound, contentID)
		}
		return nil, &APIError{Status: payload.Status, ContentID: contentID}
	}

	// Older responses omit passwordStatus entirely; absence means ok
	if ps := payload.Data.PasswordStatus; ps != "" && ps != "passwordOk" {
		c.logger.Error("password rejected",
			zap.String("content_id", contentID),
			zap.String("password_status", ps))
		return nil, &PasswordError{Status: ps}
	}

	return payload.Data.toNode(contentID)
}
