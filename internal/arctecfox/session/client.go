// Package session is the client for the backend's auth and table API. It
// keeps the access token in local storage between runs.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	e "github.com/gartstein/arctecfox/internal/arctecfox/errors"
	"github.com/gartstein/arctecfox/internal/arctecfox/models"
	"go.uber.org/zap"
)

// TokenKey is the local storage key holding the access token.
const TokenKey = "arctecfox.auth.token"

// Client wraps the backend service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	local      KeyValueStore
	transient  TransientStore
	logger     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(baseURL string, local KeyValueStore, transient TransientStore, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		local:      local,
		transient:  transient,
		logger:     logger.Named("session"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userEnvelope struct {
	User *models.AuthUser `json:"user"`
}

type tokenResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresIn   int64            `json:"expires_in"`
	User        *models.AuthUser `json:"user"`
}

// SignUp registers an account and returns its identity.
func (c *Client) SignUp(ctx context.Context, email, password string) (*models.AuthUser, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", credentials{email, password}, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// SignIn exchanges credentials for an access token and stores it.
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.AuthUser, error) {
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token", credentials{email, password}, &out); err != nil {
		return nil, err
	}
	if err := c.local.Set(TokenKey, out.AccessToken); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	c.logger.Info("Signed in", zap.String("user_id", userID(out.User)))
	return out.User, nil
}

// SignOut ends the remote session, then clears the stored token and the
// transient storage. Clearing is best effort: its failures are logged and
// never returned. When the remote call fails nothing local is touched,
// except that a 401 without a stored token means there was no session.
func (c *Client) SignOut(ctx context.Context) error {
	_, hasToken := c.local.Get(TokenKey)
	if err := c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil); err != nil {
		var remote *e.RemoteError
		if hasToken || !errors.As(err, &remote) || remote.Status != http.StatusUnauthorized {
			c.logger.Error("Sign-out error", zap.Error(err))
			return err
		}
		c.logger.Debug("No remote session to end", zap.Error(err))
	}

	if err := c.local.Delete(TokenKey); err != nil {
		c.logger.Warn("Failed to clear stored token", zap.Error(err))
	}
	if err := c.transient.Clear(); err != nil {
		c.logger.Warn("Failed to clear session storage", zap.Error(err))
	}
	c.logger.Info("User logged out")
	return nil
}

// CurrentUser returns the signed-in identity, or nil on any failure.
func (c *Client) CurrentUser(ctx context.Context) *models.AuthUser {
	var out userEnvelope
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, &out); err != nil {
		c.logger.Debug("No current user", zap.Error(err))
		return nil
	}
	return out.User
}

// FetchAll returns every row of a table.
func (c *Client) FetchAll(ctx context.Context, table string) ([]map[string]interface{}, error) {
	rows := []map[string]interface{}{}
	if err := c.do(ctx, http.MethodGet, "/rest/v1/"+url.PathEscape(table), nil, &rows); err != nil {
		c.logger.Error("Error fetching table", zap.String("table", table), zap.Error(err))
		return nil, err
	}
	return rows, nil
}

// CompleteProfile submits the onboarding profile for the signed-in user.
func (c *Client) CompleteProfile(ctx context.Context, profile *models.ProfileData) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodPost, "/rest/v1/profile", profile, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// IsProfileComplete reports the profile_completed flag of a user.
func (c *Client) IsProfileComplete(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("%w: user ID is required to check profile status", e.ErrInvalidInput)
	}
	var out struct {
		ProfileCompleted bool `json:"profile_completed"`
	}
	path := "/rest/v1/profile/" + url.PathEscape(id) + "/completed"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		if e.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return out.ProfileCompleted, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token, ok := c.local.Get(TokenKey); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &e.RemoteError{Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &e.RemoteError{Status: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeRemoteError(resp, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &e.RemoteError{Status: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	return nil
}

func decodeRemoteError(resp *http.Response, data []byte) error {
	remote := &e.RemoteError{Status: resp.StatusCode}
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		remote.Code = body.Code
		remote.Message = body.Message
		return remote
	}
	remote.Message = strings.TrimSpace(string(data))
	if remote.Message == "" {
		remote.Message = resp.Status
	}
	return remote
}

func userID(u *models.AuthUser) string {
	if u == nil {
		return ""
	}
	return u.ID
}
