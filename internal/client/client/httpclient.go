package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/koulio-auth/internal/common"
	"github.com/sethvargo/go-retry"
)

// expiredTokenMessage is what the server answers when the access token is
// past its expiry; only this 401 triggers a refresh.
const expiredTokenMessage = "Token has expired"

// HTTPClient talks to the koulio auth API and keeps the current token pair
// in memory. It is safe for concurrent use.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	retries uint64
	backoff time.Duration

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

// NewHTTPClient returns a client for the server at baseURL. GET requests are
// retried up to retries times on transport errors.
func NewHTTPClient(baseURL string, timeout time.Duration, retries uint64) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		retries: retries,
		backoff: 200 * time.Millisecond,
	}
}

func (c *HTTPClient) IsLoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken != ""
}

func (c *HTTPClient) tokens() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

func (c *HTTPClient) setTokens(access, refresh string) {
	c.mu.Lock()
	c.accessToken = access
	c.refreshToken = refresh
	c.mu.Unlock()
}

func (c *HTTPClient) clearTokens() {
	c.setTokens("", "")
}

func (c *HTTPClient) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.call(ctx, http.MethodGet, "/api/health", nil, &h, false); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *HTTPClient) Register(ctx context.Context, email, password, fullName string) (*User, error) {
	req := map[string]string{"email": email, "password": password, "full_name": fullName}
	return c.authenticate(ctx, "/api/register", req)
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*User, error) {
	req := map[string]string{"email": email, "password": password}
	return c.authenticate(ctx, "/api/login", req)
}

func (c *HTTPClient) authenticate(ctx context.Context, path string, req any) (*User, error) {
	var resp authResponse
	if err := c.call(ctx, http.MethodPost, path, req, &resp, false); err != nil {
		return nil, err
	}
	c.setTokens(resp.AccessToken, resp.RefreshToken)
	return &resp.User, nil
}

// Refresh exchanges the stored refresh token for a new pair. A rejected
// refresh token logs the client out.
func (c *HTTPClient) Refresh(ctx context.Context) error {
	_, refresh := c.tokens()
	if refresh == "" {
		return ErrNotLoggedIn
	}

	var resp tokensResponse
	err := c.call(ctx, http.MethodPost, "/api/refresh", map[string]string{"refresh_token": refresh}, &resp, false)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			c.clearTokens()
		}
		return err
	}
	c.setTokens(resp.AccessToken, resp.RefreshToken)
	return nil
}

func (c *HTTPClient) Profile(ctx context.Context) (*User, error) {
	var resp profileResponse
	if err := c.call(ctx, http.MethodGet, "/api/profile", nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// UpdateProfile sends only the non-nil fields.
func (c *HTTPClient) UpdateProfile(ctx context.Context, fullName, email *string) error {
	req := map[string]string{}
	if fullName != nil {
		req["full_name"] = *fullName
	}
	if email != nil {
		req["email"] = *email
	}
	return c.call(ctx, http.MethodPut, "/api/profile", req, nil, true)
}

func (c *HTTPClient) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	req := map[string]string{"current_password": currentPassword, "new_password": newPassword}
	return c.call(ctx, http.MethodPost, "/api/change-password", req, nil, true)
}

func (c *HTTPClient) DeleteAccount(ctx context.Context, password string) error {
	if err := c.call(ctx, http.MethodDelete, "/api/delete-account", map[string]string{"password": password}, nil, true); err != nil {
		return err
	}
	c.clearTokens()
	return nil
}

// Logout notifies the server and forgets the tokens. The tokens are dropped
// even when the server call fails since tokens are never revoked server side.
func (c *HTTPClient) Logout(ctx context.Context) error {
	if !c.IsLoggedIn() {
		return ErrNotLoggedIn
	}
	defer c.clearTokens()
	return c.call(ctx, http.MethodPost, "/api/logout", nil, nil, true)
}

// call performs one API request. Authenticated calls that fail with an
// expired access token are retried once after a refresh.
func (c *HTTPClient) call(ctx context.Context, method, path string, body, out any, auth bool) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	token := ""
	if auth {
		if token, _ = c.tokens(); token == "" {
			return ErrNotLoggedIn
		}
	}

	err := c.doWithRetry(ctx, method, path, payload, token, out)

	var apiErr *APIError
	if auth && errors.As(err, &apiErr) &&
		apiErr.StatusCode == http.StatusUnauthorized && apiErr.Message == expiredTokenMessage {
		if rerr := c.Refresh(ctx); rerr != nil {
			return err
		}
		token, _ = c.tokens()
		return c.doWithRetry(ctx, method, path, payload, token, out)
	}

	return err
}

// doWithRetry retries idempotent requests when the server cannot be reached.
func (c *HTTPClient) doWithRetry(ctx context.Context, method, path string, payload []byte, token string, out any) error {
	if method != http.MethodGet {
		return c.do(ctx, method, path, payload, token, out)
	}

	b := retry.WithMaxRetries(c.retries, retry.NewExponential(c.backoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := c.do(ctx, method, path, payload, token, out)
		if errors.Is(err, ErrUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload []byte, token string, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var e errorResponse
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
