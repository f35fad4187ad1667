// Package apiclient dispatches storefront REST calls: it resolves named
// routes, injects the bearer token from the session store, and handles
// 401 (one refresh and one retry) and 403 (session cleared).
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"watchstore/internal/apperr"
	"watchstore/internal/config"
	"watchstore/internal/logger"
	"watchstore/internal/tokenstore"
)

const maxBodyBytes = 4 << 20

// Refresher exchanges the stored refresh token for a new pair.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	Routes  config.Routes
	// TokenHeader, when set, also carries the raw access token.
	TokenHeader string
	// HTTPClient overrides the default client; Timeout is ignored then.
	HTTPClient *http.Client
}

type Client struct {
	baseURL     string
	http        *http.Client
	routes      config.Routes
	tokenHeader string
	store       *tokenstore.Store
	log         *slog.Logger

	mu        sync.RWMutex
	refresher Refresher
	refreshMu sync.Mutex
}

func New(opts Options, store *tokenstore.Store, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		http:        hc,
		routes:      opts.Routes,
		tokenHeader: opts.TokenHeader,
		store:       store,
		log:         log.With("component", "apiclient"),
	}
}

// SetRefresher wires the refresh path. The auth manager registers itself
// here once both are built.
func (c *Client) SetRefresher(r Refresher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresher = r
}

func (c *Client) getRefresher() Refresher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refresher
}

type Request struct {
	Route  string
	Params map[string]string
	Query  url.Values
	Body   any
	// NoRetry turns off the 401 refresh-and-retry path. Login, register
	// and refresh itself use it.
	NoRetry bool
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the body into out; an empty body leaves out untouched.
func (r *Response) Decode(out any) error {
	if out == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("apiclient: decode response: %w", err)
	}
	return nil
}

// StatusError is any non-2xx answer the client did not absorb.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("apiclient: %s %s: status=%d body=%s", e.Method, e.Path, e.Status, e.Body)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// IsNotFound reports a 404 answer.
func IsNotFound(err error) bool { return StatusOf(err) == http.StatusNotFound }

// Do sends req. Non-2xx answers come back as *StatusError along with the
// response. A 401 triggers at most one refresh and one retry; a 403 or a
// failed refresh clears the session.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method, path, err := c.routes.Resolve(req.Route, req.Params)
	if err != nil {
		return nil, fmt.Errorf("apiclient: %w", err)
	}
	var body []byte
	if req.Body != nil {
		body, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("apiclient: encode %s body: %w", req.Route, err)
		}
	}

	token := c.store.AccessToken(ctx)
	resp, err := c.send(ctx, method, path, req.Query, body, token)
	if err != nil {
		return nil, err
	}

	if resp.Status == http.StatusUnauthorized && !req.NoRetry {
		return c.retryAfterRefresh(ctx, method, path, req.Query, body, token, resp)
	}
	return resp, c.check(ctx, method, path, resp)
}

// Call is Do plus Decode for the common case.
func (c *Client) Call(ctx context.Context, route string, params map[string]string, body, out any) error {
	resp, err := c.Do(ctx, Request{Route: route, Params: params, Body: body})
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

func (c *Client) check(ctx context.Context, method, path string, resp *Response) error {
	switch {
	case resp.Status == http.StatusForbidden:
		c.clearSession(ctx, "forbidden", method, path)
		return fmt.Errorf("%w: %w", apperr.ErrForbidden, c.statusError(method, path, resp))
	case resp.Status < 200 || resp.Status >= 300:
		return c.statusError(method, path, resp)
	}
	return nil
}

func (c *Client) retryAfterRefresh(ctx context.Context, method, path string, query url.Values, body []byte, usedToken string, first *Response) (*Response, error) {
	if err := c.refresh(ctx, usedToken); err != nil {
		c.clearSession(ctx, "refresh failed", method, path)
		return first, fmt.Errorf("apiclient: %s %s: %w: %w", method, path, apperr.ErrSessionExpired, err)
	}

	resp, err := c.send(ctx, method, path, query, body, c.store.AccessToken(ctx))
	if err != nil {
		return nil, err
	}
	if resp.Status == http.StatusUnauthorized {
		c.clearSession(ctx, "unauthorized after refresh", method, path)
		return resp, fmt.Errorf("%w: %w", apperr.ErrSessionExpired, c.statusError(method, path, resp))
	}
	return resp, c.check(ctx, method, path, resp)
}

// refresh runs one refresh at a time. When another caller already rotated
// the token while this one waited, the new token is used as is.
func (c *Client) refresh(ctx context.Context, usedToken string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if cur := c.store.AccessToken(ctx); cur != "" && cur != usedToken {
		return nil
	}
	if c.store.RefreshToken(ctx) == "" {
		return errors.New("no refresh token")
	}
	r := c.getRefresher()
	if r == nil {
		return errors.New("no refresher configured")
	}
	return r.Refresh(ctx)
}

func (c *Client) clearSession(ctx context.Context, reason, method, path string) {
	c.log.Warn("ending session", "reason", reason, "method", method, "path", path)
	if err := c.store.Clear(ctx); err != nil {
		c.log.Error("clear session", "error", err)
	}
}

func (c *Client) statusError(method, path string, resp *Response) *StatusError {
	return &StatusError{
		Method: method,
		Path:   path,
		Status: resp.Status,
		Body:   strings.TrimSpace(string(truncate(resp.Body, 512))),
	}
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body []byte, token string) (*Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, fmt.Errorf("apiclient: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
		if c.tokenHeader != "" {
			req.Header.Set(c.tokenHeader, token)
		}
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", "method", method, "path", path, "request_id", reqID, "error", err)
		return nil, fmt.Errorf("apiclient: %s %s: %w: %w", method, path, apperr.ErrNetworkFailure, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("apiclient: %s %s: read body: %w: %w", method, path, apperr.ErrNetworkFailure, err)
	}

	c.log.Debug("request",
		"method", method,
		"path", path,
		"status", res.StatusCode,
		"request_id", reqID,
		"token", redactIfSet(token),
		"duration", time.Since(start),
	)
	return &Response{Status: res.StatusCode, Header: res.Header, Body: raw}, nil
}

func redactIfSet(token string) string {
	if token == "" {
		return ""
	}
	return logger.Redact(token)
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
