// Package client wraps outbound calls to the catalog backend. It attaches
// the session's bearer token and, when the backend rejects it, refreshes
// the access token once and replays the original request.
package client

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

	"catalog-admin/internal/apperror"
	"catalog-admin/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// RefreshPath is the backend endpoint that exchanges a refresh token
	RefreshPath = "/token/refresh/"

	// DefaultTimeout bounds a single round trip
	DefaultTimeout = 10 * time.Second

	refreshFailedMessage = "Failed to refresh token."
)

var (
	ErrNoRefreshToken = errors.New("no refresh token")
	ErrEmptyToken     = errors.New("refresh response carried no access token")
)

// TokenSource is the session whose tokens a request is sent with. It is
// passed explicitly with every call instead of living in shared state.
type TokenSource interface {
	Tokens() domain.Tokens
	SetAccessToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Request describes one backend call
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any

	// Public requests (sign-in, refresh) carry no token and are never
	// retried.
	Public bool
}

// Response is a backend answer of any status
type Response struct {
	Status  int
	Header  http.Header
	Body    []byte
	Retried bool
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Decode unmarshals the payload into v, unwrapping a {"data": ...}
// envelope when there is one.
func (r *Response) Decode(v any) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(r.Body, &envelope); err == nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		return json.Unmarshal(envelope.Data, v)
	}
	return json.Unmarshal(r.Body, v)
}

// Client talks to one backend. It is safe for concurrent use by many
// sessions.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	refreshes  singleflight.Group
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the round trip timeout of the default *http.Client
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a Client for baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root the client was built with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req on behalf of ts. Any HTTP status is returned as a Response;
// the error is reserved for a missing response (*apperror.RequestError
// with the no-connection message) and for an unrecoverable session
// (*apperror.AuthError, after ts has been cleared).
//
// An unauthorized answer (401 or 403) triggers at most one refresh and one
// replay. Concurrent refreshes of the same refresh token share one call.
func (c *Client) Do(ctx context.Context, ts TokenSource, req Request) (*Response, error) {
	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	if req.Public || ts == nil {
		return c.send(ctx, req, body, "")
	}

	sentToken := ts.Tokens().AccessToken
	resp, err := c.send(ctx, req, body, sentToken)
	if err != nil {
		return nil, err
	}
	if !unauthorized(resp.Status) {
		return resp, nil
	}

	c.logger.Debug("Access token rejected, refreshing",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.Status),
	)

	token, err := c.refreshFor(ctx, ts, sentToken)
	if err != nil {
		return nil, err
	}

	retried, err := c.send(ctx, req, body, token)
	if err != nil {
		return nil, err
	}
	retried.Retried = true
	return retried, nil
}

// refreshFor returns a usable access token for ts. When another request of
// the same session already replaced the token that was rejected, that
// newer token is reused instead of refreshing again.
//
// The shared refresh runs detached from any one caller, so a caller that
// gives up only abandons its own wait. Its error is the caller's context
// error and the session is left as it is.
func (c *Client) refreshFor(ctx context.Context, ts TokenSource, rejected string) (string, error) {
	current := ts.Tokens()
	if current.AccessToken != "" && current.AccessToken != rejected {
		return current.AccessToken, nil
	}

	if current.RefreshToken == "" {
		c.clear(ctx, ts)
		return "", &apperror.AuthError{}
	}

	results := c.refreshes.DoChan(current.RefreshToken, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout())
		defer cancel()

		if latest := ts.Tokens().AccessToken; latest != "" && latest != rejected {
			return latest, nil
		}
		token, err := c.refresh(flightCtx, current.RefreshToken)
		if err != nil {
			c.logger.Info("Token refresh failed, clearing session", zap.Error(err))
			c.clear(flightCtx, ts)
			return nil, &apperror.AuthError{}
		}
		if err := ts.SetAccessToken(flightCtx, token); err != nil {
			c.logger.Error("Failed to persist refreshed access token, clearing session", zap.Error(err))
			c.clear(flightCtx, ts)
			return nil, &apperror.AuthError{}
		}
		return token, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return "", apperror.Canceled(ctx.Err())
	case res = <-results:
	}

	if res.Err != nil {
		// The flight cleared only the source it ran with
		if res.Shared && ts.Tokens() != (domain.Tokens{}) {
			c.clear(context.WithoutCancel(ctx), ts)
		}
		return "", res.Err
	}

	token := res.Val.(string)
	if res.Shared && ts.Tokens().AccessToken != token {
		if err := ts.SetAccessToken(ctx, token); err != nil {
			return "", fmt.Errorf("failed to persist refreshed access token: %w", err)
		}
	}

	c.logger.Debug("Access token refreshed", zap.Bool("shared", res.Shared))
	return token, nil
}

func (c *Client) refreshTimeout() time.Duration {
	if c.httpClient.Timeout > 0 {
		return c.httpClient.Timeout
	}
	return DefaultTimeout
}

// refresh exchanges refreshToken for a new access token
func (c *Client) refresh(ctx context.Context, refreshToken string) (string, error) {
	body, err := encodeBody(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return "", err
	}

	resp, err := c.send(ctx, Request{Method: http.MethodPost, Path: RefreshPath, Public: true}, body, "")
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", apperror.Normalize(resp.Status, resp.Body, refreshFailedMessage)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := resp.Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", ErrEmptyToken
	}
	return payload.AccessToken, nil
}

func (c *Client) clear(ctx context.Context, ts TokenSource) {
	if err := ts.Clear(ctx); err != nil {
		c.logger.Error("Failed to clear session tokens", zap.Error(err))
	}
}

// send performs one round trip. It builds a fresh *http.Request every time
// so a replay carries exactly the original method, path, query and body.
func (c *Client) send(ctx context.Context, req Request, body []byte, token string) (*Response, error) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apperror.Canceled(ctxErr)
		}
		c.logger.Warn("Backend unreachable",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", apperror.ErrNoConnection, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrNoConnection, err)
	}

	c.logger.Debug("Backend request completed",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	return &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Body:   data,
	}, nil
}

func encodeBody(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unauthorized(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}
