// Package api is the request pipeline between the client and the NuageVault
// REST API. Every call goes through Client.Do, which attaches the session's
// bearer token, encodes the body, clears the session on 401 and turns error
// responses into *Error values carrying the server's message.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is used when no API address is configured (local development)
const DefaultBaseURL = "http://localhost:8000"

// Session is the part of the session store the pipeline needs
type Session interface {
	Token() (string, bool)
	SetToken(token string) error
	Clear() error
}

// Client represents an HTTP client for the NuageVault API
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    Session
	log        zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for API calls
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a new API client. baseURL is normalized with ResolveBaseURL.
func New(baseURL string, session Session, opts ...Option) *Client {
	c := &Client{
		baseURL: ResolveBaseURL(baseURL),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		session: session,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveBaseURL returns configured without trailing slashes, or
// DefaultBaseURL when configured is blank.
func ResolveBaseURL(configured string) string {
	base := strings.TrimSpace(configured)
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/")
}

// BaseURL returns the normalized API address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// Do sends r and decodes a successful JSON response into out (which may be
// nil). It performs no retries.
func (c *Client) Do(ctx context.Context, r *Request, out any) error {
	req, err := c.newHTTPRequest(ctx, r)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", req.Method).Str("path", r.Path).Msg("API request failed")
		return &Error{Message: networkErrorMessage, Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", req.Method).
		Str("path", r.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("API request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &Error{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, body),
		}

		if resp.StatusCode == http.StatusUnauthorized {
			if err := c.session.Clear(); err != nil {
				c.log.Warn().Err(err).Msg("Failed to clear session after 401")
			}
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) newHTTPRequest(ctx context.Context, r *Request) (*http.Request, error) {
	target := c.baseURL + "/" + strings.TrimLeft(r.Path, "/")
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	if r.Body != nil {
		var err error
		body, contentType, err = r.Body.encode()
		if err != nil {
			return nil, err
		}
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range r.Header {
		req.Header[key] = append([]string(nil), values...)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	if token, ok := c.session.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Del("Authorization")
	}

	return req, nil
}
