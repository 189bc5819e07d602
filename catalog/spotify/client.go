// ABOUTME: HTTP client for the Spotify Web API implementing the catalog contract
// ABOUTME: Requests are rate limited client-side and authenticated with an OAuth2 bearer token

// Package spotify adapts the Spotify Web API to catalog.Catalog.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"playlist-simmer/catalog"
)

// DefaultBaseURL is the Spotify Web API root.
const DefaultBaseURL = "https://api.spotify.com/v1"

// Options tunes the client. Zero values select defaults, except MaxRetries
// where zero sends each request once.
type Options struct {
	BaseURL           string
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int // Retries after the first attempt
	Backoff           time.Duration
}

// Client is an HTTP client for the Spotify adapter.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
}

// compile-time interface assertion
var _ catalog.Catalog = (*Client)(nil)

// NewClient constructs a client around an already authenticated http.Client.
func NewClient(httpClient *http.Client, opts Options) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := max(opts.Burst, 1)

	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		limiter:     rate.NewLimiter(limit, burst),
		maxRetries:  opts.MaxRetries,
		baseBackoff: opts.Backoff,
	}
}

// NewTokenClient constructs a client that sends token as an OAuth2 bearer token.
// Obtaining and refreshing the token is left to the caller.
func NewTokenClient(ctx context.Context, token string, opts Options) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return NewClient(oauth2.NewClient(ctx, src), opts)
}

// StatusError reports a non-success HTTP status from the API.
type StatusError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("spotify adapter: %s %s: status %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("spotify adapter: %s %s: status %d", e.Method, e.Endpoint, e.StatusCode)
}

// Is reports 404 responses as catalog.ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == catalog.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// do sends the request with retries and checks the status.
// On success the body is decoded into out when out is non-nil.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(req, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("spotify adapter: decode %s: %w", req.URL.Path, err)
	}

	return nil
}

func statusError(req *http.Request, resp *http.Response) *StatusError {
	se := &StatusError{
		Method:     req.Method,
		Endpoint:   req.URL.Path,
		StatusCode: resp.StatusCode,
	}

	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		se.Message = body.Error.Message
	}

	return se
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("spotify adapter: %w", err)
	}

	return c.do(req, out)
}
