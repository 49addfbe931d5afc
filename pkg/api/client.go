// Package api implements the GitHub API client used by tapbump: an
// authenticated transport for REST and GraphQL calls, a classifier that maps
// HTTP failures onto a structured error taxonomy, and a pagination driver
// for cursor- and page-based traversals.
//
// The transport never retries. Retry policy belongs to callers, which catch
// ErrRateLimitExceeded and friends with errors.Is and decide whether to
// sleep, degrade to a partial result, or abort.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sgaunet/bullets"
	"golang.org/x/oauth2"

	"github.com/sgaunet/tapbump/internal/logger"
)

const (
	defaultBaseURL    = "https://api.github.com"
	defaultGraphQLURL = "https://api.github.com/graphql"
	defaultUploadsURL = "https://uploads.github.com"

	acceptHeader = "application/vnd.github+json"
	apiVersion   = "2022-11-28"
	userAgent    = "tapbump"

	requestTimeout = 30 * time.Second

	// DefaultPageSize is used when a request does not set its own.
	DefaultPageSize = 100
)

// noAPIEnvVar disables all API calls when set to a non-empty value.
const noAPIEnvVar = "TAPBUMP_NO_API"

// Request describes one API call. Constructed per call, not retained.
type Request struct {
	// URL must be absolute.
	URL    string
	Method string

	// Body, when non-nil, is JSON-encoded into the request body.
	Body any

	// BinaryPath, when set, streams the named file as the request body with
	// an octet-stream content type. Mutually exclusive with Body.
	BinaryPath string

	// Scopes the caller needs authorized. Informational: the call is always
	// attempted, but a 403 response is translated into an authentication
	// error naming these scopes.
	Scopes []string

	// PageSize used by the pagination driver. Zero means DefaultPageSize.
	PageSize int

	// Resource names the entity this request targets, for error messages.
	Resource string
}

// Response is a completed API call: status, headers, and the raw JSON body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       json.RawMessage
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode API response: %w", err)
	}
	return nil
}

// Client performs authenticated requests against the GitHub REST and GraphQL
// APIs. Credentials are resolved once at construction and immutable after.
type Client struct {
	httpClient *http.Client
	baseURL    string
	graphqlURL string
	uploadsURL string
	creds      Credentials
	disabled   bool
	log        *bullets.Logger

	mu            sync.Mutex
	grantedScopes []string
}

// NewClient creates a client with credentials resolved from the environment
// and credential store. A missing credential is not an error.
func NewClient() *Client {
	return NewClientWithCredentials(ResolveCredentials())
}

// NewClientWithCredentials creates a client using the given credentials.
func NewClientWithCredentials(creds Credentials) *Client {
	httpClient := &http.Client{Timeout: requestTimeout}
	if !creds.IsAnonymous() {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.Token.Value()})
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = requestTimeout
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    defaultBaseURL,
		graphqlURL: defaultGraphQLURL,
		uploadsURL: defaultUploadsURL,
		creds:      creds,
		disabled:   os.Getenv(noAPIEnvVar) != "",
		log:        logger.NoLogger(),
	}
}

// SetLogger sets the logger used for debug output.
func (c *Client) SetLogger(log *bullets.Logger) {
	c.log = log
}

// SetBaseURLs overrides the REST, GraphQL and uploads endpoints. Used for
// GitHub Enterprise deployments and tests. Empty strings leave the current
// value in place.
func (c *Client) SetBaseURLs(base, graphql, uploads string) {
	if base != "" {
		c.baseURL = strings.TrimSuffix(base, "/")
	}
	if graphql != "" {
		c.graphqlURL = graphql
	}
	if uploads != "" {
		c.uploadsURL = strings.TrimSuffix(uploads, "/")
	}
}

// Credentials returns the credentials the client was built with.
func (c *Client) Credentials() Credentials {
	return c.creds
}

// GrantedScopes returns the scopes reported by the server on the most recent
// response, via the X-OAuth-Scopes header.
func (c *Client) GrantedScopes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.grantedScopes...)
}

// restURL joins path segments onto the REST base URL.
func (c *Client) restURL(format string, args ...any) string {
	return c.baseURL + "/" + fmt.Sprintf(format, args...)
}

// Do performs one authenticated request and returns the parsed response, or
// a classified error. It does not retry.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.disabled {
		return nil, fmt.Errorf("%w (%s is set)", ErrAPIDisabled, noAPIEnvVar)
	}

	parsed, err := url.Parse(req.URL)
	if err != nil || !parsed.IsAbs() {
		return nil, fmt.Errorf("%w: %q", errURLNotAbsolute, req.URL)
	}

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	c.log.Debug(fmt.Sprintf("%s %s", httpReq.Method, httpReq.URL))
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URL, err)
	}
	defer resp.Body.Close()

	c.recordScopes(resp.Header)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", req.URL, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, classify(resp, body, req.Resource, req.Scopes)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	contentType := ""
	contentLength := int64(0)

	switch {
	case req.BinaryPath != "":
		// #nosec G304 - The asset path is supplied by the caller on purpose
		f, err := os.Open(req.BinaryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open upload payload: %w", err)
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to stat upload payload: %w", err)
		}
		body = f
		contentType = "application/octet-stream"
		contentLength = info.Size()
	case req.Body != nil:
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	httpReq.Header.Set("Accept", acceptHeader)
	httpReq.Header.Set("X-GitHub-Api-Version", apiVersion)
	httpReq.Header.Set("User-Agent", userAgent)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if contentLength > 0 {
		httpReq.ContentLength = contentLength
	}

	return httpReq, nil
}

// recordScopes remembers the granted scopes the server reports on each
// response, so authentication errors can include a scope hint.
func (c *Client) recordScopes(h http.Header) {
	scopes := grantedScopes(h)
	if scopes == nil {
		return
	}
	c.mu.Lock()
	c.grantedScopes = scopes
	c.mu.Unlock()
}
