// Package notion implements remote.Store against the Notion REST API.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/notiondb/internal/remote"
)

const (
	// DefaultBaseURL is the public API host.
	DefaultBaseURL = "https://api.notion.com"

	// DefaultVersion is the Notion-Version header sent with every request.
	DefaultVersion = "2022-06-28"

	// DefaultTimeout bounds a single HTTP round trip.
	DefaultTimeout = 30 * time.Second

	// CodeTransportError marks failures that never produced a response.
	CodeTransportError = "transport_error"
)

// Client talks to the Notion API. It performs exactly one HTTP request per
// store call and never retries.
type Client struct {
	baseURL string
	token   string
	version string
	client  *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API host (tests point it at httptest servers).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithVersion overrides the Notion-Version header.
func WithVersion(version string) Option {
	return func(c *Client) {
		if version != "" {
			c.version = version
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client authenticating with token.
func New(token string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		version: DefaultVersion,
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ remote.Store    = (*Client)(nil)
	_ remote.Searcher = (*Client)(nil)
)

// FetchSchema calls GET /v1/databases/{id}.
func (c *Client) FetchSchema(ctx context.Context, databaseID string) (*remote.TableSchema, error) {
	var out remote.TableSchema
	if err := c.do(ctx, http.MethodGet, "/v1/databases/"+url.PathEscape(databaseID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRecord calls POST /v1/pages. A payload without a parent is created
// under databaseID.
func (c *Client) CreateRecord(ctx context.Context, databaseID string, payload remote.Payload) (*remote.Record, error) {
	if payload.Parent == nil {
		payload.Parent = &remote.Parent{DatabaseID: databaseID}
	}
	var out remote.Record
	if err := c.do(ctx, http.MethodPost, "/v1/pages", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryRecords calls POST /v1/databases/{id}/query.
func (c *Client) QueryRecords(ctx context.Context, databaseID string, req remote.QueryRequest) (*remote.QueryResponse, error) {
	var out remote.QueryResponse
	if err := c.do(ctx, http.MethodPost, "/v1/databases/"+url.PathEscape(databaseID)+"/query", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchRecord calls PATCH /v1/pages/{id}.
func (c *Client) PatchRecord(ctx context.Context, pageID string, payload remote.Payload) (*remote.Record, error) {
	var out remote.Record
	if err := c.do(ctx, http.MethodPatch, "/v1/pages/"+url.PathEscape(pageID), payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends one request and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", c.version)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &remote.Error{Code: CodeTransportError, Message: err.Error()}
	}
	defer resp.Body.Close()

	c.logger.Debug("notion request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// decodeError turns an error response into a *remote.Error. Bodies that are
// not JSON produce the message "Unable to parse".
func decodeError(resp *http.Response) *remote.Error {
	out := &remote.Error{Status: resp.StatusCode}

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		out.Message = "Unable to parse"
		return out
	}
	out.Code = body.Code
	out.Message = body.Message
	return out
}
