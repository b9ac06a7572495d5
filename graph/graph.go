// Package graph provides a conforming transfer.Backend for Microsoft
// Graph-style drive APIs.
//
// It owns everything provider-specific: endpoint construction, path encoding,
// bearer authentication, and the HTTP transport (resty). The chunk protocol
// itself (session creation, Content-Range framing, implicit commit on the
// final chunk) is driven by the transfer.Writer.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/input-output-hk/catalyst-forge-libs/storage/transfer"
	transfererrors "github.com/input-output-hk/catalyst-forge-libs/storage/transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/transfer/walk"
)

// DefaultBaseURL is the Graph endpoint for the signed-in user's drive.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0/me"

// Backend implements transfer.Backend over a Graph-style drive API.
type Backend struct {
	client  *resty.Client
	baseURL string
}

// Config holds the backend's configuration, populated through functional
// options.
type Config struct {
	// BaseURL is the API root; defaults to DefaultBaseURL
	BaseURL string

	// AccessToken is the bearer token attached to every request
	AccessToken string

	// Timeout bounds each request; zero means no timeout
	Timeout time.Duration

	// HTTPClient overrides the underlying HTTP client, mainly for tests
	HTTPClient *http.Client
}

// Option is a functional option for configuring the backend.
type Option func(*Config)

// WithBaseURL sets the API root. Useful for sovereign-cloud endpoints or test
// servers.
func WithBaseURL(baseURL string) Option {
	return func(c *Config) {
		c.BaseURL = baseURL
	}
}

// WithAccessToken sets the bearer token attached to every request.
func WithAccessToken(token string) Option {
	return func(c *Config) {
		c.AccessToken = token
	}
}

// WithTimeout bounds each request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// New creates a Graph drive backend.
func New(opts ...Option) (*Backend, error) {
	cfg := Config{
		BaseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, transfererrors.NewError("graph", transfererrors.ErrInvalidConfig).
			WithMessage(fmt.Sprintf("malformed base URL %q", cfg.BaseURL))
	}

	var client *resty.Client
	if cfg.HTTPClient != nil {
		client = resty.NewWithClient(cfg.HTTPClient)
	} else {
		client = resty.New()
	}
	if cfg.AccessToken != "" {
		client.SetAuthToken(cfg.AccessToken)
	}
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Backend{
		client:  client,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
	}, nil
}

// Put performs a single-shot content upload:
// PUT {base}/drive/root:{path}:/content.
func (b *Backend) Put(
	ctx context.Context,
	path string,
	size int64,
	contentType string,
	body io.Reader,
) (*transfer.Response, error) {
	req := b.client.R().
		SetContext(ctx).
		SetHeader("Content-Length", fmt.Sprintf("%d", size)).
		SetBody(body)
	if contentType != "" {
		req.SetHeader("Content-Type", contentType)
	}

	resp, err := req.Put(b.itemURL(path, "content"))
	if err != nil {
		return nil, err
	}
	return toResponse(resp), nil
}

// Post creates an upload session:
// POST {base}/drive/root:{path}:/createUploadSession.
func (b *Backend) Post(ctx context.Context, path string, body io.Reader) (*transfer.Response, error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(b.itemURL(path, "createUploadSession"))
	if err != nil {
		return nil, err
	}
	return toResponse(resp), nil
}

// SessionUpload uploads one chunk against the session endpoint with an
// inclusive Content-Range.
func (b *Backend) SessionUpload(
	ctx context.Context,
	sessionURL string,
	start, end, total int64,
	body io.Reader,
) (*transfer.Response, error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, total)).
		SetHeader("Content-Length", fmt.Sprintf("%d", end-start+1)).
		SetBody(body).
		Put(sessionURL)
	if err != nil {
		return nil, err
	}
	return toResponse(resp), nil
}

// List implements walk.Lister over
// GET {base}/drive/root:{path}:/children.
func (b *Backend) List(ctx context.Context, key string) ([]walk.Entry, error) {
	var endpoint string
	if key == "" {
		endpoint = b.baseURL + "/drive/root/children"
	} else {
		endpoint = b.itemURL(key, "children")
	}

	resp, err := b.client.R().SetContext(ctx).Get(endpoint)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, transfererrors.ParseRemote(resp.StatusCode(), resp.Body())
	}

	var listing childListing
	if err := json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, transfererrors.NewPathError("list", key, err).
			WithMessage("malformed children response")
	}

	entries := make([]walk.Entry, 0, len(listing.Value))
	for _, item := range listing.Value {
		childKey := item.Name
		if key != "" {
			childKey = key + "/" + item.Name
		}
		entries = append(entries, walk.Entry{
			Key: childKey,
			Dir: item.Folder != nil,
		})
	}
	return entries, nil
}

// childListing mirrors the drive children envelope. Folder presence marks a
// container.
type childListing struct {
	Value []struct {
		Name   string           `json:"name"`
		Folder *json.RawMessage `json:"folder"`
	} `json:"value"`
}

// toResponse converts a resty response into the backend-neutral shape the
// Writer consumes. resty buffers the body, so it is fully read here.
func toResponse(resp *resty.Response) *transfer.Response {
	return &transfer.Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
	}
}

// itemURL builds {base}/drive/root:{encoded path}:/{verb}.
func (b *Backend) itemURL(path, verb string) string {
	return fmt.Sprintf("%s/drive/root:/%s:/%s", b.baseURL, encodePath(path), verb)
}

// encodePath percent-encodes each path segment, preserving the separators.
func encodePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

var (
	_ transfer.Backend = (*Backend)(nil)
	_ walk.Lister      = (*Backend)(nil)
)
