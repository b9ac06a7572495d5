package transfer

import (
	"context"
	"io"
)

// Response is a backend's reply to one request: an HTTP-style status code and
// the raw response body. The Writer interprets status codes; it only parses
// bodies it owns (session creation and error envelopes).
type Response struct {
	// StatusCode is the HTTP-style status code of the response
	StatusCode int

	// Body is the raw response body, fully read
	Body []byte
}

// Backend is the capability the Writer drives. A conforming type exists per
// real remote store; everything provider-specific (request signing,
// authentication, transport, endpoint construction) lives behind these three
// operations.
//
// Implementations return an error only for transport-level failures. A
// non-success status is reported through the Response so the Writer can parse
// the remote error payload.
type Backend interface {
	// Put performs a single-shot upload of body to the object at path.
	// size is the exact body length; contentType may be empty.
	Put(ctx context.Context, path string, size int64, contentType string, body io.Reader) (*Response, error)

	// Post issues the session-creation request for the object at path. The
	// body is the engine-built session request; the backend derives its own
	// session-creation endpoint from path.
	Post(ctx context.Context, path string, body io.Reader) (*Response, error)

	// SessionUpload uploads one chunk against the session endpoint returned
	// by Post. start and end are inclusive byte offsets out of total.
	SessionUpload(ctx context.Context, sessionURL string, start, end, total int64, body io.Reader) (*Response, error)
}

// UploadSession is the backend-issued, time-limited context grouping a
// sequence of chunk requests into one logical object write. It is created once
// per chunked write, owned by the Writer that created it, and never reused
// across writes.
type UploadSession struct {
	// UploadURL is the session endpoint chunk requests are issued against
	UploadURL string `json:"uploadUrl"`

	// ExpirationDateTime is the provider-formatted session expiry timestamp
	ExpirationDateTime string `json:"expirationDateTime"`
}

// ProgressTracker defines the interface for tracking transfer progress.
// Implementations can provide real-time progress updates during uploads.
type ProgressTracker interface {
	// Update is called after each accepted request with cumulative progress
	Update(bytesTransferred, totalBytes int64)

	// Complete is called when the write completes successfully
	Complete()

	// Error is called when the write fails
	Error(err error)
}
