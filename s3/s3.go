package s3

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/storage/transfer"
	transfererrors "github.com/input-output-hk/catalyst-forge-libs/storage/transfer/errors"
)

// sessionTTL is the advertised lifetime of a fabricated upload session. S3
// multipart uploads do not expire on their own, so this mirrors the week-long
// window drive-style providers advertise.
const sessionTTL = 7 * 24 * time.Hour

// Backend implements transfer.Backend over S3 multipart upload.
//
// The session protocol maps as: Post → CreateMultipartUpload (the returned
// session endpoint is an opaque token naming the multipart upload),
// SessionUpload → UploadPart with sequential part numbers, and acceptance of
// the final chunk triggers CompleteMultipartUpload, folding the explicit
// commit S3 requires into the final chunk request. Put maps to PutObject.
//
// Provider failures surface as request errors rather than non-success status
// codes, because the SDK consumes HTTP statuses itself. A failed part upload
// aborts the multipart upload best-effort so no orphaned parts accumulate.
type Backend struct {
	api    API
	bucket string

	mu       sync.Mutex
	sessions map[string]*mpuSession
}

// mpuSession tracks one in-flight multipart upload. Part numbers and ETags
// accumulate here between chunk requests; the engine serializes the chunk
// sequence, so only the map access needs locking.
type mpuSession struct {
	key      string
	uploadID string
	parts    []types.CompletedPart
}

// Config holds the backend's configuration, populated through functional
// options.
type Config struct {
	// Region is the AWS region; empty falls back to the credential chain
	Region string

	// API overrides the SDK client, mainly for tests
	API API
}

// Option is a functional option for configuring the backend.
type Option func(*Config)

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(c *Config) {
		c.Region = region
	}
}

// WithAPI overrides the S3 client implementation. This is primarily used for
// testing with mocked clients.
func WithAPI(api API) Option {
	return func(c *Config) {
		c.API = api
	}
}

// New creates an S3 backend for the given bucket, loading AWS credentials
// through the default chain unless an API override is supplied.
func New(bucket string, opts ...Option) (*Backend, error) {
	if bucket == "" {
		return nil, transfererrors.NewError("s3", transfererrors.ErrInvalidConfig).
			WithMessage("bucket name cannot be empty")
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}

	api := cfg.API
	if api == nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, transfererrors.NewError("s3", err)
		}
		if cfg.Region != "" {
			awsCfg.Region = cfg.Region
		}
		api = s3.NewFromConfig(awsCfg)
	}

	return &Backend{
		api:      api,
		bucket:   bucket,
		sessions: make(map[string]*mpuSession),
	}, nil
}

// Put performs a single-shot upload via PutObject.
func (b *Backend) Put(
	ctx context.Context,
	path string,
	size int64,
	contentType string,
	body io.Reader,
) (*transfer.Response, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(path),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := b.api.PutObject(ctx, input); err != nil {
		return nil, err
	}
	return &transfer.Response{StatusCode: http.StatusOK}, nil
}

// Post creates a multipart upload for the object at path and fabricates the
// session response the engine expects. The engine-built session body is
// drive-specific, so it is ignored here; the target is taken from path.
func (b *Backend) Post(ctx context.Context, path string, body io.Reader) (*transfer.Response, error) {
	output, err := b.api.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return nil, err
	}

	uploadID := aws.ToString(output.UploadId)
	token := fmt.Sprintf("mpu:%s:%s", path, uploadID)

	b.mu.Lock()
	b.sessions[token] = &mpuSession{key: path, uploadID: uploadID}
	b.mu.Unlock()

	session := transfer.UploadSession{
		UploadURL:          token,
		ExpirationDateTime: time.Now().UTC().Add(sessionTTL).Format(time.RFC3339),
	}
	encoded, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	return &transfer.Response{StatusCode: http.StatusOK, Body: encoded}, nil
}

// SessionUpload uploads one chunk as the next part of the session's multipart
// upload. Accepting the chunk whose end offset equals total-1 completes the
// multipart upload before responding, committing the object.
func (b *Backend) SessionUpload(
	ctx context.Context,
	sessionURL string,
	start, end, total int64,
	body io.Reader,
) (*transfer.Response, error) {
	b.mu.Lock()
	session, ok := b.sessions[sessionURL]
	b.mu.Unlock()
	if !ok {
		return nil, transfererrors.NewError("sessionUpload", transfererrors.ErrSessionNotFound)
	}

	partNumber := int32(len(session.parts) + 1)
	output, err := b.api.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(session.key),
		UploadId:      aws.String(session.uploadID),
		PartNumber:    aws.Int32(partNumber),
		ContentLength: aws.Int64(end - start + 1),
		Body:          body,
	})
	if err != nil {
		b.abort(ctx, sessionURL, session)
		return nil, err
	}

	session.parts = append(session.parts, types.CompletedPart{
		ETag:       output.ETag,
		PartNumber: aws.Int32(partNumber),
	})

	if end != total-1 {
		return &transfer.Response{StatusCode: http.StatusAccepted}, nil
	}

	// Final chunk: commit the object.
	_, err = b.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(b.bucket),
		Key:      aws.String(session.key),
		UploadId: aws.String(session.uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: session.parts,
		},
	})
	if err != nil {
		b.abort(ctx, sessionURL, session)
		return nil, err
	}

	b.mu.Lock()
	delete(b.sessions, sessionURL)
	b.mu.Unlock()

	return &transfer.Response{StatusCode: http.StatusCreated}, nil
}

// AbortSession cancels an in-flight session and its multipart upload. Callers
// pairing cancellation with cleanup can invoke this with the session endpoint
// they received.
func (b *Backend) AbortSession(ctx context.Context, sessionURL string) error {
	b.mu.Lock()
	session, ok := b.sessions[sessionURL]
	b.mu.Unlock()
	if !ok {
		return transfererrors.NewError("abortSession", transfererrors.ErrSessionNotFound)
	}
	b.abort(ctx, sessionURL, session)
	return nil
}

// abort drops the session and aborts its multipart upload, ignoring cleanup
// errors.
func (b *Backend) abort(ctx context.Context, token string, session *mpuSession) {
	b.mu.Lock()
	delete(b.sessions, token)
	b.mu.Unlock()

	_, _ = b.api.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(b.bucket),
		Key:      aws.String(session.key),
		UploadId: aws.String(session.uploadID),
	})
}

var _ transfer.Backend = (*Backend)(nil)
