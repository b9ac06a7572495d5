// Package testutil provides test utilities and mocks for transfer operations.
// This package is internal and should only be used for testing within the
// transfer module.
package testutil

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/input-output-hk/catalyst-forge-libs/storage/transfer"
	"github.com/input-output-hk/catalyst-forge-libs/storage/transfer/walk"
)

// MockBackend is a mock implementation of the transfer.Backend interface.
// It allows customization of each operation through function fields; unset
// fields answer with a plausible success response.
type MockBackend struct {
	PutFunc           func(ctx context.Context, path string, size int64, contentType string, body io.Reader) (*transfer.Response, error)
	PostFunc          func(ctx context.Context, path string, body io.Reader) (*transfer.Response, error)
	SessionUploadFunc func(ctx context.Context, sessionURL string, start, end, total int64, body io.Reader) (*transfer.Response, error)
}

// Put mocks the single-shot upload operation.
func (m *MockBackend) Put(
	ctx context.Context,
	path string,
	size int64,
	contentType string,
	body io.Reader,
) (*transfer.Response, error) {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, path, size, contentType, body)
	}
	return &transfer.Response{StatusCode: http.StatusCreated}, nil
}

// Post mocks the session-creation operation.
func (m *MockBackend) Post(ctx context.Context, path string, body io.Reader) (*transfer.Response, error) {
	if m.PostFunc != nil {
		return m.PostFunc(ctx, path, body)
	}
	return &transfer.Response{StatusCode: http.StatusOK, Body: SessionBody("https://upload.example/session/1")}, nil
}

// SessionUpload mocks the chunk upload operation.
func (m *MockBackend) SessionUpload(
	ctx context.Context,
	sessionURL string,
	start, end, total int64,
	body io.Reader,
) (*transfer.Response, error) {
	if m.SessionUploadFunc != nil {
		return m.SessionUploadFunc(ctx, sessionURL, start, end, total, body)
	}
	return &transfer.Response{StatusCode: http.StatusAccepted}, nil
}

// Ensure MockBackend implements the transfer.Backend interface
var _ transfer.Backend = (*MockBackend)(nil)

// SessionBody builds a session-creation response body carrying the given
// endpoint.
func SessionBody(uploadURL string) []byte {
	body, _ := json.Marshal(transfer.UploadSession{
		UploadURL:          uploadURL,
		ExpirationDateTime: "2026-09-03T00:00:00Z",
	})
	return body
}

// ChunkRecord captures one chunk request observed by RecordingBackend.
type ChunkRecord struct {
	SessionURL string
	Start      int64
	End        int64
	Total      int64
	Payload    []byte
}

// RecordingBackend records every request it receives and answers with
// success. Tests use it to assert request counts, ordering, and framing.
type RecordingBackend struct {
	PutCalls  int
	PutPath   string
	PutSize   int64
	PutType   string
	PutBody   []byte
	PostCalls int
	PostPath  string
	PostBody  []byte
	Chunks    []ChunkRecord

	SessionURL string
}

// NewRecordingBackend creates a RecordingBackend issuing sessions at the
// given endpoint.
func NewRecordingBackend(sessionURL string) *RecordingBackend {
	return &RecordingBackend{SessionURL: sessionURL}
}

// Put records the single-shot upload and accepts it.
func (r *RecordingBackend) Put(
	ctx context.Context,
	path string,
	size int64,
	contentType string,
	body io.Reader,
) (*transfer.Response, error) {
	payload, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	r.PutCalls++
	r.PutPath = path
	r.PutSize = size
	r.PutType = contentType
	r.PutBody = payload
	return &transfer.Response{StatusCode: http.StatusCreated}, nil
}

// Post records the session creation and issues the configured endpoint.
func (r *RecordingBackend) Post(ctx context.Context, path string, body io.Reader) (*transfer.Response, error) {
	reqBody, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	r.PostCalls++
	r.PostPath = path
	r.PostBody = reqBody
	return &transfer.Response{StatusCode: http.StatusOK, Body: SessionBody(r.SessionURL)}, nil
}

// SessionUpload records the chunk and accepts it, answering Created for the
// final chunk.
func (r *RecordingBackend) SessionUpload(
	ctx context.Context,
	sessionURL string,
	start, end, total int64,
	body io.Reader,
) (*transfer.Response, error) {
	payload, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	r.Chunks = append(r.Chunks, ChunkRecord{
		SessionURL: sessionURL,
		Start:      start,
		End:        end,
		Total:      total,
		Payload:    payload,
	})
	if end == total-1 {
		return &transfer.Response{StatusCode: http.StatusCreated}, nil
	}
	return &transfer.Response{StatusCode: http.StatusAccepted}, nil
}

// Ensure RecordingBackend implements the transfer.Backend interface
var _ transfer.Backend = (*RecordingBackend)(nil)

// MockLister is a map-backed walk.Lister: each container key maps to its
// immediate children.
type MockLister struct {
	Tree  map[string][]walk.Entry
	Calls []string
}

// List returns the configured children for key.
func (m *MockLister) List(ctx context.Context, key string) ([]walk.Entry, error) {
	m.Calls = append(m.Calls, key)
	return m.Tree[key], nil
}

// Ensure MockLister implements the walk.Lister interface
var _ walk.Lister = (*MockLister)(nil)

// Payload generates a deterministic payload of n bytes for round-trip
// assertions.
func Payload(n int) []byte {
	payload := make([]byte, n)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	return payload
}
