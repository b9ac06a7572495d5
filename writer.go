package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/rs/zerolog"

	transfererrors "github.com/input-output-hk/catalyst-forge-libs/storage/transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/transfer/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/storage/transfer/streams"
)

// Writer moves one logical payload into a remote object store.
//
// The Writer is size-adaptive: payloads at or below the simple threshold are
// uploaded in a single request, larger payloads go through a backend-issued
// upload session as a strictly sequential run of factor-aligned chunks. The
// session is implicitly committed by the backend when it accepts the chunk
// whose end offset equals total-1; no separate commit call is issued.
//
// A Writer is exclusively owned by the logical write that constructed it and
// must not be shared across concurrent writes. Many Writers may run
// concurrently, one per object.
type Writer struct {
	backend  Backend
	path     string
	fileName string
	cfg      Config
	closed   bool
}

// sessionRequest is the session-creation request body: the target item, its
// desired name, and a conflict-resolution directive.
type sessionRequest struct {
	Item sessionItem `json:"item"`
}

type sessionItem struct {
	ODataType        string `json:"@odata.type"`
	ConflictBehavior string `json:"@microsoft.graph.conflictBehavior"`
	Name             string `json:"name"`
}

// New creates a Writer targeting path on backend.
//
// The path is validated before any request: it must be non-empty, carry an
// extractable file name, and contain no traversal sequences or control
// characters. Threshold and chunk factor overrides are validated here as well.
//
// Example:
//
//	w, err := transfer.New(backend, "reports/2026/q2.parquet",
//	    transfer.WithProgress(tracker),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := w.Write(ctx, payload); err != nil {
//	    return err
//	}
func New(backend Backend, path string, opts ...Option) (*Writer, error) {
	if backend == nil {
		return nil, transfererrors.NewError("new", transfererrors.ErrInvalidConfig).
			WithMessage("backend cannot be nil")
	}
	if err := validation.ValidatePath(path); err != nil {
		return nil, err
	}

	cfg := Config{
		SimpleThreshold:  DefaultSimpleThreshold,
		ChunkFactor:      DefaultChunkFactor,
		ConflictBehavior: ConflictReplace,
		Logger:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.SimpleThreshold <= 0 {
		return nil, transfererrors.NewPathError("new", path, transfererrors.ErrInvalidConfig).
			WithMessage("simple threshold must be positive")
	}
	if cfg.ChunkFactor <= 0 {
		return nil, transfererrors.NewPathError("new", path, transfererrors.ErrInvalidConfig).
			WithMessage("chunk factor must be positive")
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = billy.NewOSFS("/")
	}

	return &Writer{
		backend:  backend,
		path:     path,
		fileName: validation.FileName(path),
		cfg:      cfg,
	}, nil
}

// Write uploads payload to the Writer's target path.
//
// If len(payload) is at or below the simple threshold the write is one
// request; otherwise the payload is partitioned into factor-aligned chunks and
// uploaded through an upload session, strictly in ascending offset order.
//
// There is no internal retry and no partial-success result: the first failure
// surfaces immediately and the write fails as a whole, even though earlier
// chunks may have landed remotely as an orphaned, uncommitted partial object.
// Retry and backoff belong to the caller's layering.
func (w *Writer) Write(ctx context.Context, payload []byte) error {
	if w.closed {
		return transfererrors.NewPathError("write", w.path, transfererrors.ErrWriterClosed)
	}

	var err error
	if int64(len(payload)) <= w.cfg.SimpleThreshold {
		err = w.writeSimple(ctx, payload)
	} else {
		err = w.writeChunked(ctx, payload)
	}

	if err != nil {
		if w.cfg.Tracker != nil {
			w.cfg.Tracker.Error(err)
		}
		return err
	}
	if w.cfg.Tracker != nil {
		w.cfg.Tracker.Complete()
	}
	return nil
}

// WriteFrom reads r to its end and uploads the content. The payload is
// materialized to determine its size; arbitrarily large inputs should be
// streamed through the chunked path by the surrounding application instead.
func (w *Writer) WriteFrom(ctx context.Context, r io.Reader) error {
	if r == nil {
		return transfererrors.NewPathError("write", w.path, transfererrors.ErrInvalidConfig).
			WithMessage("reader cannot be nil")
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return transfererrors.NewPathError("write", w.path, err)
	}
	return w.Write(ctx, payload)
}

// WriteFile uploads a file from the local filesystem.
//
// The file is read through the configured filesystem abstraction, so tests can
// supply an in-memory filesystem via WithFilesystem.
func (w *Writer) WriteFile(ctx context.Context, localPath string) error {
	if localPath == "" {
		return transfererrors.NewPathError("writeFile", w.path, transfererrors.ErrInvalidConfig).
			WithMessage("local path cannot be empty")
	}

	info, err := w.cfg.Filesystem.Stat(localPath)
	if err != nil {
		return transfererrors.NewPathError("writeFile", w.path, err)
	}
	if info.IsDir() {
		return transfererrors.NewPathError("writeFile", w.path, transfererrors.ErrInvalidConfig).
			WithMessage("local path points to a directory, not a file")
	}

	file, err := w.cfg.Filesystem.Open(localPath)
	if err != nil {
		return transfererrors.NewPathError("writeFile", w.path, err)
	}
	defer file.Close()

	return w.WriteFrom(ctx, file)
}

// Abort signals that the in-progress write should stop. It is safe to call at
// any point and never corrupts local state.
//
// Known gap: Abort is currently a no-op. A backend that supports session
// cancellation should have its session cancelled here to avoid orphaned
// partial uploads; that requires the Writer to retain the created session,
// which it deliberately does not do yet.
func (w *Writer) Abort(ctx context.Context) error {
	return nil
}

// Close finalizes the write. Both paths complete transactionally inside Write
// (the final chunk commits the session), so Close only marks the Writer
// unusable for further writes.
func (w *Writer) Close(ctx context.Context) error {
	w.closed = true
	return nil
}

// writeSimple performs the single-shot path: one Put carrying the full
// payload.
func (w *Writer) writeSimple(ctx context.Context, payload []byte) error {
	size := int64(len(payload))

	resp, err := w.backend.Put(ctx, w.path, size, w.contentType(payload), bytes.NewReader(payload))
	if err != nil {
		return transfererrors.NewPathError("write", w.path, err)
	}

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
	default:
		return transfererrors.NewPathError("write", w.path,
			transfererrors.ParseRemote(resp.StatusCode, resp.Body))
	}

	w.cfg.Logger.Debug().
		Str("path", w.path).
		Int64("size", size).
		Msg("single-shot upload accepted")

	if w.cfg.Tracker != nil {
		w.cfg.Tracker.Update(size, size)
	}
	return nil
}

// writeChunked performs the session path: create the session, then upload
// factor-aligned chunks strictly in ascending offset order. Any rejected
// chunk fails the write as a whole; remaining chunks are not sent.
func (w *Writer) writeChunked(ctx context.Context, payload []byte) error {
	session, err := w.createSession(ctx)
	if err != nil {
		return err
	}

	total := int64(len(payload))
	src := streams.NewReaderSource(bytes.NewReader(payload), int(w.cfg.ChunkFactor))
	defer src.Release()

	var offset int64
	for {
		seg, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return transfererrors.NewPathError("write", w.path, err)
		}

		end := offset + int64(len(seg)) - 1
		if err := checkChunkFraming(offset, end, total, w.cfg.ChunkFactor); err != nil {
			return transfererrors.NewPathError("write", w.path, err)
		}

		resp, err := w.backend.SessionUpload(ctx, session.UploadURL, offset, end, total, bytes.NewReader(seg))
		if err != nil {
			return transfererrors.NewPathError("write", w.path, err)
		}

		switch resp.StatusCode {
		case http.StatusAccepted, http.StatusCreated, http.StatusOK:
		default:
			return transfererrors.NewPathError("write", w.path,
				transfererrors.ParseRemote(resp.StatusCode, resp.Body))
		}

		w.cfg.Logger.Debug().
			Str("path", w.path).
			Int64("start", offset).
			Int64("end", end).
			Int64("total", total).
			Msg("chunk accepted")

		offset = end + 1
		if w.cfg.Tracker != nil {
			w.cfg.Tracker.Update(offset, total)
		}
	}

	if offset != total {
		return transfererrors.NewPathError("write", w.path,
			fmt.Errorf("%w: payload ended at offset %d of declared %d",
				transfererrors.ErrProtocol, offset, total))
	}
	return nil
}

// createSession issues the session-creation request and parses the session
// endpoint out of the response.
func (w *Writer) createSession(ctx context.Context) (*UploadSession, error) {
	reqBody := sessionRequest{
		Item: sessionItem{
			ODataType:        "microsoft.graph.driveItemUploadableProperties",
			ConflictBehavior: w.cfg.ConflictBehavior,
			Name:             w.fileName,
		},
	}
	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return nil, transfererrors.NewPathError("createSession", w.path, err)
	}

	resp, err := w.backend.Post(ctx, w.path, bytes.NewReader(encoded))
	if err != nil {
		return nil, transfererrors.NewPathError("createSession", w.path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, transfererrors.NewPathError("createSession", w.path,
			transfererrors.ParseRemote(resp.StatusCode, resp.Body))
	}

	var session UploadSession
	if err := json.Unmarshal(resp.Body, &session); err != nil {
		return nil, transfererrors.NewPathError("createSession", w.path, err).
			WithMessage("malformed session response")
	}
	if session.UploadURL == "" {
		return nil, transfererrors.NewPathError("createSession", w.path, transfererrors.ErrBackend).
			WithMessage("session response carries no upload endpoint")
	}

	w.cfg.Logger.Debug().
		Str("path", w.path).
		Str("expires", session.ExpirationDateTime).
		Msg("upload session created")

	return &session, nil
}

// checkChunkFraming enforces the chunk invariants before a request is sent:
// ranges stay inside the payload, and every non-final chunk length is an
// exact multiple of the chunk factor. A violation is a defect in the engine,
// reported as ErrProtocol rather than sent to the remote.
func checkChunkFraming(start, end, total, factor int64) error {
	length := end - start + 1
	if start < 0 || end < start || end >= total {
		return fmt.Errorf("%w: chunk range %d-%d outside payload of %d bytes",
			transfererrors.ErrProtocol, start, end, total)
	}
	if end != total-1 && length%factor != 0 {
		return fmt.Errorf("%w: non-final chunk of %d bytes is not a multiple of factor %d",
			transfererrors.ErrProtocol, length, factor)
	}
	return nil
}

// contentType resolves the content type for the single-shot path: the declared
// type when configured, otherwise sniffed from the payload.
func (w *Writer) contentType(payload []byte) string {
	if w.cfg.ContentType != "" {
		return w.cfg.ContentType
	}
	if mt := mimetype.Detect(payload); mt != nil {
		return mt.String()
	}
	return DefaultContentType
}
