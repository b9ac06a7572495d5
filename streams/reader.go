package streams

import (
	"context"
	"errors"
	"io"

	transfererrors "github.com/input-output-hk/catalyst-forge-libs/storage/transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/transfer/internal/pool"
)

// SourceReader adapts a Source to io.Reader.
//
// Read pulls segments on demand and carries any remainder over to the next
// call, so no byte is lost or duplicated even when read lengths do not match
// segment lengths. The reader is exhausted exactly when the source is.
type SourceReader struct {
	src Source
	ctx context.Context
	rem []byte
	err error
}

// NewSourceReader creates an io.Reader over src. The context is used for every
// pull; long-lived readers can swap it with SetContext between reads.
func NewSourceReader(ctx context.Context, src Source) *SourceReader {
	return &SourceReader{src: src, ctx: ctx}
}

// SetContext replaces the context used for subsequent pulls.
func (r *SourceReader) SetContext(ctx context.Context) {
	r.ctx = ctx
}

// Read implements io.Reader. A short read only means the current segment was
// smaller than len(p), never that data was dropped.
func (r *SourceReader) Read(p []byte) (int, error) {
	if len(r.rem) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		seg, err := r.src.Next(r.ctx)
		if err != nil {
			r.err = err
			return 0, err
		}
		r.rem = seg
	}

	n := copy(p, r.rem)
	r.rem = r.rem[n:]
	return n, nil
}

// ReaderSource adapts an io.Reader to a Source producing fixed-size segments.
//
// Every segment is exactly segmentSize bytes except the final one, which
// carries whatever remains. A ReaderSource consumes its reader once and is not
// restartable. The segment buffer is reused across calls; segments are valid
// only until the next call to Next.
type ReaderSource struct {
	r    io.Reader
	buf  []byte
	done bool
}

// NewReaderSource creates a Source over r emitting segments of segmentSize
// bytes. segmentSize must be positive.
func NewReaderSource(r io.Reader, segmentSize int) *ReaderSource {
	if segmentSize <= 0 {
		segmentSize = pool.DefaultSegmentSize
	}
	return &ReaderSource{
		r:   r,
		buf: pool.Get(segmentSize),
	}
}

// Next implements Source.
func (s *ReaderSource) Next(ctx context.Context) ([]byte, error) {
	if s.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n, err := io.ReadFull(s.r, s.buf)
	switch {
	case err == nil:
		return s.buf, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		// Final, short segment.
		s.done = true
		return s.buf[:n], nil
	case errors.Is(err, io.EOF):
		s.done = true
		return nil, io.EOF
	default:
		s.done = true
		return nil, err
	}
}

// Release returns the internal segment buffer to the shared pool. The source
// must not be used afterwards.
func (s *ReaderSource) Release() {
	pool.Put(s.buf)
	s.buf = nil
	s.done = true
}

var _ Source = (*ReaderSource)(nil)

// SinkWriter adapts a Sink to io.WriteCloser.
//
// Write forwards each buffer to the sink; Close signals end-of-data to the
// sink exactly once. Writing after Close returns ErrWriterClosed.
type SinkWriter struct {
	sink   Sink
	ctx    context.Context
	closed bool
}

// NewSinkWriter creates an io.WriteCloser over sink. The context is used for
// every push and for the final close.
func NewSinkWriter(ctx context.Context, sink Sink) *SinkWriter {
	return &SinkWriter{sink: sink, ctx: ctx}
}

// Write implements io.Writer.
func (w *SinkWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, transfererrors.ErrWriterClosed
	}
	if err := w.sink.Push(w.ctx, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close implements io.Closer. Repeated calls are no-ops after the first, so
// the sink sees exactly one end-of-data signal.
func (w *SinkWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.sink.Close(w.ctx)
}
