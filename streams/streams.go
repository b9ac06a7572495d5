// Package streams provides the byte-movement shapes the transfer pipeline is
// built from, and total conversions between them.
//
// Two shapes are primitive: Source, a pull-based producer of byte segments,
// and Sink, a push-based consumer with an explicit completion signal. The
// package bridges them to the standard library's io.Reader and io.Writer so
// the same pipeline can sit in front of any backend. Each adapter consumes the
// wrapped object exactly once and holds at most one in-flight segment unless
// its documentation says otherwise.
package streams

import (
	"context"
	"errors"
	"io"
)

// Source is a lazy, sequential, demand-driven producer of byte segments.
//
// Next returns the next available segment, or io.EOF once the source is
// exhausted. The returned slice is only valid until the following call to
// Next; callers that retain a segment must copy it. A Source is not safe for
// concurrent use.
type Source interface {
	Next(ctx context.Context) ([]byte, error)
}

// Sink consumes byte segments as they become available. Close signals
// end-of-data and must be called exactly once after the final Push.
type Sink interface {
	Push(ctx context.Context, p []byte) error
	Close(ctx context.Context) error
}

// Restarter is implemented by sources that can rewind to their beginning.
// SeekableReader uses it to honor backward seeks past its retained window.
type Restarter interface {
	Restart(ctx context.Context) error
}

// Drain pulls every segment from src and pushes it into sink, closing the
// sink once src reports io.EOF. The first error from either side stops the
// transfer and is returned; the sink is not closed on error.
func Drain(ctx context.Context, src Source, sink Sink) error {
	for {
		seg, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return sink.Close(ctx)
		}
		if err != nil {
			return err
		}
		if len(seg) == 0 {
			continue
		}
		if err := sink.Push(ctx, seg); err != nil {
			return err
		}
	}
}
