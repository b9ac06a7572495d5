package streams

import (
	"context"
	"errors"
	"fmt"
	"io"

	transfererrors "github.com/input-output-hk/catalyst-forge-libs/storage/transfer/errors"
)

// SeekableReader turns a forward-only Source into an io.ReadSeeker by
// retaining already-pulled bytes.
//
// Retention policy: by default every pulled byte is retained, which makes any
// backward seek O(1) but lets memory grow with the source. Callers wrapping
// large sources should bound retention with WithRetentionLimit; once the limit
// is hit the oldest bytes are discarded, and a seek back into the discarded
// range fails with ErrUnsupportedSeek unless the source implements Restarter,
// in which case the source is rewound and re-pulled.
type SeekableReader struct {
	src Source
	ctx context.Context

	retained     []byte
	retainedFrom int64 // absolute offset of retained[0]
	cursor       int64 // total bytes pulled from src
	pos          int64 // current read position
	limit        int64 // max retained bytes, 0 means unlimited
	srcEOF       bool
}

// SeekOption configures a SeekableReader.
type SeekOption func(*SeekableReader)

// WithRetentionLimit bounds the number of already-pulled bytes the reader
// keeps for backward seeks. Zero means unlimited.
func WithRetentionLimit(limit int64) SeekOption {
	return func(r *SeekableReader) {
		r.limit = limit
	}
}

// NewSeekableReader creates an io.ReadSeeker over src. The context is used
// for every pull.
func NewSeekableReader(ctx context.Context, src Source, opts ...SeekOption) *SeekableReader {
	r := &SeekableReader{src: src, ctx: ctx}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read implements io.Reader at the current position.
func (r *SeekableReader) Read(p []byte) (int, error) {
	if r.pos < r.retainedFrom {
		if err := r.restart(); err != nil {
			return 0, err
		}
	}

	// Pull until the position is covered or the source ends.
	for r.pos >= r.cursor && !r.srcEOF {
		if err := r.pull(); err != nil {
			return 0, err
		}
	}

	if r.pos >= r.cursor {
		return 0, io.EOF
	}

	off := r.pos - r.retainedFrom
	n := copy(p, r.retained[off:])
	r.pos += int64(n)
	return n, nil
}

// Seek implements io.Seeker. io.SeekEnd is unsupported because the source
// length is unknown until exhausted.
func (r *SeekableReader) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = r.pos + offset
	case io.SeekEnd:
		return 0, fmt.Errorf("%w: seek relative to end of unsized source", transfererrors.ErrUnsupportedSeek)
	default:
		return 0, fmt.Errorf("%w: invalid whence %d", transfererrors.ErrUnsupportedSeek, whence)
	}

	if target < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", transfererrors.ErrUnsupportedSeek, target)
	}
	if target < r.retainedFrom {
		if _, ok := r.src.(Restarter); !ok {
			return 0, fmt.Errorf(
				"%w: offset %d is before the retained window starting at %d",
				transfererrors.ErrUnsupportedSeek, target, r.retainedFrom,
			)
		}
	}

	r.pos = target
	return target, nil
}

// pull reads one segment from the source into the retained buffer, trimming
// the front when the retention limit is exceeded. The trim never discards
// bytes at or after the current position.
func (r *SeekableReader) pull() error {
	seg, err := r.src.Next(r.ctx)
	if errors.Is(err, io.EOF) {
		r.srcEOF = true
		return nil
	}
	if err != nil {
		return err
	}

	r.retained = append(r.retained, seg...)
	r.cursor += int64(len(seg))

	if r.limit > 0 && int64(len(r.retained)) > r.limit {
		excess := int64(len(r.retained)) - r.limit
		if max := r.pos - r.retainedFrom; excess > max {
			excess = max
		}
		if excess > 0 {
			r.retained = r.retained[excess:]
			r.retainedFrom += excess
		}
	}
	return nil
}

// restart rewinds a Restarter source and clears the retained window.
func (r *SeekableReader) restart() error {
	restarter, ok := r.src.(Restarter)
	if !ok {
		return fmt.Errorf(
			"%w: offset %d is before the retained window starting at %d",
			transfererrors.ErrUnsupportedSeek, r.pos, r.retainedFrom,
		)
	}
	if err := restarter.Restart(r.ctx); err != nil {
		return err
	}
	r.retained = r.retained[:0]
	r.retainedFrom = 0
	r.cursor = 0
	r.srcEOF = false
	return nil
}
