// Package compress turns an encoded pull source into a decoded one.
//
// The decoder is an explicit state machine (Idle, Decoding, Finished, Failed).
// Any decode error is terminal: once Failed, no partial output is trusted and
// every further pull returns the same error. Unknown algorithm tags are a
// configuration error reported at construction, never a decode error.
package compress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	transfererrors "github.com/input-output-hk/catalyst-forge-libs/storage/transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/transfer/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/storage/transfer/streams"
)

// Algorithm identifies a supported compression format.
type Algorithm string

// Supported algorithms. Zstd is frame-oriented; Gzip and Zlib are streaming
// filters.
const (
	Gzip Algorithm = "gzip"
	Zlib Algorithm = "zlib"
	Zstd Algorithm = "zstd"
)

// State describes where a decoding Source is in its life cycle.
type State int

// Decoder states.
const (
	StateIdle State = iota
	StateDecoding
	StateFinished
	StateFailed
)

// Magic byte prefixes for format detection.
var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Detect determines the compression algorithm from the leading bytes of an
// encoded stream. It returns ErrUnknownCompression when no known magic
// matches.
func Detect(leading []byte) (Algorithm, error) {
	switch {
	case bytes.HasPrefix(leading, gzipMagic):
		return Gzip, nil
	case bytes.HasPrefix(leading, zstdMagic):
		return Zstd, nil
	case isZlibHeader(leading):
		return Zlib, nil
	default:
		return "", fmt.Errorf("%w: unrecognized leading bytes", transfererrors.ErrUnknownCompression)
	}
}

// isZlibHeader reports whether leading starts with a zlib header (RFC 1950):
// CMF 0x78 followed by a valid FLG check byte.
func isZlibHeader(leading []byte) bool {
	if len(leading) < 2 || leading[0] != 0x78 {
		return false
	}
	return (uint16(leading[0])<<8|uint16(leading[1]))%31 == 0
}

// Source decodes an encoded streams.Source.
type Source struct {
	algo Algorithm
	raw  *streams.SourceReader

	dec      io.Reader
	decClose func() error

	state State
	err   error
	buf   []byte
}

// NewSource creates a decoded Source over an encoded one. The algorithm tag is
// validated immediately; decoding starts lazily on the first pull.
func NewSource(src streams.Source, algo Algorithm) (*Source, error) {
	switch algo {
	case Gzip, Zlib, Zstd:
	default:
		return nil, transfererrors.NewError(
			"decompress",
			fmt.Errorf("%w: %q", transfererrors.ErrUnknownCompression, string(algo)),
		)
	}
	return &Source{
		algo: algo,
		raw:  streams.NewSourceReader(context.Background(), src),
		buf:  pool.Get(pool.DefaultSegmentSize),
	}, nil
}

// NewSourceAuto creates a decoded Source, detecting the algorithm from the
// stream's leading bytes. The bytes consumed for detection are replayed to the
// decoder.
func NewSourceAuto(ctx context.Context, src streams.Source) (*Source, error) {
	head, err := src.Next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, transfererrors.NewError(
				"decompress",
				fmt.Errorf("%w: empty stream", transfererrors.ErrUnknownCompression),
			)
		}
		return nil, transfererrors.NewError("decompress", err)
	}

	algo, err := Detect(head)
	if err != nil {
		return nil, transfererrors.NewError("decompress", err)
	}

	// The detection segment is only valid until the next pull, so it must be
	// copied before being replayed.
	replay := append([]byte(nil), head...)
	return NewSource(&prependSource{head: replay, src: src}, algo)
}

// State returns the decoder's current state.
func (s *Source) State() State {
	return s.state
}

// Next implements streams.Source, producing decoded segments.
func (s *Source) Next(ctx context.Context) ([]byte, error) {
	switch s.state {
	case StateFailed:
		return nil, s.err
	case StateFinished:
		return nil, io.EOF
	case StateIdle:
		s.raw.SetContext(ctx)
		if err := s.openDecoder(); err != nil {
			return nil, s.fail(err)
		}
		s.state = StateDecoding
	case StateDecoding:
		s.raw.SetContext(ctx)
	}

	n, err := s.dec.Read(s.buf)
	switch {
	case err == nil:
		return s.buf[:n], nil
	case errors.Is(err, io.EOF):
		s.finish()
		if n > 0 {
			return s.buf[:n], nil
		}
		return nil, io.EOF
	default:
		return nil, s.fail(err)
	}
}

// Release returns the segment buffer to the shared pool and closes the
// decoder. The source must not be used afterwards.
func (s *Source) Release() {
	if s.decClose != nil {
		_ = s.decClose()
		s.decClose = nil
	}
	pool.Put(s.buf)
	s.buf = nil
	if s.state == StateIdle || s.state == StateDecoding {
		s.state = StateFinished
	}
}

// openDecoder constructs the format decoder over the raw reader. Header bytes
// are consumed here, so header corruption surfaces as a Failed state on the
// first pull.
func (s *Source) openDecoder() error {
	switch s.algo {
	case Gzip:
		gr, err := gzip.NewReader(s.raw)
		if err != nil {
			return err
		}
		s.dec = gr
		s.decClose = gr.Close
	case Zlib:
		zr, err := zlib.NewReader(s.raw)
		if err != nil {
			return err
		}
		s.dec = zr
		s.decClose = zr.Close
	case Zstd:
		zr, err := zstd.NewReader(s.raw)
		if err != nil {
			return err
		}
		s.dec = zr
		s.decClose = func() error {
			zr.Close()
			return nil
		}
	}
	return nil
}

func (s *Source) finish() {
	s.state = StateFinished
	if s.decClose != nil {
		_ = s.decClose()
		s.decClose = nil
	}
}

func (s *Source) fail(err error) error {
	s.state = StateFailed
	s.err = transfererrors.NewError("decompress", err)
	if s.decClose != nil {
		_ = s.decClose()
		s.decClose = nil
	}
	return s.err
}

var _ streams.Source = (*Source)(nil)

// prependSource replays a detection segment before delegating to the wrapped
// source.
type prependSource struct {
	head []byte
	src  streams.Source
}

func (p *prependSource) Next(ctx context.Context) ([]byte, error) {
	if p.head != nil {
		head := p.head
		p.head = nil
		return head, nil
	}
	return p.src.Next(ctx)
}
