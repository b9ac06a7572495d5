package streams

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	transfererrors "github.com/input-output-hk/catalyst-forge-libs/storage/transfer/errors"
)

// sliceSource yields its segments in order, then io.EOF. It optionally fails
// at a given pull index and supports Restart.
type sliceSource struct {
	segments [][]byte
	idx      int
	failAt   int
	failErr  error
}

func (s *sliceSource) Next(ctx context.Context) ([]byte, error) {
	if s.failErr != nil && s.idx == s.failAt {
		return nil, s.failErr
	}
	if s.idx >= len(s.segments) {
		return nil, io.EOF
	}
	seg := s.segments[s.idx]
	s.idx++
	return seg, nil
}

func (s *sliceSource) Restart(ctx context.Context) error {
	s.idx = 0
	return nil
}

// recordSink accumulates pushed bytes and counts Close calls.
type recordSink struct {
	buf     bytes.Buffer
	pushes  int
	closes  int
	pushErr error
}

func (s *recordSink) Push(ctx context.Context, p []byte) error {
	if s.pushErr != nil {
		return s.pushErr
	}
	s.pushes++
	s.buf.Write(p)
	return nil
}

func (s *recordSink) Close(ctx context.Context) error {
	s.closes++
	return nil
}

func segments(parts ...string) [][]byte {
	out := make([][]byte, len(parts))
	for i, p := range parts {
		out[i] = []byte(p)
	}
	return out
}

func TestDrain(t *testing.T) {
	ctx := context.Background()

	t.Run("moves every segment then closes once", func(t *testing.T) {
		src := &sliceSource{segments: segments("hello ", "", "world")}
		sink := &recordSink{}

		require.NoError(t, Drain(ctx, src, sink))
		assert.Equal(t, "hello world", sink.buf.String())
		assert.Equal(t, 2, sink.pushes, "empty segments are skipped")
		assert.Equal(t, 1, sink.closes)
	})

	t.Run("source error stops the transfer without closing", func(t *testing.T) {
		srcErr := errors.New("pull failed")
		src := &sliceSource{segments: segments("a", "b", "c"), failAt: 1, failErr: srcErr}
		sink := &recordSink{}

		err := Drain(ctx, src, sink)
		assert.ErrorIs(t, err, srcErr)
		assert.Equal(t, "a", sink.buf.String())
		assert.Equal(t, 0, sink.closes)
	})

	t.Run("sink error stops the transfer without closing", func(t *testing.T) {
		sinkErr := errors.New("push failed")
		src := &sliceSource{segments: segments("a", "b")}
		sink := &recordSink{pushErr: sinkErr}

		err := Drain(ctx, src, sink)
		assert.ErrorIs(t, err, sinkErr)
		assert.Equal(t, 0, sink.closes)
	})
}

func TestSourceReader(t *testing.T) {
	ctx := context.Background()

	t.Run("ReadAll sees every byte once", func(t *testing.T) {
		src := &sliceSource{segments: segments("abc", "defg", "h")}
		r := NewSourceReader(ctx, src)

		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "abcdefgh", string(got))
	})

	t.Run("short reads carry the remainder over", func(t *testing.T) {
		src := &sliceSource{segments: segments("abcdef")}
		r := NewSourceReader(ctx, src)

		p := make([]byte, 2)
		var got []byte
		for {
			n, err := r.Read(p)
			got = append(got, p[:n]...)
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
		}
		assert.Equal(t, "abcdef", string(got))
	})

	t.Run("source error is sticky", func(t *testing.T) {
		srcErr := errors.New("boom")
		src := &sliceSource{segments: segments("a"), failAt: 1, failErr: srcErr}
		r := NewSourceReader(ctx, src)

		p := make([]byte, 8)
		n, err := r.Read(p)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = r.Read(p)
		assert.ErrorIs(t, err, srcErr)
		_, err = r.Read(p)
		assert.ErrorIs(t, err, srcErr, "error repeats without touching the source")
	})
}

func TestReaderSource(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		input       []byte
		segmentSize int
		want        []int
	}{
		{
			name:        "exact multiple",
			input:       bytes.Repeat([]byte{0xAB}, 12),
			segmentSize: 4,
			want:        []int{4, 4, 4},
		},
		{
			name:        "short tail",
			input:       bytes.Repeat([]byte{0xCD}, 10),
			segmentSize: 4,
			want:        []int{4, 4, 2},
		},
		{
			name:        "single short segment",
			input:       []byte("ab"),
			segmentSize: 16,
			want:        []int{2},
		},
		{
			name:        "empty input",
			input:       nil,
			segmentSize: 4,
			want:        nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewReaderSource(bytes.NewReader(tt.input), tt.segmentSize)
			defer src.Release()

			var sizes []int
			var rebuilt []byte
			for {
				seg, err := src.Next(ctx)
				if errors.Is(err, io.EOF) {
					break
				}
				require.NoError(t, err)
				sizes = append(sizes, len(seg))
				rebuilt = append(rebuilt, seg...)
			}

			assert.Equal(t, tt.want, sizes)
			assert.Equal(t, tt.input, []byte(rebuilt))

			// Exhausted sources keep reporting io.EOF.
			_, err := src.Next(ctx)
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestReaderSource_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewReaderSource(bytes.NewReader([]byte("data")), 2)
	defer src.Release()

	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSinkWriter(t *testing.T) {
	ctx := context.Background()

	t.Run("forwards writes and closes once", func(t *testing.T) {
		sink := &recordSink{}
		w := NewSinkWriter(ctx, sink)

		n, err := w.Write([]byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, 5, n)

		require.NoError(t, w.Close())
		require.NoError(t, w.Close())
		assert.Equal(t, 1, sink.closes, "repeated Close reaches the sink once")
		assert.Equal(t, "hello", sink.buf.String())
	})

	t.Run("write after close", func(t *testing.T) {
		sink := &recordSink{}
		w := NewSinkWriter(ctx, sink)
		require.NoError(t, w.Close())

		_, err := w.Write([]byte("late"))
		assert.ErrorIs(t, err, transfererrors.ErrWriterClosed)
		assert.Equal(t, 0, sink.pushes)
	})

	t.Run("push error surfaces", func(t *testing.T) {
		pushErr := errors.New("sink full")
		w := NewSinkWriter(ctx, &recordSink{pushErr: pushErr})

		_, err := w.Write([]byte("x"))
		assert.ErrorIs(t, err, pushErr)
	})
}

func TestCopyThroughAdapters(t *testing.T) {
	// Source → io.Reader → io.Copy → io.Writer → Sink round trip.
	ctx := context.Background()
	src := &sliceSource{segments: segments("the quick ", "brown fox ", "jumps")}
	sink := &recordSink{}

	r := NewSourceReader(ctx, src)
	w := NewSinkWriter(ctx, sink)

	_, err := io.Copy(w, r)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, "the quick brown fox jumps", sink.buf.String())
	assert.Equal(t, 1, sink.closes)
}
