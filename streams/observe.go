package streams

import (
	"context"
)

// TransferEvent reports one successful transfer through an observed source or
// sink. It carries no ownership over the underlying bytes.
type TransferEvent struct {
	// Bytes is the number of bytes moved by the observed operation
	Bytes int64
}

// EventFunc consumes transfer events. It is called synchronously with the
// transfer, so slow consumers slow the pipeline.
type EventFunc func(TransferEvent)

// ObserveSource wraps src so that every successful pull of a non-empty segment
// emits exactly one TransferEvent before control returns to the caller. Failed
// pulls and end-of-data emit nothing. The bytes flowing through are unaltered.
func ObserveSource(src Source, fn EventFunc) Source {
	return &observedSource{src: src, fn: fn}
}

// ObserveSink wraps sink so that every successful push emits exactly one
// TransferEvent before control returns to the caller. Failed pushes emit
// nothing. The bytes flowing through are unaltered.
func ObserveSink(sink Sink, fn EventFunc) Sink {
	return &observedSink{sink: sink, fn: fn}
}

type observedSource struct {
	src Source
	fn  EventFunc
}

func (o *observedSource) Next(ctx context.Context) ([]byte, error) {
	seg, err := o.src.Next(ctx)
	if err != nil {
		return nil, err
	}
	if len(seg) > 0 {
		o.fn(TransferEvent{Bytes: int64(len(seg))})
	}
	return seg, nil
}

type observedSink struct {
	sink Sink
	fn   EventFunc
}

func (o *observedSink) Push(ctx context.Context, p []byte) error {
	if err := o.sink.Push(ctx, p); err != nil {
		return err
	}
	if len(p) > 0 {
		o.fn(TransferEvent{Bytes: int64(len(p))})
	}
	return nil
}

func (o *observedSink) Close(ctx context.Context) error {
	return o.sink.Close(ctx)
}
