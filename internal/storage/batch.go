package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/roman-kulish/hott-telemetry/internal/flight"
)

// ErrOutOfOrder is returned when a sample is older than the one written before it.
var ErrOutOfOrder = errors.New("sample out of order")

// BatchWriter buffers the samples of one session and stores them in batches.
type BatchWriter struct {
	store     Store
	sessionID int64
	size      int

	buf     []flight.Sample
	lastMs  int64
	written int64
}

// NewBatchWriter creates a writer flushing every size samples.
func NewBatchWriter(store Store, sessionID int64, size int) *BatchWriter {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &BatchWriter{
		store:     store,
		sessionID: sessionID,
		size:      size,
		buf:       make([]flight.Sample, 0, size),
		lastMs:    -1,
	}
}

// Add buffers a sample and flushes a full batch. The points are copied.
func (w *BatchWriter) Add(ctx context.Context, timeMs int64, points []int) error {
	if timeMs < w.lastMs {
		return fmt.Errorf("%w: %d ms after %d ms", ErrOutOfOrder, timeMs, w.lastMs)
	}
	w.lastMs = timeMs

	w.buf = append(w.buf, flight.Sample{TimeMs: timeMs, Points: append([]int(nil), points...)})
	if len(w.buf) >= w.size {
		return w.Flush(ctx)
	}
	return nil
}

// Flush stores the buffered samples.
func (w *BatchWriter) Flush(ctx context.Context) error {
	if len(w.buf) == 0 {
		return nil
	}
	if err := w.store.StoreSamples(ctx, w.sessionID, w.buf); err != nil {
		return fmt.Errorf("storing %d samples: %w", len(w.buf), err)
	}
	w.written += int64(len(w.buf))
	w.buf = w.buf[:0]
	return nil
}

// Written is the number of samples stored so far.
func (w *BatchWriter) Written() int64 {
	return w.written
}
