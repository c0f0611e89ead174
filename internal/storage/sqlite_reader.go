package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/roman-kulish/hott-telemetry/internal/flight"
)

// SampleReader provides an iterator-based interface for reading the stored
// samples of a session with optional time filtering.
type SampleReader interface {
	// Session returns metadata about the session this reader is accessing.
	Session() *flight.Session

	// Next advances the iterator and returns true if there is another sample
	// to read, false when the iteration is complete or if an error occurred.
	Next(context.Context) bool

	// Current returns the current sample in the iteration.
	// If called after Next() returns false, the behavior is undefined.
	Current() *flight.Sample

	// Error returns any error that occurred during iteration.
	// If Next() returns false, Error() should be checked to distinguish between
	// end of data and an error condition.
	Error() error

	// Close releases any resources associated with the reader.
	// After Close is called, the reader should not be used.
	Close() error
}

// ReaderOption configures a SampleReader with specific filtering criteria.
type ReaderOption func(*SqliteSampleReader)

// WithStartTime excludes samples before the given session time.
func WithStartTime(ms int64) ReaderOption {
	return func(r *SqliteSampleReader) {
		r.startMs = ms
	}
}

// WithEndTime excludes samples after the given session time.
func WithEndTime(ms int64) ReaderOption {
	return func(r *SqliteSampleReader) {
		r.endMs = ms
	}
}

// WithTimeRange sets both start and end time filters.
func WithTimeRange(startMs, endMs int64) ReaderOption {
	return func(r *SqliteSampleReader) {
		r.startMs = startMs
		r.endMs = endMs
	}
}

// SqliteSampleReader implements SampleReader for SQLite database backend.
type SqliteSampleReader struct {
	db *sql.DB

	sessionID int64
	session   *flight.Session

	startMs int64
	endMs   int64

	current *flight.Sample
	rows    *sql.Rows
	err     error
}

var _ SampleReader = (*SqliteSampleReader)(nil)

func newSqliteSampleReader(ctx context.Context, db *sql.DB, sessionID int64, opts ...ReaderOption) (*SqliteSampleReader, error) {
	sr := &SqliteSampleReader{
		db:        db,
		sessionID: sessionID,
		startMs:   0,
		endMs:     math.MaxInt64,
	}
	for _, opt := range opts {
		opt(sr)
	}
	if err := sr.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return sr, nil
}

func (sr *SqliteSampleReader) init(ctx context.Context) error {
	if sr.db == nil {
		return errors.New("database connection required")
	}
	if sr.sessionID <= 0 {
		return errors.New("session ID required")
	}
	if sr.startMs > sr.endMs {
		return fmt.Errorf("start time %d ms is after end time %d ms", sr.startMs, sr.endMs)
	}

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "loading session", fn: sr.loadSession},
		{msg: "initializing query", fn: sr.initQuery},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (sr *SqliteSampleReader) loadSession(ctx context.Context) (err error) {
	stmt, err := sr.db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	sr.session, err = scanSession(stmt.QueryRowContext(ctx, sr.sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("session %d: %w", sr.sessionID, ErrNoData)
	}
	return err
}

func (sr *SqliteSampleReader) initQuery(ctx context.Context) (err error) {
	var n int64
	if err = sr.db.QueryRowContext(ctx, selectSampleCountSQL, sr.sessionID).Scan(&n); err != nil {
		return fmt.Errorf("counting samples: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %d has no samples: %w", sr.sessionID, ErrNoData)
	}

	stmt, err := sr.db.PrepareContext(ctx, selectSamplesSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	if sr.rows, err = stmt.QueryContext(ctx, sr.sessionID, sr.startMs, sr.endMs); err != nil {
		return err
	}
	return nil
}

func (sr *SqliteSampleReader) Session() *flight.Session {
	return sr.session
}

func (sr *SqliteSampleReader) Next(ctx context.Context) bool {
	if sr.err != nil || sr.rows == nil {
		return false
	}

	select {
	case <-ctx.Done():
		sr.err = ctx.Err()
		return false
	default:
	}

	if !sr.rows.Next() {
		sr.err = ErrNoData
		return false
	}

	var data sampleData
	if sr.err = sr.rows.Scan(&data.TimeMs, &data.Points); sr.err != nil {
		sr.err = fmt.Errorf("scanning sample: %w", sr.err)
		return false
	}

	points, err := decodePoints(data.Points)
	if err != nil {
		sr.err = err
		return false
	}

	sr.current = &flight.Sample{TimeMs: data.TimeMs, Points: points}
	return true
}

func (sr *SqliteSampleReader) Current() *flight.Sample {
	return sr.current
}

func (sr *SqliteSampleReader) Error() error {
	if sr.err != nil && !errors.Is(sr.err, ErrNoData) {
		return sr.err
	}
	if sr.rows != nil {
		return sr.rows.Err()
	}
	return nil
}

func (sr *SqliteSampleReader) Close() error {
	if sr.rows != nil {
		err := sr.rows.Close()
		sr.current = nil
		sr.rows = nil
		return err
	}
	return nil
}
