package storage

import (
	"context"

	"github.com/roman-kulish/hott-telemetry/internal/flight"
)

// Store provides an interface for managing decoded telemetry sessions.
// All operations that write to the database should be considered atomic.
type Store interface {
	// CreateSession stores the metadata of a new session and returns its
	// unique identifier. The session ID and StartTime are set on s.
	CreateSession(ctx context.Context, s *flight.Session) (sessionID int64, err error)

	// FinishSession records the summary and per-sensor statistics of a
	// session in a single transaction.
	FinishSession(ctx context.Context, sessionID int64, summary flight.Summary, sensors []flight.SensorStat) error

	// Session retrieves a session by its ID. It returns ErrNoData if the
	// session does not exist.
	Session(ctx context.Context, id int64) (*flight.Session, error)

	// Sessions returns all sessions ordered by start time.
	Sessions(ctx context.Context) ([]*flight.Session, error)

	// StoreSamples appends samples to a session in a single transaction.
	// Samples must be passed in emission order.
	StoreSamples(ctx context.Context, sessionID int64, samples []flight.Sample) error

	// StoreLaps saves the lap records of a session.
	StoreLaps(ctx context.Context, sessionID int64, laps []flight.Lap) error

	// Laps returns the lap records of a session in stored order.
	Laps(ctx context.Context, sessionID int64) ([]flight.Lap, error)

	// SensorStats returns the per-sensor statistics of a finished session.
	SensorStats(ctx context.Context, sessionID int64) ([]flight.SensorStat, error)

	// Close releases all database connections and resources.
	// It is safe to call Close multiple times.
	Close() error
}
