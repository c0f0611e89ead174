package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/hott-telemetry/internal/flight"
)

// DefaultBatchSize is the number of samples written per insert statement.
const DefaultBatchSize = 500

// maxBatchSize keeps a multi-row insert below the SQLite variable limit.
const maxBatchSize = 10000

// ErrNoData indicates either that no session exists for the given ID, or that
// a session holds no samples for the requested range.
var ErrNoData = errors.New("no data available")

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

var _ Store = (*SqliteStore)(nil)

// NewSqliteStore creates a store backed by the SQLite database at dbPath.
// Connections are opened on first use and the schema is created if missing.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}
		db.SetMaxOpenConns(1)

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateSession(ctx context.Context, sess *flight.Session) (sessionID int64, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	if sess.StartTime.IsZero() {
		sess.StartTime = time.Now()
	}
	sess.StartTime = sess.StartTime.UTC()

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx,
		sess.StartTime,
		string(sess.Kind),
		sess.Source,
		sess.Format,
		sess.Sensors,
		sess.Plan,
		sess.Channels,
		toNullString(sess.Config),
	)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	sessionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
		return
	}
	sess.ID = sessionID
	return
}

func (s *SqliteStore) FinishSession(ctx context.Context, sessionID int64, summary flight.Summary, sensors []flight.SensorStat) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	result, err := tx.ExecContext(ctx, finishSessionSQL,
		summary.Sensors,
		summary.Plan,
		summary.Blocks,
		summary.Lost,
		summary.LossPercent,
		summary.Emitted,
		summary.DurationMs,
		summary.LossRuns,
		summary.LossRunMin,
		summary.LossRunMax,
		summary.LossRunMean,
		summary.LossRunStdDev,
		summary.SampledReadings,
		summary.SampledSlots,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if n, rErr := result.RowsAffected(); rErr == nil && n == 0 {
		return fmt.Errorf("session %d: %w", sessionID, ErrNoData)
	}

	for _, st := range sensors {
		if _, err = tx.ExecContext(ctx, insertSensorStatSQL, sessionID, st.Sensor, st.Accepted, st.Rejected, st.Migrations); err != nil {
			return fmt.Errorf("inserting %s stats: %w", st.Sensor, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SqliteStore) Session(ctx context.Context, id int64) (session *flight.Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	session, err = scanSession(stmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %d: %w", id, ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return session, nil
}

func (s *SqliteStore) Sessions(ctx context.Context) (sessions []*flight.Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess *flight.Session
		if sess, err = scanSession(rows); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		sessions = append(sessions, sess)
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) StoreSamples(ctx context.Context, sessionID int64, samples []flight.Sample) (err error) {
	if len(samples) == 0 {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	for from := 0; from < len(samples); from += maxBatchSize {
		if err = insertSamples(ctx, tx, sessionID, samples[from:min(from+maxBatchSize, len(samples))]); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func insertSamples(ctx context.Context, tx *sql.Tx, sessionID int64, samples []flight.Sample) error {
	values := make([]interface{}, 0, len(samples)*3)

	// Build batch insert query
	valuesPlaceholder := "(?, ?, ?)"

	var sb strings.Builder

	sb.WriteString(insertSampleSQL)

	for i, sample := range samples {
		points, err := encodePoints(sample.Points)
		if err != nil {
			return err
		}
		values = append(values, sessionID, sample.TimeMs, points)

		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(valuesPlaceholder)
	}

	// Single batch insert
	if _, err := tx.ExecContext(ctx, sb.String(), values...); err != nil {
		return fmt.Errorf("batch inserting samples: %w", err)
	}
	return nil
}

func (s *SqliteStore) StoreLaps(ctx context.Context, sessionID int64, laps []flight.Lap) (err error) {
	if len(laps) == 0 {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	stmt, err := tx.PrepareContext(ctx, insertLapSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	for _, lap := range laps {
		if _, err = stmt.ExecContext(ctx, sessionID, lap.Number, string(lap.Kind), lap.Time.Milliseconds()); err != nil {
			return fmt.Errorf("inserting lap: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SqliteStore) Laps(ctx context.Context, sessionID int64) (laps []flight.Lap, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectLapsSQL, sessionID)
	if err != nil {
		err = fmt.Errorf("querying laps: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var lap flight.Lap
		var kind string
		var ms int64
		if err = rows.Scan(&lap.Number, &kind, &ms); err != nil {
			err = fmt.Errorf("scanning lap: %w", err)
			return
		}
		lap.Kind = flight.LapKind(kind)
		lap.Time = time.Duration(ms) * time.Millisecond
		laps = append(laps, lap)
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) SensorStats(ctx context.Context, sessionID int64) (stats []flight.SensorStat, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSensorStatsSQL, sessionID)
	if err != nil {
		err = fmt.Errorf("querying sensor stats: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var st flight.SensorStat
		if err = rows.Scan(&st.Sensor, &st.Accepted, &st.Rejected, &st.Migrations); err != nil {
			err = fmt.Errorf("scanning sensor stats: %w", err)
			return
		}
		stats = append(stats, st)
	}
	err = rows.Err()
	return
}

// ReadSamples creates a SampleReader over the samples of a session. The
// returned reader must be closed after use to release database resources.
// Each reader instance should only be used from a single goroutine.
func (s *SqliteStore) ReadSamples(ctx context.Context, sessionID int64, opts ...ReaderOption) (*SqliteSampleReader, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return newSqliteSampleReader(ctx, db, sessionID, opts...)
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var errs []error

		if s.writeDB != nil {
			if err := runSQLCommand(s.writeDB, initIndexesSQL); err != nil {
				errs = append(errs, fmt.Errorf("creating indexes: %w", err))
			}
			errs = append(errs, s.writeDB.Close())
			s.writeDB = nil
		}

		if s.readDB != nil {
			errs = append(errs, s.readDB.Close())
			s.readDB = nil
		}

		s.closeErr = errors.Join(errs...)
	})

	return s.closeErr
}
