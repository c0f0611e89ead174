package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roman-kulish/hott-telemetry/internal/flight"
	"github.com/roman-kulish/hott-telemetry/internal/hott"
	"github.com/roman-kulish/hott-telemetry/internal/link"
	"github.com/roman-kulish/hott-telemetry/internal/storage"
	"github.com/roman-kulish/hott-telemetry/internal/telemetry"
)

const (
	storageDir = "data"
	sampleBuf  = 64
)

// Run opens the serial link and records telemetry until ctx is cancelled or
// the link fails.
func Run(ctx context.Context, config *Config, logger *slog.Logger) (err error) {
	store, err := createStorage(&config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	transport, err := link.OpenSerial(config.Link, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, transport.Close())
	}()

	return Record(ctx, transport, store, config, logger)
}

// Record gathers telemetry over transport into a new live session.
func Record(ctx context.Context, transport link.Transport, store storage.Store, config *Config, logger *slog.Logger) error {
	logger = logger.With(slog.String("port", config.Link.Port))
	gatherer := link.NewGatherer(transport, config.Link, link.WithLogger(logger), link.WithFilter(config.Filter))

	var detection hott.Detection
	if config.Sensors != nil {
		detection = *config.Sensors
	} else {
		d, err := gatherer.Detect(ctx)
		if err != nil {
			return fmt.Errorf("detecting sensors: %w", err)
		}
		detection = d
	}

	session := &flight.Session{
		Kind:     flight.KindLive,
		Source:   config.Link.Port,
		Format:   string(flight.KindLive),
		Sensors:  detection.String(),
		Plan:     detection.Plan().String(),
		Channels: config.Filter.Channels,
	}
	sessionID, err := store.CreateSession(ctx, session)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	samples := make(chan hott.Sample, sampleBuf)
	stopped, err := gatherer.Start(ctx, detection, samples)
	if err != nil {
		return err
	}
	// Stop waits for the gathering goroutine, so no sample is sent after it.
	defer gatherer.Stop()

	writer := storage.NewBatchWriter(store, sessionID, config.Storage.MaxBatchSize)

	var report <-chan time.Time
	if config.ReportInterval > 0 {
		ticker := time.NewTicker(time.Duration(config.ReportInterval))
		defer ticker.Stop()
		report = ticker.C
	}

	var linkErr, storeErr error
loop:
	for {
		select {
		case s := <-samples:
			if storeErr = writer.Add(ctx, s.TimeMs, s.Points); storeErr != nil {
				gatherer.Stop()
				break loop
			}

		case err, ok := <-stopped:
			if ok {
				linkErr = err
			}
			break loop

		case <-report:
			logTelemetry(logger, gatherer)
		}
	}

	gatherer.Stop()
	for drained := false; !drained && storeErr == nil; {
		select {
		case s := <-samples:
			storeErr = writer.Add(ctx, s.TimeMs, s.Points)
		default:
			drained = true
		}
	}

	// The session is finished even when ctx is cancelled.
	finishCtx := context.WithoutCancel(ctx)
	if err := writer.Flush(finishCtx); err != nil {
		storeErr = errors.Join(storeErr, err)
	}

	st := gatherer.Stats()
	summary := flight.NewSummary(detection, st.Session, nil)
	if err := store.FinishSession(finishCtx, sessionID, summary, flight.NewSensorStats(st.Session)); err != nil {
		storeErr = errors.Join(storeErr, fmt.Errorf("finishing session: %w", err))
	}

	logger.Info("live session finished",
		slog.Int64("session", sessionID),
		slog.Int64("samples", writer.Written()),
		slog.Int64("queries", st.Queries),
		slog.Int64("timeouts", st.Timeouts),
		slog.Float64("loss", st.Session.LossPercent))

	return errors.Join(linkErr, storeErr)
}

func logTelemetry(logger *slog.Logger, provider telemetry.Provider) {
	if t := provider.Get(); t != nil {
		logger.Info("telemetry", slog.Any("telemetry", t))
	}
}

func createStorage(config *StorageConfig) (*storage.SqliteStore, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	dbPath := filepath.Join(wd, storageDir)
	if config.DataDirectory != "" {
		dbPath = config.DataDirectory
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(wd, dbPath)
		}
	}

	if err = os.MkdirAll(dbPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory '%s': %w", dbPath, err)
	}

	return storage.NewSqliteStore(filepath.Join(dbPath, config.Database)), nil
}
