package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roman-kulish/hott-telemetry/internal/binlog"
	"github.com/roman-kulish/hott-telemetry/internal/flight"
	"github.com/roman-kulish/hott-telemetry/internal/hott"
	"github.com/roman-kulish/hott-telemetry/internal/infocache"
	"github.com/roman-kulish/hott-telemetry/internal/storage"
)

// WithMaxBatchSize sets the maximum batch size of decoded samples to store
// within a single database transaction.
func WithMaxBatchSize(size int) func(*Orchestrator) {
	return func(o *Orchestrator) {
		if size > 0 {
			o.maxBatchSize = size
		}
	}
}

// WithWorkers sets the number of files decoded concurrently.
func WithWorkers(n int) func(*Orchestrator) {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithCache enables the file-info cache, which skips sensor detection for
// files decoded before.
func WithCache(cache *infocache.Cache) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.cache = cache
	}
}

// Orchestrator decodes recorded files concurrently and stores every file as
// a session.
type Orchestrator struct {
	decoder DecoderConfig
	logger  *slog.Logger
	store   storage.Store
	cache   *infocache.Cache

	maxBatchSize int
	workers      int

	failed atomic.Int64
	wg     sync.WaitGroup
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(store storage.Store, decoder DecoderConfig, logger *slog.Logger, options ...func(*Orchestrator)) *Orchestrator {
	o := Orchestrator{
		decoder:      decoder,
		logger:       logger,
		store:        store,
		maxBatchSize: storage.DefaultBatchSize,
		workers:      1,
	}

	for _, option := range options {
		option(&o)
	}

	return &o
}

// Run decodes the files and waits for all workers. A file that fails is
// logged and does not stop the others. Cancelling ctx stops all workers.
func (o *Orchestrator) Run(ctx context.Context, paths []string) error {
	jobs := make(chan string)

	for range min(o.workers, len(paths)) {
		o.wg.Add(1)
		go o.worker(ctx, jobs)
	}

feed:
	for _, path := range paths {
		select {
		case jobs <- path:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	o.wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if n := o.failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d files failed to decode", n, len(paths))
	}
	return nil
}

func (o *Orchestrator) worker(ctx context.Context, jobs <-chan string) {
	defer o.wg.Done()

	for path := range jobs {
		if ctx.Err() != nil {
			return
		}
		if err := o.decodeFile(ctx, path); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			o.failed.Add(1)
			o.logger.Error(err.Error(), slog.String("source", path))
		}
	}
}

func (o *Orchestrator) decodeFile(ctx context.Context, path string) (err error) {
	f, err := binlog.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	logger := o.logger.With(slog.String("source", path), slog.String("format", f.Format.String()))

	if f.Format == binlog.FormatPCLog {
		// Recordings of the PC tool are identified but not decoded.
		d, _ := f.DetectedSensors()
		logger.Warn("skipping PC log recording", slog.String("sensors", d.String()), slog.Int64("records", f.Blocks))
		return nil
	}

	opts := []binlog.DecoderOption{binlog.WithLogger(logger)}
	if o.decoder.Sampling != nil {
		opts = append(opts, binlog.WithSampling(*o.decoder.Sampling))
	}
	cached, err := o.cachedDetection(f)
	if err != nil {
		logger.Warn("reading info cache", slog.String("error", err.Error()))
	}
	if cached != nil {
		logger.Debug("using cached detection", slog.String("sensors", cached.String()))
		opts = append(opts, binlog.WithDetection(*cached))
	}

	session := &flight.Session{
		Kind:     flight.KindFile,
		Source:   path,
		Format:   f.Format.String(),
		Channels: o.decoder.Filter.Channels,
	}
	if data, err := json.Marshal(o.decoder); err == nil {
		config := string(data)
		session.Config = &config
	}

	sessionID, err := o.store.CreateSession(ctx, session)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	writer := storage.NewBatchWriter(o.store, sessionID, o.maxBatchSize)
	res, err := binlog.NewDecoder(o.decoder.Filter, opts...).Decode(ctx, f, func(s hott.Sample) error {
		return writer.Add(ctx, s.TimeMs, s.Points)
	})
	if err != nil {
		return fmt.Errorf("decoding: %w", err)
	}
	if err = writer.Flush(ctx); err != nil {
		return err
	}

	summary := flight.NewSummary(res.Detection, res.Stats, res.Sampling)
	if err = o.store.FinishSession(ctx, sessionID, summary, flight.NewSensorStats(res.Stats)); err != nil {
		return fmt.Errorf("finishing session: %w", err)
	}
	if res.Laps != nil {
		if err = o.store.StoreLaps(ctx, sessionID, lapsToModel(*res.Laps)); err != nil {
			return fmt.Errorf("storing laps: %w", err)
		}
	}

	if cached == nil && o.cache != nil {
		entry := infocache.Entry{
			Size:    f.Size,
			ModTime: f.ModTime,
			Format:  f.Format.String(),
			Sensors: res.Detection.String(),
			Blocks:  f.Blocks,
		}
		if err := o.cache.Put(path, entry); err != nil {
			logger.Warn("updating info cache", slog.String("error", err.Error()))
		}
	}

	logger.Info("file decoded",
		slog.Int64("session", sessionID),
		slog.String("sensors", res.Detection.String()),
		slog.String("plan", res.Detection.Plan().String()),
		slog.Int64("samples", writer.Written()),
		slog.Float64("loss", res.Stats.LossPercent))
	return nil
}

// cachedDetection returns the cached sensors of a 64-byte block file. X
// containers detect their sensors while decoding and are not cached.
func (o *Orchestrator) cachedDetection(f *binlog.File) (*hott.Detection, error) {
	if o.cache == nil || f.Format == binlog.FormatX {
		return nil, nil
	}
	entry, ok, err := o.cache.Get(f.Path, f.Size, f.ModTime)
	if err != nil || !ok {
		return nil, err
	}
	if entry.Format != f.Format.String() {
		return nil, nil
	}
	d, err := hott.ParseDetection(entry.Sensors)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("cached sensors: %w", err), o.cache.Delete(f.Path))
	}
	return &d, nil
}

func lapsToModel(l binlog.Laps) []flight.Lap {
	laps := make([]flight.Lap, 0, len(l.Times)+2)
	for i, t := range l.Times {
		laps = append(laps, flight.Lap{Number: i + 1, Kind: flight.LapRegular, Time: t.Duration()})
	}
	if !l.Best.IsZero() {
		laps = append(laps, flight.Lap{Kind: flight.LapBest, Time: l.Best.Duration()})
	}
	if !l.Average.IsZero() {
		laps = append(laps, flight.Lap{Kind: flight.LapAverage, Time: l.Average.Duration()})
	}
	return laps
}
